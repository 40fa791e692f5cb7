// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/kubegenie/kubegenie/pkg/plan"
	"github.com/kubegenie/kubegenie/pkg/services"
)

type APIHandlers struct {
	workflowService *services.WorkflowService
}

func NewAPIHandlers(workflowService *services.WorkflowService) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
	}
}

// CreateWorkflow accepts an action plan, validates it against the plan schema,
// and registers a pending workflow.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	actionPlan, err := plan.Parse(c.Body())
	if err != nil {
		return badRequest(c, err.Error())
	}

	snapshot, err := h.workflowService.Create(c.Context(), *actionPlan)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(snapshot)
}

// ExecuteWorkflow runs a pending workflow to completion and returns the
// execution report. Action failures are reported in the body, not as HTTP
// errors; only API misuse maps to an error status.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	summary, err := h.workflowService.Execute(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformSummaryResponse(summary))
}

// CancelWorkflow aborts a running workflow.
func (h *APIHandlers) CancelWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Cancel(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	snapshot, err := h.workflowService.Status(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(snapshot)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"workflows": h.workflowService.List(c.Context()),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "KubeGenie API is healthy"
	httpStatus := http.StatusOK

	if err := h.workflowService.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "KubeGenie API is unhealthy: " + err.Error()
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(HealthResponse{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
