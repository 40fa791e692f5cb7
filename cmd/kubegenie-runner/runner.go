package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/kubegenie/kubegenie/pkg/plan"
	"github.com/kubegenie/kubegenie/pkg/services"
	"github.com/kubegenie/kubegenie/pkg/web"
)

// Runner executes an action plan file through the workflow service, once or on
// a cron schedule, and writes the execution report to stdout.
type Runner struct {
	runnerID string
	service  *services.WorkflowService
	logger   *slog.Logger
	planPath string
}

func NewRunner(runnerID string, service *services.WorkflowService, logger *slog.Logger, planPath string) *Runner {
	return &Runner{
		runnerID: runnerID,
		service:  service,
		logger:   logger,
		planPath: planPath,
	}
}

// RunOnce loads the plan, runs it to completion, and prints the report.
// Action failures are part of the report; only plan or API misuse errors
// return a non-nil error.
func (r *Runner) RunOnce(ctx context.Context) error {
	actionPlan, err := plan.Load(r.planPath)
	if err != nil {
		return err
	}

	summary, err := r.service.Run(ctx, *actionPlan)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(web.TransformSummaryResponse(summary)); err != nil {
		return fmt.Errorf("failed to write execution report: %w", err)
	}

	return nil
}

// RunOnSchedule runs the plan on a cron schedule until interrupted.
func (r *Runner) RunOnSchedule(ctx context.Context, spec string) error {
	scheduler := cron.New()

	_, err := scheduler.AddFunc(spec, func() {
		if err := r.RunOnce(ctx); err != nil {
			r.logger.ErrorContext(ctx, "Scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	scheduler.Start()
	r.logger.InfoContext(ctx, "Scheduler started", "schedule", spec)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		r.logger.InfoContext(ctx, "Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	// Wait for an in-flight run to finish before exiting.
	<-scheduler.Stop().Done()

	return nil
}
