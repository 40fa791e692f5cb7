package registry

import (
	"context"
	"log/slog"
)

// Executor adapts the registry to the engine's ActionExecutor capability:
// each invocation instantiates the action for the requested kind and runs it
// with the action's parameters.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

func NewExecutor(registry *Registry, logger *slog.Logger) *Executor {
	return &Executor{
		registry: registry,
		logger:   logger,
	}
}

func (e *Executor) Execute(ctx context.Context, kind string, parameters map[string]any) (map[string]any, error) {
	action, err := e.registry.CreateAction(kind, parameters)
	if err != nil {
		return nil, err
	}

	return action.Execute(ctx, parameters, e.logger.With("action_kind", kind))
}
