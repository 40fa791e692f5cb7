// Package logaction provides a log-only action used for dry runs.
package logaction

import (
	"context"
	"log/slog"

	"github.com/kubegenie/kubegenie/pkg/protocol"
)

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

type ActionFactory struct{}

func (*ActionFactory) ID() string {
	return "log"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return &Action{}, nil
}

type Action struct{}

func (a *Action) Execute(ctx context.Context, parameters map[string]any, logger *slog.Logger) (map[string]any, error) {
	logger.InfoContext(ctx, "Dry-run action", "parameters", parameters)

	return map[string]any{"logged": true}, nil
}
