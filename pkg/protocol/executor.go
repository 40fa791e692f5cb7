// Package protocol defines the capability interfaces between the workflow
// engine and the components that perform real side effects.
package protocol

import (
	"context"
	"log/slog"
)

// ActionExecutor performs the real operation behind one workflow action. The
// engine treats it as an opaque, possibly-slow, possibly-failing call; a nil
// error means the action completed and the returned payload is its result.
type ActionExecutor interface {
	Execute(ctx context.Context, kind string, parameters map[string]any) (map[string]any, error)
}

// Action is a single executable operation kind, constructed per invocation by
// its factory.
type Action interface {
	Execute(ctx context.Context, parameters map[string]any, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory creates Action instances for one action kind.
type ActionFactory interface {
	Create(config map[string]any) (Action, error)
	ID() string
}
