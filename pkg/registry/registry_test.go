package registry_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubegenie/kubegenie/pkg/actions/logaction"
	"github.com/kubegenie/kubegenie/pkg/registry"
)

func TestRegistry_RegisterAndCreate(t *testing.T) {
	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(logaction.NewActionFactory())

	action, err := reg.CreateAction("log", nil)
	require.NoError(t, err)
	require.NotNil(t, action)

	result, err := action.Execute(context.Background(), map[string]any{"message": "hi"}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, true, result["logged"])
}

func TestRegistry_UnknownKind(t *testing.T) {
	reg := registry.NewRegistry(slog.Default())

	_, err := reg.CreateAction("nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_AvailableActions(t *testing.T) {
	reg := registry.NewRegistry(slog.Default())
	assert.Empty(t, reg.AvailableActions())

	reg.RegisterAction(logaction.NewActionFactory())
	assert.Equal(t, []string{"log"}, reg.AvailableActions())
}

func TestExecutor_RunsRegisteredAction(t *testing.T) {
	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(logaction.NewActionFactory())

	executor := registry.NewExecutor(reg, slog.Default())

	result, err := executor.Execute(context.Background(), "log", map[string]any{"message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, true, result["logged"])
}

func TestExecutor_UnknownKind(t *testing.T) {
	executor := registry.NewExecutor(registry.NewRegistry(slog.Default()), slog.Default())

	_, err := executor.Execute(context.Background(), "nope", nil)
	require.Error(t, err)
}
