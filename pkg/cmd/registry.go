// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/kubegenie/kubegenie/pkg/actions/httpcall"
	"github.com/kubegenie/kubegenie/pkg/actions/logaction"
	"github.com/kubegenie/kubegenie/pkg/registry"
)

func registerActionPlugins(reg *registry.Registry, pluginsPath string) {
	actionPlugins, err := reg.LoadActionPlugins(pluginsPath)
	if err != nil {
		panic(err)
	}

	for _, plugin := range actionPlugins {
		reg.RegisterAction(plugin)
	}
}

func registerNativeActions(reg *registry.Registry) {
	reg.RegisterAction(httpcall.NewActionFactory())
	reg.RegisterAction(logaction.NewActionFactory())
}

func NewRegistry(log *slog.Logger, pluginsPath string) *registry.Registry {
	reg := registry.NewRegistry(log)

	if pluginsPath != "" {
		registerActionPlugins(reg, pluginsPath)
	}

	registerNativeActions(reg)

	return reg
}
