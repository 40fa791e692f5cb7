// Package main provides the KubeGenie workflow runner.
package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/kubegenie/kubegenie/pkg/cmd"
	"github.com/kubegenie/kubegenie/pkg/engine"
	"github.com/kubegenie/kubegenie/pkg/executors/simulated"
	"github.com/kubegenie/kubegenie/pkg/log"
	"github.com/kubegenie/kubegenie/pkg/otelhelper"
	"github.com/kubegenie/kubegenie/pkg/protocol"
	"github.com/kubegenie/kubegenie/pkg/registry"
	"github.com/kubegenie/kubegenie/pkg/services"
)

func main() {
	command := &cli.Command{
		Name:                  "kubegenie-runner",
		EnableShellCompletion: true,
		Usage:                 "Execute an action plan once or on a schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "runner-id",
				Aliases: []string{"id"},
				Usage:   "Custom runner ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("RUNNER_ID"),
			},
			&cli.StringFlag{
				Name:     "plan",
				Usage:    "Path to the action plan JSON file",
				Required: true,
				Sources:  cli.EnvVars("ACTION_PLAN"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence (file://, redis://, postgres://)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "plugins-path",
				Usage:    "Path to the directory containing action plugins",
				Value:    "./plugins",
				Required: false,
				Sources:  cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron schedule; when empty the plan runs once and the runner exits",
				Value:   "",
				Sources: cli.EnvVars("SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:  "simulate",
				Usage: "Use the simulated executor instead of registered actions",
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent",
				Usage:   "Maximum actions in flight per workflow",
				Value:   8,
				Sources: cli.EnvVars("MAX_CONCURRENT_ACTIONS"),
			},
			&cli.DurationFlag{
				Name:    "batch-interval",
				Usage:   "Pause between scheduler iterations",
				Value:   500 * time.Millisecond,
				Sources: cli.EnvVars("BATCH_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			runnerID := command.String("runner-id")
			if runnerID == "" {
				runnerID = "runner-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("kubegenie-runner").With("runner_id", runnerID)

			logger.InfoContext(ctx, "Initializing KubeGenie Runner")

			if command.Bool("tracing") {
				if _, err := otelhelper.NewTracer(ctx, "kubegenie-runner"); err != nil {
					logger.ErrorContext(ctx, "Failed to initialize tracer", "error", err)
				}
			}

			var executor protocol.ActionExecutor
			if command.Bool("simulate") {
				executor = simulated.New()
			} else {
				reg := cmd.NewRegistry(logger, command.String("plugins-path"))
				executor = registry.NewExecutor(reg, logger)
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			store := engine.NewWorkflowStore()
			eng := engine.New(store, executor,
				engine.WithEventBus(eventBus),
				engine.WithLogger(logger),
				engine.WithMaxConcurrent(command.Int("max-concurrent")),
				engine.WithBatchInterval(command.Duration("batch-interval")),
			)
			service := services.NewWorkflowService(store, eng, persistence, logger)

			runner := NewRunner(runnerID, service, logger, command.String("plan"))

			if spec := command.String("schedule"); spec != "" {
				return runner.RunOnSchedule(ctx, spec)
			}

			return runner.RunOnce(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
