// Package main provides the automation engine service binary.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/opensyte/automation/pkg/log"
	trc "github.com/opensyte/automation/pkg/tracer"
)

func main() {
	cmd := &cli.Command{
		Name:                  "automation-engine",
		Usage:                 "Start the Opensyte automation engine service",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence (in-memory store when empty)",
				Value:   "",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list",
				Value:   "",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the workflow config cache (cache disabled when empty)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.IntFlag{
				Name:    "http-port",
				Usage:   "Port for the HTTP API",
				Value:   8081,
				Sources: cli.EnvVars("HTTP_PORT"),
			},
			&cli.StringFlag{
				Name:    "notifier-url",
				Usage:   "Base URL of the email notification service (log-only notifier when empty)",
				Value:   "",
				Sources: cli.EnvVars("NOTIFIER_URL"),
			},
			&cli.StringFlag{
				Name:    "notifier-token",
				Usage:   "Bearer token for the email notification service",
				Value:   "",
				Sources: cli.EnvVars("NOTIFIER_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "health-cron",
				Usage:   "Cron expression for the periodic operations health digest",
				Value:   "",
				Sources: cli.EnvVars("HEALTH_CRON"),
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

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tracerProvider, err := trc.InitTracer(ctx, "automation-engine")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(context.Background()); err != nil {
					slog.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			logger := log.WithModule("automation-engine")

			service, err := NewService(ctx, logger, Config{
				DatabaseURL:   command.String("database-url"),
				EventBus:      command.String("event-bus"),
				KafkaBrokers:  command.String("kafka-brokers"),
				RedisURL:      command.String("redis-url"),
				HTTPPort:      command.Int("http-port"),
				NotifierURL:   command.String("notifier-url"),
				NotifierToken: command.String("notifier-token"),
				HealthCron:    command.String("health-cron"),
			})
			if err != nil {
				return err
			}
			defer service.Close(context.Background())

			return service.Run(ctx)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("automation-engine exited with error", "error", err)
		os.Exit(1)
	}
}
