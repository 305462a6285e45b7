package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/opensyte/automation/pkg/channels/gochannel"
	"github.com/opensyte/automation/pkg/channels/kafka"
	"github.com/opensyte/automation/pkg/engine"
	"github.com/opensyte/automation/pkg/eventbus"
	"github.com/opensyte/automation/pkg/events"
	"github.com/opensyte/automation/pkg/handlers"
	"github.com/opensyte/automation/pkg/notifier"
	"github.com/opensyte/automation/pkg/ops"
	"github.com/opensyte/automation/pkg/persistence"
	"github.com/opensyte/automation/pkg/persistence/memory"
	"github.com/opensyte/automation/pkg/persistence/postgresql"
	"github.com/opensyte/automation/pkg/persistence/rediscache"
	"github.com/opensyte/automation/pkg/scheduler"
	"github.com/opensyte/automation/pkg/web"
)

const notifierTimeout = 15 * time.Second

type Config struct {
	DatabaseURL   string
	EventBus      string
	KafkaBrokers  string
	RedisURL      string
	HTTPPort      int
	NotifierURL   string
	NotifierToken string
	HealthCron    string
}

type Service struct {
	config    Config
	logger    *slog.Logger
	store     persistence.Persistence
	engine    *engine.Engine
	api       *web.API
	bus       eventbus.EventBus
	scheduler *scheduler.HealthScheduler
	redis     *redis.Client
}

func NewService(ctx context.Context, logger *slog.Logger, config Config) (*Service, error) {
	store, err := newPersistence(ctx, logger, config.DatabaseURL)
	if err != nil {
		return nil, err
	}

	service := &Service{
		config: config,
		logger: logger,
		store:  store,
	}

	if config.RedisURL != "" {
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}

		service.redis = redis.NewClient(opts)
		service.store = withConfigCache(store, rediscache.NewConfigCache(
			store.Configs(),
			service.redis,
			rediscache.DefaultTTL,
			logger,
		))
	}

	operations := ops.New(service.store, logger)

	registry := handlers.NewRegistry(handlers.Deps{
		Store:    service.store,
		Ops:      operations,
		Notifier: newNotifier(logger, config),
	})

	service.engine = engine.New(service.store, registry, logger, otel.Tracer("automation-engine"))
	service.api = web.NewAPI(logger, service.store, registry, service.engine)

	if config.EventBus != "" && config.EventBus != "none" {
		service.bus, err = newEventBus(logger, config)
		if err != nil {
			return nil, err
		}
	}

	service.scheduler, err = scheduler.NewHealthScheduler(
		service.store,
		func(ctx context.Context, event events.Event) error {
			_, err := service.engine.Execute(ctx, event)

			return err
		},
		logger,
		config.HealthCron,
	)
	if err != nil {
		return nil, err
	}

	return service, nil
}

// Run starts the event subscription, the health scheduler and the HTTP API.
// It blocks until the HTTP server stops.
func (s *Service) Run(ctx context.Context) error {
	if s.bus != nil {
		err := s.bus.Subscribe(ctx, func(ctx context.Context, event events.Event) error {
			_, err := s.engine.Execute(ctx, event)

			return err
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to domain events: %w", err)
		}

		s.logger.Info("Subscribed to domain events", "topic", events.Topic)
	}

	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}

	s.logger.Info("Starting HTTP API", "port", s.config.HTTPPort)

	return s.api.Start(s.config.HTTPPort)
}

func (s *Service) Close(ctx context.Context) {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			s.logger.Error("Failed to close event bus", "error", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", "error", err)
		}
	}

	if err := s.store.Close(ctx); err != nil {
		s.logger.Error("Failed to close persistence", "error", err)
	}
}

func newPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	if databaseURL == "" {
		logger.Warn("No database URL configured, using in-memory persistence")

		return memory.NewPersistence(), nil
	}

	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	}

	return nil, fmt.Errorf("unsupported database URL scheme: %s", databaseURL)
}

func newNotifier(logger *slog.Logger, config Config) notifier.Notifier {
	if config.NotifierURL == "" {
		return notifier.NewLogNotifier(logger)
	}

	return notifier.NewHTTPNotifier(config.NotifierURL, config.NotifierToken, notifierTimeout)
}

func newEventBus(logger *slog.Logger, config Config) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch config.EventBus {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, config.KafkaBrokers, "automation-engine")
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka channel: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gochannel channel: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", config.EventBus)
	}
}

// cachedPersistence overlays the redis-backed config repository over the
// underlying store.
type cachedPersistence struct {
	persistence.Persistence
	configs persistence.ConfigRepository
}

func withConfigCache(store persistence.Persistence, configs persistence.ConfigRepository) persistence.Persistence {
	return &cachedPersistence{Persistence: store, configs: configs}
}

func (p *cachedPersistence) Configs() persistence.ConfigRepository {
	return p.configs
}
