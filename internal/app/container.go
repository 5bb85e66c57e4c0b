// Package app wires configuration into the running object graph shared by the
// HTTP server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"basegraph.app/convene/common/llm"
	"basegraph.app/convene/core/config"
	"basegraph.app/convene/core/db"
	"basegraph.app/convene/internal/brain"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/participant"
	"basegraph.app/convene/internal/queue"
	"basegraph.app/convene/internal/service"
	"basegraph.app/convene/internal/store"
)

type Container struct {
	Config     config.Config
	Gateway    *llm.Gateway
	Directory  *participant.Directory
	Stats      *metrics.Stats
	Prometheus *metrics.Prometheus
	Services   *service.Services
	// Redis is nil unless REDIS_URL is set. Owned by the producer.
	Redis *redis.Client

	database *db.DB
	producer queue.Producer
	logger   *slog.Logger
}

// NewContainer builds everything from cfg. The completion backend, database and
// Redis stream are optional; a missing one degrades to fallbacks or no-ops.
func NewContainer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{Config: cfg, Stats: metrics.NewStats(), logger: logger}

	completer, err := newCompleter(cfg.LLM)
	if err != nil {
		return nil, err
	}
	if completer == nil {
		logger.WarnContext(ctx, "no completion backend configured, every phase will use its fallback")
	}
	c.Gateway = llm.NewGateway(completer, GatewayConfig(cfg.LLM))

	c.Directory, err = participant.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("loading participants: %w", err)
	}

	observers := []metrics.Observer{c.Stats}
	if cfg.MetricsEnabled {
		c.Prometheus = metrics.NewPrometheus()
		observers = append(observers, c.Prometheus)
	}

	var scheduleLog store.ScheduleLog
	if cfg.DB.Enabled() {
		c.database, err = db.New(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := c.database.WithTx(ctx, func(tx pgx.Tx) error {
			return store.Migrate(ctx, tx)
		}); err != nil {
			c.Close()
			return nil, err
		}
		scheduleLog = store.NewScheduleLog(c.database.Pool())
		logger.InfoContext(ctx, "schedule log enabled")
	}

	if cfg.Redis.Enabled() {
		client, err := queue.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Redis = client
		c.producer = queue.NewRedisProducer(client, cfg.Redis.Stream, logger)
		logger.InfoContext(ctx, "decision stream enabled", "stream", cfg.Redis.Stream)
	}

	c.Services = service.NewServices(service.Deps{
		Completer:   c.Gateway,
		Directory:   c.Directory,
		Brain:       BrainConfig(cfg),
		Observer:    metrics.NewMulti(observers...),
		Producer:    c.producer,
		ScheduleLog: scheduleLog,
		Logger:      logger,
	})
	return c, nil
}

func (c *Container) Close() {
	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			c.logger.Error("closing redis producer", "error", err)
		}
	}
	if c.database != nil {
		c.database.Close()
	}
}

func newCompleter(cfg config.LLMConfig) (llm.Completer, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	completer, err := llm.New(llm.Config{
		Provider:         cfg.Provider,
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		Model:            cfg.Model,
		StructuredOutput: cfg.StructuredOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}
	return completer, nil
}

func GatewayConfig(cfg config.LLMConfig) llm.GatewayConfig {
	return llm.GatewayConfig{
		Timeout:            cfg.Timeout,
		MaxAttempts:        cfg.MaxAttempts,
		RetryBackoff:       cfg.RetryBackoff,
		BreakerFailures:    cfg.BreakerFailures,
		BreakerOpenTimeout: cfg.BreakerCooldown,
	}
}

func BrainConfig(cfg config.Config) brain.Config {
	return brain.Config{
		MaxParallel:           cfg.Coordinator.MaxParallel,
		ParseMaxTokens:        cfg.Coordinator.ParseMaxTokens,
		AvailabilityMaxTokens: cfg.Coordinator.AvailabilityMaxToken,
		NegotiateMaxTokens:    cfg.Coordinator.NegotiateMaxTokens,
		DecideMaxTokens:       cfg.Coordinator.DecideMaxTokens,
		CalendarTimeout:       cfg.Calendar.Timeout,
	}
}
