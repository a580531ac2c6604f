package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	tallyservice "votecore/contexts/elections/tally-service"
	"votecore/contexts/elections/tally-service/adapters/memory"
	postgresadapter "votecore/contexts/elections/tally-service/adapters/postgres"
	tokenissuer "votecore/contexts/elections/token-issuer"
	"votecore/contexts/elections/token-issuer/adapters/registrar"
	"votecore/internal/platform/config"
	"votecore/internal/platform/httpserver"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const shutdownTimeout = 10 * time.Second

type APIApp struct {
	server    *httpserver.Server
	resources *resources
	logger    *slog.Logger
}

type IssuerApp struct {
	server    *httpserver.IssuerServer
	resources *resources
	logger    *slog.Logger
}

type WorkerApp struct {
	module         tallyservice.Module
	resources      *resources
	pollInterval   time.Duration
	enableConsumer bool
	logger         *slog.Logger
}

// TallyApp exposes the tally use cases to operator tooling.
type TallyApp struct {
	Module    tallyservice.Module
	resources *resources
}

// NewLogger installs a JSON slog handler tagged with the service and process.
func NewLogger(serviceName string, process string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	})).With("service", serviceName, "process", process)
	slog.SetDefault(logger)
	return logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg.ServiceName, "api")

	module, res, err := buildTallyModule(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	if module.Store != nil {
		logger.Warn("POSTGRES_DSN not set, tally state is kept in memory",
			"event", "bootstrap_memory_store",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}

	server := httpserver.New(module, cfg.S2SAPIKey, logger, normalizeAddr(cfg.HTTPPort, ":8080"))
	return &APIApp{
		server:    server,
		resources: res,
		logger:    logger,
	}, nil
}

func BuildIssuer() (*IssuerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg.ServiceName, "issuer")
	res := &resources{}

	client := registrar.NewClient(registrar.Config{
		BaseURL:     cfg.RegistrarURL,
		APIKey:      cfg.S2SAPIKey,
		Timeout:     cfg.RegistrarTimeout,
		MaxAttempts: cfg.RegistrarMaxAttempts,
	}, nil, logger)

	var module tokenissuer.Module
	switch cfg.IssuanceBackend {
	case config.IssuanceBackendRedis:
		ledger, err := res.redisLedger(context.Background(), cfg, logger)
		if err != nil {
			_ = res.Close()
			return nil, err
		}
		module = tokenissuer.NewModule(tokenissuer.Dependencies{
			Registrar: client,
			Ledger:    ledger,
			Logger:    logger,
		})
	default:
		module = tokenissuer.NewInMemoryModule(client, logger)
	}

	server := httpserver.NewIssuer(module, logger, normalizeAddr(cfg.IssuerHTTPPort, ":8081"))
	return &IssuerApp{
		server:    server,
		resources: res,
		logger:    logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg.ServiceName, "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	module, res, err := buildTallyModule(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		module:         module,
		resources:      res,
		pollInterval:   cfg.OutboxPollInterval,
		enableConsumer: cfg.EnableElectionClosedConsumer,
		logger:         logger,
	}, nil
}

// BuildTally wires the tally module against the configured datastore without
// any HTTP surface.
func BuildTally(ctx context.Context, process string) (*TallyApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg.ServiceName, process)
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	module, res, err := buildTallyModule(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &TallyApp{Module: module, resources: res}, nil
}

func buildTallyModule(ctx context.Context, cfg config.Config, logger *slog.Logger) (tallyservice.Module, *resources, error) {
	res := &resources{}
	locker, err := res.locker(ctx, cfg, logger)
	if err != nil {
		_ = res.Close()
		return tallyservice.Module{}, nil, err
	}

	bus, err := res.messaging(cfg, logger)
	if err != nil {
		_ = res.Close()
		return tallyservice.Module{}, nil, err
	}

	if cfg.PostgresDSN == "" {
		store := memory.NewStore(nil, logger)
		module := tallyservice.NewModule(tallyservice.Dependencies{
			Elections:  store,
			Tokens:     store,
			Ballots:    store,
			Results:    store,
			Outbox:     store,
			Dedup:      store,
			Locker:     locker,
			Clock:      store,
			IDGen:      store,
			Publisher:  bus,
			Subscriber: bus,
			LockTTL:    cfg.TabulationLockTTL,
			Logger:     logger,
		})
		module.Store = store
		return module, res, nil
	}

	pg, err := res.postgres(cfg)
	if err != nil {
		_ = res.Close()
		return tallyservice.Module{}, nil, err
	}
	repo := postgresadapter.NewRepository(pg.DB, logger)
	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			_ = res.Close()
			return tallyservice.Module{}, nil, err
		}
	}

	module := tallyservice.NewModule(tallyservice.Dependencies{
		Elections:  repo,
		Tokens:     repo,
		Ballots:    repo,
		Results:    repo,
		Outbox:     repo,
		Dedup:      repo,
		Locker:     locker,
		Clock:      postgresadapter.SystemClock{},
		IDGen:      postgresadapter.UUIDGenerator{},
		Publisher:  bus,
		Subscriber: bus,
		LockTTL:    cfg.TabulationLockTTL,
		Logger:     logger,
	})
	return module, res, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return serveUntilDone(ctx, a.server.Start, a.server.Shutdown)
}

func (a *APIApp) Close() error {
	return a.resources.Close()
}

func (a *IssuerApp) Run(ctx context.Context) error {
	a.logger.Info("issuer app started",
		"event", "bootstrap_issuer_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return serveUntilDone(ctx, a.server.Start, a.server.Shutdown)
}

func (a *IssuerApp) Close() error {
	return a.resources.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	if w.enableConsumer {
		group.Go(func() error {
			if err := w.module.ClosedHandler.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		})
	}

	group.Go(func() error {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			if err := w.module.OutboxRelay.RunOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("outbox relay pass failed",
					"event", "bootstrap_outbox_relay_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"election_closed_consumer", w.enableConsumer,
	)
	return group.Wait()
}

func (w *WorkerApp) Close() error {
	return w.resources.Close()
}

func (a *TallyApp) Close() error {
	return a.resources.Close()
}

func serveUntilDone(ctx context.Context, start func() error, shutdown func(context.Context) error) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(start)
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return shutdown(shutdownCtx)
	})
	return group.Wait()
}

func normalizeAddr(port string, fallback string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return fallback
	}
	if strings.HasPrefix(value, ":") || strings.Contains(value, ":") {
		return value
	}
	return ":" + value
}

func logLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}
