package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/formcoach/internal/adapters/http/api"
	"github.com/okian/formcoach/internal/adapters/http/swagger"
	"github.com/okian/formcoach/internal/adapters/media"
	"github.com/okian/formcoach/internal/adapters/repository"
	service "github.com/okian/formcoach/internal/app"
	"github.com/okian/formcoach/internal/config"
	"github.com/okian/formcoach/internal/domain/model"
	"github.com/okian/formcoach/internal/domain/scoring"
	"github.com/okian/formcoach/internal/domain/sport"
	"github.com/okian/formcoach/pkg/logger"
	"github.com/okian/formcoach/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	configureMetrics(cfg)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "closing store failed", logger.Error(err))
		}
	}()

	files, err := openFileStore(cfg)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithEngine(buildEngine(cfg, registry)),
		service.WithStore(store),
		service.WithFileStore(files),
		service.WithWriteTimeout(cfg.Storage.WriteTimeout()),
		service.WithSessionLimits(cfg.DefaultSessionLimit, cfg.MaxSessionLimit),
		service.WithScoringMode(cfg.Scoring.Mode),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithAnalyzeRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		api.WithMaxUploadBytes(cfg.Uploads.MaxBytes),
	).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("storage", store.Name()),
			logger.String("scoring_mode", cfg.Scoring.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// setup loads configuration and configures the global logger from it.
func setup(ctx context.Context) (*config.Config, error) {
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	return cfg, nil
}

// configureMetrics rebuilds the process-wide metrics manager from cfg. It
// must run before the /metrics handler is registered.
func configureMetrics(cfg *config.Config) {
	metrics.Configure(
		metrics.WithMetricsEnabled(cfg.Metrics.Enabled),
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithSubsystem(cfg.Metrics.Subsystem),
		metrics.WithRefreshInterval(cfg.Metrics.RefreshInterval()),
		metrics.WithConstLabels(cfg.Metrics.Labels),
	)
}

// openStore opens the configured persistence backend.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	case config.DriverNone:
		return repository.Unavailable{}, nil
	default:
		sc := repository.DefaultSQLiteConfig(cfg.Storage.Path)
		sc.AutoMigrate = cfg.Storage.AutoMigrate
		store, err := repository.OpenSQLite(ctx, sc)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		return store, nil
	}
}

// openFileStore returns the upload store, or a stub when uploads are off.
func openFileStore(cfg *config.Config) (media.FileStore, error) {
	if !cfg.Uploads.Enabled {
		return media.Unavailable{}, nil
	}
	store, err := media.NewDiskStore(cfg.Uploads.Dir, media.WithMaxBytes(cfg.Uploads.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare uploads: %w", err)
	}
	return store, nil
}

// buildRegistry merges configured sports over the built-in table.
func buildRegistry(cfg *config.Config) (*sport.Registry, error) {
	patterns := make([]sport.Pattern, 0, len(cfg.Sports))
	for key, sc := range cfg.Sports {
		weights := make(model.Weights, len(sc.Weights))
		for dim, w := range sc.Weights {
			d := model.Dimension(dim)
			if !d.Valid() {
				return nil, fmt.Errorf("%w: sport %q has unknown dimension %q", config.ErrInvalidConfig, key, dim)
			}
			weights[d] = w
		}
		name := sc.DisplayName
		if name == "" {
			name = key
		}
		patterns = append(patterns, sport.Pattern{Key: key, DisplayName: name, Weights: weights})
	}
	return sport.NewRegistry(sport.WithPatterns(patterns...)), nil
}

// buildEngine selects the estimator chain for the configured scoring mode.
func buildEngine(cfg *config.Config, registry *sport.Registry) *scoring.Engine {
	placeholder := scoring.NewPlaceholder(scoring.WithSeed(cfg.Scoring.Seed))
	if cfg.Scoring.Mode == config.ModePlaceholder {
		return scoring.NewEngine(registry, scoring.WithEstimator(placeholder))
	}
	return scoring.NewEngine(registry, scoring.WithFallback(placeholder))
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
