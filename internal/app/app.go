package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/gieplan/internal/audit"
	"github.com/wisbric/gieplan/internal/auth"
	"github.com/wisbric/gieplan/internal/config"
	"github.com/wisbric/gieplan/internal/httpserver"
	"github.com/wisbric/gieplan/internal/platform"
	"github.com/wisbric/gieplan/internal/seed"
	"github.com/wisbric/gieplan/internal/telemetry"
	"github.com/wisbric/gieplan/pkg/participant"
	"github.com/wisbric/gieplan/pkg/roster"
	gieplanslack "github.com/wisbric/gieplan/pkg/slack"
)

// Run is the main application entry point. It reads config, connects to
// infrastructure, and starts the appropriate mode (api, worker, or seed).
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting gieplan",
		"mode", cfg.Mode,
		"listen", cfg.ListenAddr(),
	)

	// Database
	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	// Redis
	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	// Migrations
	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	// Metrics
	metricsReg := telemetry.NewMetricsRegistry()

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg)
	case "worker":
		return runWorker(ctx, cfg, logger, db, rdb)
	case "seed":
		return seed.Run(ctx, db, logger)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// buildRosterService wires the store/engine/notifier stack shared by the
// api and worker modes.
func buildRosterService(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client) (*roster.Service, *participant.Store) {
	notifier := gieplanslack.NewNotifier(cfg.SlackBotToken, cfg.SlackRosterChannel, logger)
	if notifier.IsEnabled() {
		logger.Info("slack integration enabled", "channel", cfg.SlackRosterChannel)
	} else {
		logger.Info("slack integration disabled (SLACK_BOT_TOKEN not set)")
	}

	cacheTTL, err := time.ParseDuration(cfg.ReportCacheTTL)
	if err != nil {
		cacheTTL = 5 * time.Minute
	}

	people := participant.NewStore(db)
	svc := roster.NewService(
		roster.NewStore(db), people, rdb, notifier, logger,
		roster.Defaults{TeamSize: cfg.TeamSize, SubstituteCount: cfg.SubstituteCount},
		cacheTTL,
	)
	return svc, people
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	if cfg.APIKeyHash == "" {
		logger.Warn("API key authentication disabled (GIEPLAN_API_KEY_HASH not set)")
	}

	// Audit log writer (async, buffered).
	auditWriter := audit.NewWriter(db, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg, auth.Middleware(cfg.APIKeyHash))

	rosterSvc, peopleStore := buildRosterService(cfg, logger, db, rdb)
	participantSvc := participant.NewService(peopleStore, rosterSvc, logger)

	srv.APIRouter.Mount("/participants", participant.NewHandler(participantSvc, rosterSvc, logger, auditWriter).Routes())
	srv.APIRouter.Mount("/rosters", roster.NewHandler(rosterSvc, logger, auditWriter).Routes())
	srv.APIRouter.Mount("/audit-log", audit.NewHandler(db, logger).Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client) error {
	logger.Info("worker started")

	interval, err := time.ParseDuration(cfg.TopUpInterval)
	if err != nil {
		return fmt.Errorf("parsing top-up interval %q: %w", cfg.TopUpInterval, err)
	}

	svc, _ := buildRosterService(cfg, logger, db, rdb)
	roster.RunTopUpLoop(ctx, svc, cfg.WeeksAhead, interval, logger)
	return nil
}
