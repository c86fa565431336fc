package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/civicnotify/dispatch-engine/internal/config"
	"github.com/civicnotify/dispatch-engine/internal/db"
	"github.com/civicnotify/dispatch-engine/internal/domain"
	"github.com/civicnotify/dispatch-engine/internal/engine"
	"github.com/civicnotify/dispatch-engine/internal/metrics"
	"github.com/civicnotify/dispatch-engine/internal/ops"
	"github.com/civicnotify/dispatch-engine/internal/ratelimiter"
	"github.com/civicnotify/dispatch-engine/internal/repository"
	"github.com/civicnotify/dispatch-engine/internal/transport"
	"github.com/civicnotify/dispatch-engine/internal/worker"
)

func main() {
	var (
		job    = flag.String("job", domain.JobDispatch, "job to run: dispatch, digest-daily, digest-weekly, or serve")
		dryRun = flag.Bool("dry-run", false, "log intended actions without sending or writing")
	)
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	sched, err := cfg.Schedule()
	if err != nil {
		logger.Fatal("failed to build schedule", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	onSent, onFailed, onRun := m.EngineHooks()

	eng := engine.New(engine.Deps{
		Ledger:        repository.NewPgRunLedger(pool),
		Changes:       repository.NewPgChangeSource(pool),
		Subscriptions: repository.NewPgSubscriptionStore(pool),
		Queue:         repository.NewPgQueueStore(pool),
		Log:           repository.NewPgNotificationLog(pool),
		Email:         transport.NewEmailHTTPSender(cfg.EmailBaseURL, cfg.TransportTimeout),
		Message:       transport.NewMessageHTTPSender(cfg.MessageBaseURL, cfg.TransportTimeout),
		Limiter:       ratelimiter.New(cfg.RatePerChannel),
		Schedule:      sched,
	}, cfg.PollInterval, logger,
		engine.WithDryRun(*dryRun),
		engine.WithHooks(engine.Hooks{OnSent: onSent, OnFailed: onFailed, OnRun: onRun}),
	)

	board := ops.NewStatusBoard()
	runner := worker.NewRunner(eng, pool, board, sched.Location(), logger)

	switch *job {
	case domain.JobDispatch, domain.JobDigestDaily, domain.JobDigestWeekly:
		if err := runner.RunOnce(ctx, *job); err != nil {
			if errors.Is(err, domain.ErrJobLocked) {
				os.Exit(0)
			}
			logger.Fatal("run failed", zap.String("job", *job), zap.Error(err))
		}
	case "serve":
		serve(cfg, runner, board, reg, logger)
	default:
		logger.Fatal("unknown job", zap.String("job", *job))
	}
}

// serve runs the cron scheduler and the ops HTTP server until a shutdown
// signal arrives.
func serve(cfg *config.Config, runner *worker.Runner, board *ops.StatusBoard, reg *prometheus.Registry, logger *zap.Logger) {
	if err := runner.Schedule(cfg); err != nil {
		logger.Fatal("failed to schedule jobs", zap.Error(err))
	}
	runner.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      ops.NewRouter(board, reg, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("ops server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ops server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", zap.Error(err))
	}

	// 2. Stop scheduling and wait for any in-flight run to finish.
	<-runner.Stop().Done()

	logger.Info("dispatcher stopped cleanly")
}
