package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/SohamFirke/pharma-backend/internal/orders"
	"github.com/SohamFirke/pharma-backend/internal/predictive"
	"github.com/SohamFirke/pharma-backend/internal/trace"
	"github.com/SohamFirke/pharma-backend/pkg/config"
	"github.com/SohamFirke/pharma-backend/pkg/db"
	"github.com/SohamFirke/pharma-backend/pkg/enums"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
	"github.com/SohamFirke/pharma-backend/pkg/metrics"
	"github.com/SohamFirke/pharma-backend/pkg/migrate"
	"github.com/SohamFirke/pharma-backend/pkg/redis"
	"github.com/SohamFirke/pharma-backend/pkg/types"
)

const (
	lockKeyFormat = "pharma:refill-worker:lock:%s"
	sweepAgent    = "predictive_analyzer"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "refill-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "refill-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		closeAll(logg, dbClient.Close)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		closeAll(logg, dbClient.Close)
		os.Exit(1)
	}

	m := metrics.New()
	ordersRepo := orders.NewRepository(dbClient.DB())
	predictiveSvc, err := predictive.NewService(ordersRepo, cfg.Predictive)
	if err != nil {
		logg.Error(context.Background(), "failed to create predictive service", err)
		closeAll(logg, dbClient.Close, redisClient.Close)
		os.Exit(1)
	}
	traceSvc, err := trace.NewService(trace.NewRepository(dbClient.DB()), m)
	if err != nil {
		logg.Error(context.Background(), "failed to create trace service", err)
		closeAll(logg, dbClient.Close, redisClient.Close)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Worker.RefillSweepInterval.String(),
	})
	logg.Info(ctx, "starting refill worker")

	w := &worker{
		predictive: predictiveSvc,
		recorder:   traceSvc,
		lock:       redisClient,
		lockKey:    lockKey(cfg.App.Env),
		interval:   cfg.Worker.RefillSweepInterval,
		metrics:    m,
		logger:     logg,
	}

	if err := w.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "refill worker stopped unexpectedly", err)
		closeAll(logg, dbClient.Close, redisClient.Close)
		os.Exit(1)
	}

	logg.Info(ctx, "refill worker shutting down gracefully")
	closeAll(logg, dbClient.Close, redisClient.Close)
}

// sweepLock guards a sweep window so concurrent replicas do not double-alert.
type sweepLock interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
}

type worker struct {
	predictive predictive.Service
	recorder   trace.Recorder
	lock       sweepLock
	lockKey    string
	interval   time.Duration
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

func (w *worker) run(ctx context.Context) error {
	// Sweep once at startup, then on every tick.
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *worker) sweep(ctx context.Context) {
	start := time.Now()

	acquired, err := w.lock.SetNX(ctx, w.lockKey, "1", w.interval/2)
	if err != nil {
		w.logger.Error(ctx, "failed to acquire sweep lock", err)
		w.metrics.ObserveSweep("error", time.Since(start), 0)
		return
	}
	if !acquired {
		w.logger.Debug(ctx, "sweep lock held elsewhere, skipping")
		w.metrics.ObserveSweep("skipped", time.Since(start), 0)
		return
	}

	alerts, err := w.predictive.RefillAlerts(ctx, "")
	if err != nil {
		w.logger.Error(ctx, "refill sweep failed", err)
		w.metrics.ObserveSweep("error", time.Since(start), 0)
		w.record(ctx, 0, enums.TraceStatusError, fmt.Sprintf("sweep failed: %v", err))
		return
	}

	w.metrics.ObserveSweep("success", time.Since(start), len(alerts))
	w.record(ctx, len(alerts), enums.TraceStatusSuccess,
		fmt.Sprintf("generated %d refill alerts", len(alerts)))
	w.logger.Info(ctx, fmt.Sprintf("refill sweep generated %d alerts", len(alerts)))
}

func (w *worker) record(ctx context.Context, alerts int, status enums.TraceStatus, reason string) {
	err := w.recorder.Append(ctx, trace.AppendInput{
		TraceID:        trace.NewTraceID(),
		AgentName:      sweepAgent,
		Action:         "refill_sweep",
		Input:          types.JSONMap{"scope": "all"},
		Output:         types.JSONMap{"alert_count": alerts},
		DecisionReason: reason,
		Status:         status,
	})
	if err != nil {
		w.logger.Error(ctx, "failed to record sweep in audit trail", err)
	}
}

func closeAll(logg *logger.Logger, closers ...func() error) {
	var err error
	for _, closeFn := range closers {
		err = multierr.Append(err, closeFn())
	}
	if err != nil {
		logg.Error(context.Background(), "error closing resources", err)
	}
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
