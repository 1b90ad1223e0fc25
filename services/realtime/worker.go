package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"bloomify-insights/services/analytics"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Worker recomputes dashboards off the queue and broadcasts fresh results.
type Worker struct {
	Analytics   analytics.AnalyticsService
	Broadcaster Broadcaster
	Logger      *zap.Logger
}

// HandleRecompute processes a TypeDashboardRecompute task.
func (w *Worker) HandleRecompute(ctx context.Context, task *asynq.Task) error {
	var p RecomputePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		w.logger().Error("Invalid recompute payload", zap.Error(err))
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.ProviderID == "" {
		return fmt.Errorf("missing provider id: %w", asynq.SkipRetry)
	}

	dash, err := w.Analytics.ProviderDashboard(ctx, analytics.DashboardRequest{
		ProviderID: p.ProviderID,
		ViewID:     analytics.RealtimeViewID,
		Window:     w.Analytics.DefaultWindow(),
	})
	var violation *analytics.ContractViolation
	switch {
	case errors.Is(err, analytics.ErrStaleGeneration):
		w.logger().Debug("Skipping stale recompute", zap.String("providerID", p.ProviderID))
		return nil
	case errors.As(err, &violation):
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	case err != nil:
		w.logger().Warn("Dashboard recompute failed", zap.String("providerID", p.ProviderID), zap.Error(err))
		return err
	}

	update := DashboardUpdate{ProviderID: p.ProviderID, Generation: dash.Generation, Dashboard: dash}
	if err := w.Broadcaster.Publish(ctx, update); err != nil {
		w.logger().Error("Failed to broadcast dashboard", zap.String("providerID", p.ProviderID), zap.Error(err))
		return err
	}
	w.logger().Info("Dashboard broadcast", zap.String("providerID", p.ProviderID), zap.Uint64("generation", dash.Generation), zap.String("trigger", p.Table))
	return nil
}

func (w *Worker) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}

// ServerConfig configures the queue consumer.
type ServerConfig struct {
	Redis       asynq.RedisClientOpt
	Concurrency int
	MaxAttempts int
}

// queueServer is the part of *asynq.Server the runner drives.
type queueServer interface {
	Start(handler asynq.Handler) error
	Shutdown()
}

// WorkerRunner owns the queue consumer across start attempts.
type WorkerRunner struct {
	newServer func() queueServer
	backoff   func(attempt int) time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	current queueServer
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// StartWorker starts the queue consumer in the background, retrying with
// backoff on a fresh server each attempt, and returns a runner the caller
// shuts down.
func StartWorker(cfg ServerConfig, w *Worker) *WorkerRunner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	r := newWorkerRunner(func() queueServer {
		return asynq.NewServer(cfg.Redis, asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      map[string]int{"default": 1},
		})
	}, w.logger())

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDashboardRecompute, w.HandleRecompute)

	w.logger().Info("Starting dashboard worker", zap.Int("concurrency", cfg.Concurrency))
	go r.run(mux, cfg.MaxAttempts)
	return r
}

func newWorkerRunner(newServer func() queueServer, logger *zap.Logger) *WorkerRunner {
	return &WorkerRunner{
		newServer: newServer,
		backoff:   func(attempt int) time.Duration { return time.Duration(attempt*2) * time.Second },
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (r *WorkerRunner) run(handler asynq.Handler, maxAttempts int) {
	defer close(r.done)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		srv := r.newServer()
		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			return
		}
		r.current = srv
		r.mu.Unlock()

		err := srv.Start(handler)
		if err == nil {
			return
		}
		r.mu.Lock()
		r.current = nil
		r.mu.Unlock()

		r.logger.Error("Dashboard worker failed to start", zap.Int("attempt", attempt), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
		if attempt == maxAttempts {
			r.logger.Error("Dashboard worker gave up; realtime updates are disabled")
			return
		}
		select {
		case <-time.After(r.backoff(attempt)):
		case <-r.stop:
			return
		}
	}
}

// Done is closed once the runner has started a server, given up or been shut down.
func (r *WorkerRunner) Done() <-chan struct{} { return r.done }

// Shutdown stops any pending retry and shuts down the running server.
func (r *WorkerRunner) Shutdown() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.stop)
	r.mu.Unlock()

	<-r.done
	r.mu.Lock()
	srv := r.current
	r.mu.Unlock()
	if srv != nil {
		srv.Shutdown()
	}
}
