package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	recordsRepo "bloomify-insights/database/repository/records"
	"bloomify-insights/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// WatchedTables are the tables whose inserts change a provider dashboard.
var WatchedTables = []string{
	recordsRepo.TableBookings,
	recordsRepo.TableEarnings,
	recordsRepo.TableReviews,
}

// TaskEnqueuer is the part of asynq.Client the subscriber needs.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Subscriber turns record inserts into dashboard recompute tasks.
type Subscriber struct {
	Store    recordsRepo.RecordStore
	Queue    TaskEnqueuer
	Logger   *zap.Logger
	Tables   []string
	Debounce time.Duration
	// Backoff is the initial delay before re-opening a failed change stream.
	Backoff time.Duration
}

// Run watches every table until ctx is done.
func (s *Subscriber) Run(ctx context.Context) {
	tables := s.Tables
	if len(tables) == 0 {
		tables = WatchedTables
	}
	var wg sync.WaitGroup
	for _, table := range tables {
		wg.Add(1)
		go func(table string) {
			defer wg.Done()
			s.watch(ctx, table)
		}(table)
	}
	wg.Wait()
}

func (s *Subscriber) watch(ctx context.Context, table string) {
	log := s.logger().With(zap.String("table", table))
	backoff := s.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	const maxBackoff = time.Minute

	for attempt := 1; ctx.Err() == nil; attempt++ {
		log.Info("Watching inserts", zap.Int("attempt", attempt))
		err := s.Store.Subscribe(ctx, table, nil, func(ctx context.Context, record models.Document) {
			s.handleInsert(ctx, table, record)
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn("Change stream failed", zap.Error(err), zap.Duration("retryIn", backoff))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *Subscriber) handleInsert(ctx context.Context, table string, record models.Document) {
	providerID := record.String("providerId")
	if providerID == "" {
		return
	}
	task, opts, err := NewRecomputeTask(RecomputePayload{ProviderID: providerID, Table: table}, s.Debounce)
	if err != nil {
		s.logger().Error("Failed to build recompute task", zap.String("providerID", providerID), zap.Error(err))
		return
	}
	_, err = s.Queue.EnqueueContext(ctx, task, opts...)
	switch {
	case err == nil:
		s.logger().Debug("Queued dashboard recompute", zap.String("providerID", providerID), zap.String("table", table))
	case errors.Is(err, asynq.ErrDuplicateTask), errors.Is(err, asynq.ErrTaskIDConflict):
		// Already pending.
	default:
		s.logger().Error("Failed to enqueue recompute task", zap.String("providerID", providerID), zap.Error(err))
	}
}

func (s *Subscriber) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
