package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"likes_watcher/internal/domain"
)

// Syncer defines the interface for sync operations.
type Syncer interface {
	SyncAccount(ctx context.Context, accountID int64) (*domain.SyncResult, error)
}

// Scheduler triggers a sync run for every configured account on a fixed
// period. The engine holds no locks of its own, so the scheduler serializes
// runs per account; runs for distinct accounts proceed concurrently.
type Scheduler struct {
	syncer     Syncer
	accounts   []int64
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewScheduler(syncer Syncer, accounts []int64, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:     syncer,
		accounts:   accounts,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
		locks:      make(map[int64]*sync.Mutex),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"interval", s.interval,
		"accounts", len(s.accounts),
	)

	s.runAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Scheduler) runAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, accountID := range s.accounts {
		wg.Add(1)
		go func(accountID int64) {
			defer wg.Done()
			s.runAccount(ctx, accountID)
		}(accountID)
	}
	wg.Wait()
}

func (s *Scheduler) runAccount(ctx context.Context, accountID int64) {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	syncCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	if _, err := s.syncer.SyncAccount(syncCtx, accountID); err != nil {
		s.logger.Error("sync failed", "account_id", accountID, "error", err)
	}
}

func (s *Scheduler) accountLock(accountID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	return lock
}
