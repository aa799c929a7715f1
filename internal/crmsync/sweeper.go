package crmsync

import (
	"context"
	"sync"
	"time"

	"inquiryflow/internal/domain"
	"inquiryflow/internal/logging"
	"inquiryflow/internal/store"
	apperrors "inquiryflow/pkg/errors"

	"go.uber.org/zap"
)

// DefaultSweepBatchSize bounds one sweep pass per target
const DefaultSweepBatchSize = 25

// Sweeper periodically re-runs syncs that failed with EXTERNAL_UNAVAILABLE.
// Rejected, unsupported and invalid payload failures are never retried.
type Sweeper struct {
	orch      *Orchestrator
	store     *store.Store
	interval  time.Duration
	batchSize int
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a sweeper. It does nothing until Start.
func NewSweeper(orch *Orchestrator, interval time.Duration, batchSize int, log *zap.Logger) *Sweeper {
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		orch:      orch,
		store:     orch.store,
		interval:  interval,
		batchSize: batchSize,
		log:       logging.OrNop(log).Named("sweeper"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the sweep loop. A non-positive interval leaves it disabled.
func (s *Sweeper) Start() {
	if s.interval <= 0 {
		s.log.Info("sync sweeper disabled")
		return
	}
	s.wg.Add(1)
	go s.loop()
	s.log.Info("sync sweeper started", zap.Duration("interval", s.interval))
}

// Stop cancels the loop and waits for an in-flight pass
func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(s.ctx); err != nil {
				s.log.Error("sync sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce retries the oldest retryable failures of every configured
// target and returns the results in target order.
func (s *Sweeper) SweepOnce(ctx context.Context) ([]Result, error) {
	var results []Result
	for _, target := range domain.SyncTargets {
		if _, ok := s.orch.clients[target]; !ok {
			continue
		}
		inquiries, err := s.store.QueryInquiries(ctx, store.InquiryQuery{
			SyncTarget:    target,
			SyncState:     domain.SyncStateFailed,
			SyncErrorCode: string(apperrors.ErrCodeExternalUnavailable),
			Limit:         s.batchSize,
			OldestFirst:   true,
		})
		if err != nil {
			return results, err
		}
		for _, inq := range inquiries {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			results = append(results, s.orch.run(ctx, inq.ID, target, domain.SyncTriggerSweep))
		}
	}
	if len(results) > 0 {
		s.log.Info("sync sweep finished", zap.Int("retried", len(results)))
	}
	return results, nil
}
