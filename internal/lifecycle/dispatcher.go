package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inquiryflow/internal/domain"
	"inquiryflow/internal/logging"
	"inquiryflow/internal/metrics"
	"inquiryflow/internal/store"
	apperrors "inquiryflow/pkg/errors"

	"go.uber.org/zap"
)

// DispatcherOptions tunes the outbox poll loop
type DispatcherOptions struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxAttempts stops re-delivery of an event after that many failures; 0 never stops.
	MaxAttempts int
}

// Dispatcher delivers outbox events to the handler. An event stays pending
// until the handler succeeds, so a failed fan-out is re-delivered whole.
type Dispatcher struct {
	store   *store.Store
	handler *Handler
	opts    DispatcherOptions
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher
func NewDispatcher(s *store.Store, h *Handler, opts DispatcherOptions, log *zap.Logger) *Dispatcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		store:   s,
		handler: h,
		opts:    opts,
		log:     logging.OrNop(log).Named("dispatcher"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins the poll loop
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.loop()
	d.log.Info("dispatcher started", zap.Duration("poll_interval", d.opts.PollInterval))
}

// Stop cancels the loop and waits for the in-flight pass
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
	d.log.Info("dispatcher stopped")
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(d.ctx); err != nil && d.ctx.Err() == nil {
				d.log.Error("outbox dispatch failed", zap.Error(err))
			}
		}
	}
}

// DispatchOnce delivers one batch of pending events in order and returns
// how many were delivered.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	events, err := d.store.PendingEvents(ctx, d.opts.BatchSize, d.opts.MaxAttempts)
	if err != nil {
		return 0, err
	}

	delivered := 0
	// An inquiry's events are delivered in order: after one fails, its later
	// events wait for the next pass.
	held := make(map[string]bool)
	for i := range events {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		ev := &events[i]
		if held[ev.InquiryID] {
			continue
		}
		log := d.log.With(zap.String("event_id", ev.ID), zap.String("inquiry_id", ev.InquiryID), zap.String("type", string(ev.Type)))

		if err := d.deliver(ctx, ev); err != nil {
			held[ev.InquiryID] = true
			metrics.RecordOutboxDelivery(false)
			log.Warn("event delivery failed", zap.Int("attempt", ev.Attempts+1), zap.Error(err))
			if markErr := d.store.MarkEventFailed(ctx, ev.ID, err); markErr != nil {
				return delivered, markErr
			}
			continue
		}
		if err := d.store.MarkEventDelivered(ctx, ev.ID); err != nil {
			return delivered, err
		}
		metrics.RecordOutboxDelivery(true)
		delivered++
	}
	return delivered, nil
}

// deliver rebuilds the inquiry as the event saw it and invokes the handler
func (d *Dispatcher) deliver(ctx context.Context, ev *domain.InquiryEvent) error {
	current, err := d.store.GetInquiry(ctx, ev.InquiryID)
	if err != nil {
		return err
	}

	switch ev.Type {
	case domain.InquiryEventCreated:
		return d.handler.OnInquiryCreated(ctx, current)
	case domain.InquiryEventUpdated:
		before, after := snapshots(current, ev)
		return d.handler.OnInquiryUpdated(ctx, before, after)
	}
	return apperrors.New(apperrors.ErrCodeUnsupported, fmt.Sprintf("unknown event type %q", ev.Type))
}

// snapshots returns the before and after views of an update event. The event
// carries the statuses and scheduling time; everything else is current.
func snapshots(current *domain.Inquiry, ev *domain.InquiryEvent) (before, after *domain.Inquiry) {
	a := *current
	a.Status = ev.AfterStatus
	if ev.SchedulingTime != nil {
		a.SchedulingTime = ev.SchedulingTime
	}
	b := a
	b.Status = ev.BeforeStatus
	return &b, &a
}
