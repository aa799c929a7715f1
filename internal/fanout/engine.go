// Package fanout turns inquiry lifecycle events into staff tasks and
// activity feed items. Every event is written as one all-or-nothing batch.
package fanout

import (
	"context"
	"fmt"
	"time"

	"inquiryflow/internal/domain"
	"inquiryflow/internal/forms"
	"inquiryflow/internal/logging"
	"inquiryflow/internal/metrics"
	"inquiryflow/internal/staff"
	"inquiryflow/internal/store"

	"go.uber.org/zap"
)

// Engine writes fan-out batches
type Engine struct {
	store        *store.Store
	staff        staff.Resolver
	dashboardURL string
	log          *zap.Logger
}

// New creates an engine
func New(s *store.Store, resolver staff.Resolver, dashboardURL string, log *zap.Logger) *Engine {
	return &Engine{
		store:        s,
		staff:        resolver,
		dashboardURL: dashboardURL,
		log:          logging.OrNop(log).Named("fanout"),
	}
}

// OnInquiryCreated gives every staff member a new-inquiry task and feed item.
// Open new-inquiry tasks of the same inquiry are closed first, so a
// re-delivered event does not leave two open tasks per member. An inquiry
// that has already moved past submitted gets no new-inquiry round.
func (e *Engine) OnInquiryCreated(ctx context.Context, inq *domain.Inquiry) error {
	log := e.log.With(zap.String("inquiry_id", inq.ID))
	if inq.Status != "" && inq.Status != domain.InquiryStatusSubmitted {
		log.Info("skipping new-inquiry round", zap.String("status", string(inq.Status)))
		return nil
	}

	members, err := e.staff.Resolve(ctx)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		log.Warn("no staff to notify of new inquiry")
		return nil
	}

	now := e.store.Now()
	batch := e.store.NewBatch()
	closeOpen(batch, inq.ID, now, domain.TaskTypeNewInquiry)
	records := e.addRound(batch, inq, members, domain.TaskTypeNewInquiry,
		fmt.Sprintf("New inquiry: %s", forms.DisplayName(inq.FormData)), nil)

	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to fan out new inquiry %s: %w", inq.ID, err)
	}
	metrics.RecordFanout(string(domain.InquiryEventCreated), records)
	log.Info("fanned out new inquiry", zap.Int("staff", len(members)))
	return nil
}

// OnInquiryUpdated acts only on a transition into intake-scheduled: it closes
// the inquiry's open new-inquiry and intake-call tasks for every member, then
// creates an intake-call round due at the scheduled time.
func (e *Engine) OnInquiryUpdated(ctx context.Context, before, after *domain.Inquiry) error {
	if before.Status == after.Status || after.Status != domain.InquiryStatusIntakeScheduled {
		return nil
	}
	log := e.log.With(zap.String("inquiry_id", after.ID))

	members, err := e.staff.Resolve(ctx)
	if err != nil {
		return err
	}

	now := e.store.Now()
	batch := e.store.NewBatch()
	closeOpen(batch, after.ID, now, domain.TaskTypeNewInquiry, domain.TaskTypeIntakeCall)

	due := ParseSchedulingTime(after.SchedulingTime)
	if due == nil && after.SchedulingTime != nil {
		log.Warn("ignoring unparsable scheduling time", zap.String("scheduling_time", *after.SchedulingTime))
	}
	records := e.addRound(batch, after, members, domain.TaskTypeIntakeCall,
		fmt.Sprintf("Intake call: %s", forms.DisplayName(after.FormData)), due)
	if len(members) == 0 {
		log.Warn("no staff to notify of scheduled intake")
	}

	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to fan out intake for %s: %w", after.ID, err)
	}
	metrics.RecordFanout(string(domain.InquiryStatusIntakeScheduled), records)
	log.Info("fanned out scheduled intake", zap.Int("staff", len(members)), zap.Timep("due", due))
	return nil
}

// closeOpen queues the bulk close of every member's open tasks of the given types
func closeOpen(batch *store.Batch, inquiryID string, now time.Time, types ...domain.TaskType) {
	batch.UpdateWhere(&domain.Task{},
		map[string]any{"status": domain.TaskStatusDone, "completed_at": now},
		"inquiry_id = ? AND status = ? AND type IN ?", inquiryID, domain.TaskStatusPending, types)
}

// addRound queues one task and one feed item per member and returns the record count
func (e *Engine) addRound(batch *store.Batch, inq *domain.Inquiry, members []staff.Member, taskType domain.TaskType, title string, due *time.Time) int {
	link := inq.DashboardLink(e.dashboardURL)
	for _, m := range members {
		task := &domain.Task{
			Title:       title,
			Type:        taskType,
			Status:      domain.TaskStatusPending,
			Priority:    domain.PriorityHigh,
			ServiceArea: inq.ServiceArea,
			InquiryID:   inq.ID,
			Link:        link,
			AssignedTo:  m.Username,
			Due:         due,
		}
		batch.Create(task)
		batch.Create(&domain.ActivityItem{
			Title:       title,
			Type:        taskType,
			ServiceArea: inq.ServiceArea,
			InquiryID:   inq.ID,
			Link:        link,
			Recipient:   m.Username,
		})
	}
	return 2 * len(members)
}
