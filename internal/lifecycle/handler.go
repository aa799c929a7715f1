// Package lifecycle delivers inquiry lifecycle events to fan-out and CRM sync.
package lifecycle

import (
	"context"

	"inquiryflow/internal/crmsync"
	"inquiryflow/internal/domain"
	"inquiryflow/internal/logging"

	"go.uber.org/zap"
)

// FanOut is the task and activity side of an event
type FanOut interface {
	OnInquiryCreated(ctx context.Context, inq *domain.Inquiry) error
	OnInquiryUpdated(ctx context.Context, before, after *domain.Inquiry) error
}

// Syncer is the CRM side of an event
type Syncer interface {
	Targets(formType domain.FormType) []domain.SyncTarget
	SyncAll(ctx context.Context, inquiryID string, targets []domain.SyncTarget) []crmsync.Result
}

// Handler reacts to lifecycle events
type Handler struct {
	fanout FanOut
	sync   Syncer
	log    *zap.Logger
}

// NewHandler creates a handler. A nil syncer disables CRM sync.
func NewHandler(fanout FanOut, sync Syncer, log *zap.Logger) *Handler {
	return &Handler{fanout: fanout, sync: sync, log: logging.OrNop(log).Named("lifecycle")}
}

// OnInquiryCreated fans out, then syncs every applicable target. Only the
// fan-out error is returned; sync outcomes are recorded on the inquiry.
func (h *Handler) OnInquiryCreated(ctx context.Context, inq *domain.Inquiry) error {
	if err := h.fanout.OnInquiryCreated(ctx, inq); err != nil {
		return err
	}
	if h.sync == nil {
		return nil
	}

	targets := h.sync.Targets(inq.FormType)
	if len(targets) == 0 {
		h.log.Debug("no sync targets for form type", zap.String("inquiry_id", inq.ID), zap.String("form_type", string(inq.FormType)))
		return nil
	}
	for _, res := range h.sync.SyncAll(ctx, inq.ID, targets) {
		if !res.Success {
			h.log.Info("inquiry recorded with failed crm sync",
				zap.String("inquiry_id", inq.ID),
				zap.String("target", string(res.Target)),
				zap.String("error_code", string(res.ErrorCode)))
		}
	}
	return nil
}

// OnInquiryUpdated fans out only. Form data is frozen after submission, so an
// update never re-syncs implicitly.
func (h *Handler) OnInquiryUpdated(ctx context.Context, before, after *domain.Inquiry) error {
	return h.fanout.OnInquiryUpdated(ctx, before, after)
}
