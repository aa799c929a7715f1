package services

import (
	"context"

	"inquiryflow/internal/crmsync"
	"inquiryflow/internal/domain"
	"inquiryflow/internal/duplicates"
	"inquiryflow/internal/store"
	"inquiryflow/internal/syncstatus"
	apperrors "inquiryflow/pkg/errors"
)

// SyncStatusResult is the per-target sync state of an inquiry
type SyncStatusResult struct {
	InquiryID string                                  `json:"inquiry_id"`
	Targets   map[domain.SyncTarget]syncstatus.Status `json:"targets"`
}

// SyncService exposes CRM sync state, manual retry and duplicate checks
type SyncService struct {
	store      *store.Store
	orch       *crmsync.Orchestrator
	duplicates *duplicates.Service
}

// NewSyncService creates a new sync service
func NewSyncService(s *store.Store, orch *crmsync.Orchestrator, dup *duplicates.Service) *SyncService {
	return &SyncService{store: s, orch: orch, duplicates: dup}
}

// Status returns every target's sync record
func (s *SyncService) Status(ctx context.Context, r Request) (any, error) {
	id := r.Param("id")
	all, err := s.orch.Tracker().GetAll(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SyncStatusResult{InquiryID: id, Targets: all}, nil
}

// Retry re-runs one target's sync. The outcome is returned as a result,
// failed or not; only a missing inquiry or unknown target is an error.
func (s *SyncService) Retry(ctx context.Context, r Request) (any, error) {
	target, ok := domain.ParseSyncTarget(r.Param("target"))
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeBadRequest, "unknown sync target %q", r.Param("target"))
	}
	res := s.orch.Retry(ctx, r.Param("id"), target)
	if res.ErrorCode == apperrors.ErrCodeNotFound {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "inquiry not found")
	}
	return res, nil
}

// Attempts lists the sync audit log of an inquiry
func (s *SyncService) Attempts(ctx context.Context, r Request) (any, error) {
	id := r.Param("id")
	if _, err := s.store.GetInquiry(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListSyncAttempts(ctx, id)
}

// FindDuplicates checks the lead index for a name and optional email
func (s *SyncService) FindDuplicates(ctx context.Context, r Request) (any, error) {
	name := r.Query("name")
	if name == "" {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "name is required")
	}
	if s.duplicates == nil {
		return nil, apperrors.New(apperrors.ErrCodeUnsupported, "duplicate search is not configured")
	}
	return s.duplicates.FindDuplicates(ctx, name, r.Query("email")), nil
}
