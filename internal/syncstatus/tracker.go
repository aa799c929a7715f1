// Package syncstatus reads and writes the per-target sync sub-records of an inquiry.
package syncstatus

import (
	"context"
	"time"

	"inquiryflow/internal/domain"
	"inquiryflow/internal/store"
	apperrors "inquiryflow/pkg/errors"
)

// Status is the public view of one target's sync state
type Status struct {
	Target      domain.SyncTarget `json:"target"`
	Status      domain.SyncState  `json:"status"`
	ExternalID  string            `json:"external_id,omitempty"`
	ExternalURL string            `json:"external_url,omitempty"`
	LastError   *string           `json:"last_error"`
	ErrorCode   string            `json:"error_code,omitempty"`
	AttemptedAt *time.Time        `json:"attempted_at,omitempty"`
	SyncedAt    *time.Time        `json:"synced_at,omitempty"`
}

// Update is a partial write to one target's sub-record. Nil fields are left alone.
type Update struct {
	Status      domain.SyncState
	ExternalID  *string
	ExternalURL *string
	// ClearError resets last error and error code; Error sets them.
	ClearError  bool
	Error       *string
	ErrorCode   *apperrors.ErrorCode
	PayloadHash *string
	AttemptedAt *time.Time
	SyncedAt    *time.Time
}

// Tracker owns the sync column groups of the inquiries table
type Tracker struct {
	store *store.Store
}

// New creates a tracker
func New(s *store.Store) *Tracker {
	return &Tracker{store: s}
}

// Set writes only the target's columns, so concurrent writes for the other
// target or to the form data are never overwritten.
func (t *Tracker) Set(ctx context.Context, inquiryID string, target domain.SyncTarget, u Update) error {
	if _, ok := domain.ParseSyncTarget(string(target)); !ok {
		return apperrors.Newf(apperrors.ErrCodeUnsupported, "unknown sync target %q", target)
	}
	return t.store.UpdateInquiryFields(ctx, inquiryID, fields(target, u))
}

func fields(target domain.SyncTarget, u Update) map[string]any {
	p := domain.SyncColumnPrefix(target)
	f := map[string]any{}
	if u.Status != "" {
		f[p+"status"] = u.Status
	}
	if u.ExternalID != nil {
		f[p+"external_id"] = *u.ExternalID
	}
	if u.ExternalURL != nil {
		f[p+"external_url"] = *u.ExternalURL
	}
	if u.ClearError {
		f[p+"last_error"] = nil
		f[p+"error_code"] = ""
	}
	if u.Error != nil {
		f[p+"last_error"] = *u.Error
	}
	if u.ErrorCode != nil {
		f[p+"error_code"] = string(*u.ErrorCode)
	}
	if u.PayloadHash != nil {
		f[p+"payload_hash"] = *u.PayloadHash
	}
	if u.AttemptedAt != nil {
		f[p+"attempted_at"] = *u.AttemptedAt
	}
	if u.SyncedAt != nil {
		f[p+"synced_at"] = *u.SyncedAt
	}
	return f
}

// Get returns one target's status, synthesizing never-synced when absent
func (t *Tracker) Get(ctx context.Context, inquiryID string, target domain.SyncTarget) (Status, error) {
	inq, err := t.store.GetInquiry(ctx, inquiryID)
	if err != nil {
		return Status{}, err
	}
	return FromRecord(target, inq.SyncRecordFor(target)), nil
}

// GetAll returns every target's status
func (t *Tracker) GetAll(ctx context.Context, inquiryID string) (map[domain.SyncTarget]Status, error) {
	inq, err := t.store.GetInquiry(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.SyncTarget]Status, len(domain.SyncTargets))
	for _, target := range domain.SyncTargets {
		out[target] = FromRecord(target, inq.SyncRecordFor(target))
	}
	return out, nil
}

// FromRecord converts a stored sub-record
func FromRecord(target domain.SyncTarget, rec domain.SyncRecord) Status {
	if rec.Status == "" {
		return Status{Target: target, Status: domain.SyncStateNeverSynced}
	}
	return Status{
		Target:      target,
		Status:      rec.Status,
		ExternalID:  rec.ExternalID,
		ExternalURL: rec.ExternalURL,
		LastError:   rec.LastError,
		ErrorCode:   rec.ErrorCode,
		AttemptedAt: rec.AttemptedAt,
		SyncedAt:    rec.SyncedAt,
	}
}
