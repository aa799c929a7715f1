package domain

import (
	"time"

	"gorm.io/gorm"
)

// SyncOperation is the CRM call made by an attempt
type SyncOperation string

const (
	SyncOperationNone   SyncOperation = "none"
	SyncOperationCreate SyncOperation = "create"
	SyncOperationUpdate SyncOperation = "update"
)

// SyncTrigger records what started an attempt
type SyncTrigger string

const (
	SyncTriggerEvent SyncTrigger = "event"
	SyncTriggerRetry SyncTrigger = "retry"
	SyncTriggerSweep SyncTrigger = "sweep"
)

// SyncAttempt is an append-only audit row, one per orchestrator run.
// ULID ids sort by start time.
type SyncAttempt struct {
	ID         string        `gorm:"primaryKey;size:26" json:"id"`
	InquiryID  string        `gorm:"size:36;not null;index" json:"inquiry_id"`
	Target     SyncTarget    `gorm:"size:32;not null" json:"target"`
	Operation  SyncOperation `gorm:"size:16;not null" json:"operation"`
	Outcome    SyncState     `gorm:"size:16;not null" json:"outcome"`
	ExternalID string        `gorm:"size:64" json:"external_id,omitempty"`
	ErrorCode  string        `gorm:"size:40" json:"error_code,omitempty"`
	Error      string        `gorm:"type:text" json:"error,omitempty"`
	Trigger    SyncTrigger   `gorm:"size:16;not null" json:"trigger"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// TableName specifies the table name for SyncAttempt
func (SyncAttempt) TableName() string {
	return "sync_attempts"
}

// BeforeCreate hook
func (a *SyncAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.StartedAt.IsZero() {
		a.StartedAt = tx.NowFunc()
	}
	if a.ID == "" {
		a.ID = newULID(a.StartedAt)
	}
	return nil
}
