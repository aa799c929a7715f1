package domain

import (
	"time"

	"gorm.io/gorm"
)

// InquiryEventType names the lifecycle change behind an outbox row
type InquiryEventType string

const (
	InquiryEventCreated InquiryEventType = "created"
	InquiryEventUpdated InquiryEventType = "updated"
)

// InquiryEvent is an outbox row written in the same transaction as the
// inquiry change. It stays undelivered until the lifecycle handler succeeds.
type InquiryEvent struct {
	ID           string           `gorm:"primaryKey;size:36" json:"id"`
	InquiryID    string           `gorm:"size:36;not null;index" json:"inquiry_id"`
	Type         InquiryEventType `gorm:"size:16;not null" json:"type"`
	BeforeStatus InquiryStatus    `gorm:"size:32" json:"before_status"`
	AfterStatus  InquiryStatus    `gorm:"size:32" json:"after_status"`
	// SchedulingTime is the value written alongside AfterStatus.
	SchedulingTime *string    `gorm:"size:64" json:"scheduling_time"`
	Attempts       int        `gorm:"not null;default:0" json:"attempts"`
	LastError      *string    `gorm:"type:text" json:"last_error"`
	DeliveredAt    *time.Time `gorm:"index" json:"delivered_at"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for InquiryEvent
func (InquiryEvent) TableName() string {
	return "inquiry_events"
}

// BeforeCreate assigns a ULID so events of one inquiry sort in write order
func (e *InquiryEvent) BeforeCreate(tx *gorm.DB) error {
	e.CreatedAt = tx.NowFunc()
	if e.ID == "" {
		e.ID = newULID(e.CreatedAt)
	}
	return nil
}
