package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FormType selects the form variant carried in Inquiry.FormData
type FormType string

const (
	FormTypeContact  FormType = "contact"
	FormTypeIntake   FormType = "intake"
	FormTypeReferral FormType = "referral"
)

// ServiceArea partitions inquiries by program
type ServiceArea string

// InquiryStatus is the lifecycle state of an inquiry
type InquiryStatus string

const (
	InquiryStatusSubmitted       InquiryStatus = "submitted"
	InquiryStatusScheduled       InquiryStatus = "scheduled"
	InquiryStatusIntakeScheduled InquiryStatus = "intake-scheduled"
	InquiryStatusClosed          InquiryStatus = "closed"
)

// Valid reports whether s is a known status
func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryStatusSubmitted, InquiryStatusScheduled, InquiryStatusIntakeScheduled, InquiryStatusClosed:
		return true
	}
	return false
}

// SyncTarget names an external CRM
type SyncTarget string

const (
	SyncTargetInsightly SyncTarget = "insightly"
	SyncTargetMonday    SyncTarget = "monday"
)

// SyncTargets lists every supported target in a stable order
var SyncTargets = []SyncTarget{SyncTargetInsightly, SyncTargetMonday}

// ParseSyncTarget validates a target name
func ParseSyncTarget(s string) (SyncTarget, bool) {
	for _, t := range SyncTargets {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// SyncState is the status of one target's sync record
type SyncState string

const (
	SyncStateNeverSynced SyncState = "never-synced"
	SyncStatePending     SyncState = "pending"
	SyncStateSuccess     SyncState = "success"
	SyncStateFailed      SyncState = "failed"
)

// SyncRecord is one target's sync sub-record, stored as its own column group.
// An empty Status means the target was never attempted.
type SyncRecord struct {
	Status      SyncState  `gorm:"size:20" json:"status"`
	ExternalID  string     `gorm:"size:64" json:"external_id,omitempty"`
	ExternalURL string     `json:"external_url,omitempty"`
	LastError   *string    `gorm:"type:text" json:"last_error"`
	ErrorCode   string     `gorm:"size:40" json:"error_code,omitempty"`
	PayloadHash string     `gorm:"size:64" json:"payload_hash,omitempty"`
	AttemptedAt *time.Time `json:"attempted_at,omitempty"`
	SyncedAt    *time.Time `json:"synced_at,omitempty"`
}

// Inquiry represents a service request, submitted online or entered by staff
type Inquiry struct {
	ID             string            `gorm:"primaryKey;size:36" json:"id"`
	FormType       FormType          `gorm:"size:32;not null" json:"form_type"`
	ServiceArea    ServiceArea       `gorm:"size:64;not null;index" json:"service_area"`
	FormData       datatypes.JSONMap `gorm:"not null" json:"form_data"`
	Status         InquiryStatus     `gorm:"size:32;not null;index" json:"status"`
	SchedulingTime *string           `gorm:"size:64" json:"scheduling_time"`
	SubmittedAt    time.Time         `gorm:"index" json:"submitted_at"`
	SubmittedBy    string            `gorm:"size:100" json:"submitted_by"`
	Reviewed       bool              `gorm:"default:false" json:"reviewed"`
	UpdatedAt      time.Time         `json:"updated_at"`

	Insightly SyncRecord `gorm:"embedded;embeddedPrefix:insightly_" json:"insightly_sync"`
	Monday    SyncRecord `gorm:"embedded;embeddedPrefix:monday_" json:"monday_sync"`
}

// TableName specifies the table name for Inquiry
func (Inquiry) TableName() string {
	return "inquiries"
}

// BeforeCreate assigns the id and server timestamps
func (i *Inquiry) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	now := tx.NowFunc()
	i.SubmittedAt = now
	i.UpdatedAt = now
	if i.Status == "" {
		i.Status = InquiryStatusSubmitted
	}
	if i.SubmittedBy == "" {
		i.SubmittedBy = "anonymous"
	}
	return nil
}

// SyncRecordFor returns the sub-record of the given target
func (i *Inquiry) SyncRecordFor(target SyncTarget) SyncRecord {
	switch target {
	case SyncTargetInsightly:
		return i.Insightly
	case SyncTargetMonday:
		return i.Monday
	}
	return SyncRecord{}
}

// SyncColumnPrefix is the column prefix of a target's sub-record
func SyncColumnPrefix(target SyncTarget) string {
	return string(target) + "_"
}

// DashboardLink is the staff dashboard URL of the inquiry under base
func (i *Inquiry) DashboardLink(base string) string {
	return base + "/inquiries/" + string(i.ServiceArea) + "/" + i.ID
}
