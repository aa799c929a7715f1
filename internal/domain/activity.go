package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityItem is a notification in one staff member's feed
type ActivityItem struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	Title       string      `gorm:"not null" json:"title"`
	Type        TaskType    `gorm:"size:32;not null" json:"type"`
	ServiceArea ServiceArea `gorm:"size:64" json:"service_area"`
	InquiryID   string      `gorm:"size:36;index" json:"inquiry_id"`
	Link        string      `json:"link"`
	Recipient   string      `gorm:"size:100;not null;index" json:"recipient"`
	Read        bool        `gorm:"default:false" json:"read"`
	CreatedAt   time.Time   `json:"created_at"`
	ReadAt      *time.Time  `json:"read_at"`
}

// TableName specifies the table name for ActivityItem
func (ActivityItem) TableName() string {
	return "activity_items"
}

// BeforeCreate hook
func (a *ActivityItem) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = tx.NowFunc()
	return nil
}
