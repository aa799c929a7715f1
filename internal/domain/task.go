package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskType classifies a staff task
type TaskType string

const (
	TaskTypeNewInquiry  TaskType = "new-inquiry"
	TaskTypeIntakeCall  TaskType = "intake-call"
	TaskTypeFollowUp    TaskType = "follow-up"
	TaskTypeReviewEvals TaskType = "review-evals"
)

// TaskStatus is pending until the assignee (or a superseding event) closes it
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
)

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task is a work item owned by one staff member. Tasks are never deleted.
type Task struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	Title       string      `gorm:"not null" json:"title"`
	Type        TaskType    `gorm:"size:32;not null;index:idx_task_open" json:"type"`
	Status      TaskStatus  `gorm:"size:16;not null;index:idx_task_open" json:"status"`
	Priority    Priority    `gorm:"size:16;not null" json:"priority"`
	ServiceArea ServiceArea `gorm:"size:64" json:"service_area"`
	InquiryID   string      `gorm:"size:36;index;index:idx_task_open" json:"inquiry_id"`
	Link        string      `json:"link"`
	AssignedTo  string      `gorm:"size:100;not null;index" json:"assigned_to"`
	CreatedAt   time.Time   `json:"created_at"`
	Due         *time.Time  `json:"due"`
	CompletedAt *time.Time  `json:"completed_at"`
}

// TableName specifies the table name for Task
func (Task) TableName() string {
	return "tasks"
}

// BeforeCreate fills defaults
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	t.CreatedAt = tx.NowFunc()
	return nil
}
