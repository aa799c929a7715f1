package store

import (
	"context"
	"fmt"

	"inquiryflow/internal/domain"
)

// TaskQuery filters tasks. Zero fields do not filter.
type TaskQuery struct {
	AssignedTo string
	InquiryID  string
	Status     domain.TaskStatus
	Types      []domain.TaskType
	Limit      int
}

// QueryTasks returns matching tasks, newest first
func (s *Store) QueryTasks(ctx context.Context, q TaskQuery) ([]domain.Task, error) {
	db := s.db.WithContext(ctx).Model(&domain.Task{})
	if q.AssignedTo != "" {
		db = db.Where("assigned_to = ?", q.AssignedTo)
	}
	if q.InquiryID != "" {
		db = db.Where("inquiry_id = ?", q.InquiryID)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if len(q.Types) > 0 {
		db = db.Where("type IN ?", q.Types)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var tasks []domain.Task
	if err := db.Order("created_at DESC").Order("id").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	return tasks, nil
}

// ActivityQuery filters activity items
type ActivityQuery struct {
	Recipient  string
	InquiryID  string
	UnreadOnly bool
	Limit      int
}

// QueryActivity returns matching feed items, newest first
func (s *Store) QueryActivity(ctx context.Context, q ActivityQuery) ([]domain.ActivityItem, error) {
	db := s.db.WithContext(ctx).Model(&domain.ActivityItem{})
	if q.Recipient != "" {
		db = db.Where("recipient = ?", q.Recipient)
	}
	if q.InquiryID != "" {
		db = db.Where("inquiry_id = ?", q.InquiryID)
	}
	if q.UnreadOnly {
		db = db.Where("read = ?", false)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var items []domain.ActivityItem
	if err := db.Order("created_at DESC").Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	return items, nil
}

// InquiryQuery filters inquiries. SyncState and SyncErrorCode apply to
// SyncTarget's column group and are ignored without it.
type InquiryQuery struct {
	ServiceArea   domain.ServiceArea
	Status        domain.InquiryStatus
	SyncTarget    domain.SyncTarget
	SyncState     domain.SyncState
	SyncErrorCode string
	Limit         int
	OldestFirst   bool
}

// QueryInquiries returns matching inquiries, newest first unless OldestFirst
func (s *Store) QueryInquiries(ctx context.Context, q InquiryQuery) ([]domain.Inquiry, error) {
	db := s.db.WithContext(ctx).Model(&domain.Inquiry{})
	if q.ServiceArea != "" {
		db = db.Where("service_area = ?", q.ServiceArea)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.SyncTarget != "" {
		if _, ok := domain.ParseSyncTarget(string(q.SyncTarget)); !ok {
			return nil, fmt.Errorf("unknown sync target %q", q.SyncTarget)
		}
		prefix := domain.SyncColumnPrefix(q.SyncTarget)
		if q.SyncState != "" {
			db = db.Where(prefix+"status = ?", q.SyncState)
		}
		if q.SyncErrorCode != "" {
			db = db.Where(prefix+"error_code = ?", q.SyncErrorCode)
		}
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	order := "submitted_at DESC"
	if q.OldestFirst {
		order = "submitted_at ASC"
	}
	var out []domain.Inquiry
	if err := db.Order(order).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to query inquiries: %w", err)
	}
	return out, nil
}
