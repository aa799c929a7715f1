// Package store is the record store adapter: inquiries, staff tasks,
// activity feeds, the lifecycle outbox and the sync audit log, on gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inquiryflow/internal/domain"
	apperrors "inquiryflow/pkg/errors"

	"gorm.io/gorm"
)

// Store wraps a gorm database
type Store struct {
	db *gorm.DB
}

// New creates a store over db
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for components that share its transactions
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Now returns the server timestamp used for every stored time
func (s *Store) Now() time.Time {
	return s.db.NowFunc()
}

// CreateInquiry stores inq with a server-assigned id and timestamp and
// enqueues its "created" lifecycle event in the same transaction.
func (s *Store) CreateInquiry(ctx context.Context, inq *domain.Inquiry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inq).Error; err != nil {
			return fmt.Errorf("failed to create inquiry: %w", err)
		}
		event := &domain.InquiryEvent{
			InquiryID:      inq.ID,
			Type:           domain.InquiryEventCreated,
			AfterStatus:    inq.Status,
			SchedulingTime: inq.SchedulingTime,
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("failed to enqueue inquiry event: %w", err)
		}
		return nil
	})
}

// GetInquiry loads one inquiry
func (s *Store) GetInquiry(ctx context.Context, id string) (*domain.Inquiry, error) {
	return getInquiry(s.db.WithContext(ctx), id)
}

func getInquiry(db *gorm.DB, id string) (*domain.Inquiry, error) {
	var inq domain.Inquiry
	if err := db.Where("id = ?", id).First(&inq).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrCodeNotFound, "inquiry %s not found", id)
		}
		return nil, fmt.Errorf("failed to get inquiry: %w", err)
	}
	return &inq, nil
}

// UpdateInquiryFields writes only the named columns. Other columns, including
// the other targets' sync groups, are left untouched.
func (s *Store) UpdateInquiryFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&domain.Inquiry{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update inquiry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrCodeNotFound, "inquiry %s not found", id)
	}
	return nil
}

// Transition is the result of a status change
type Transition struct {
	Before  *domain.Inquiry
	After   *domain.Inquiry
	EventID string
}

// TransitionInquiryStatus changes status (and optionally the scheduling time)
// and enqueues an "updated" event in one transaction. No event is written
// when nothing changed.
func (s *Store) TransitionInquiryStatus(ctx context.Context, id string, status domain.InquiryStatus, schedulingTime *string) (*Transition, error) {
	if !status.Valid() {
		return nil, apperrors.Newf(apperrors.ErrCodeValidation, "unknown inquiry status %q", status)
	}

	var out Transition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := getInquiry(tx, id)
		if err != nil {
			return err
		}

		fields := map[string]any{"status": status}
		if schedulingTime != nil {
			fields["scheduling_time"] = *schedulingTime
		}
		if err := tx.Model(&domain.Inquiry{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return fmt.Errorf("failed to update inquiry status: %w", err)
		}

		after, err := getInquiry(tx, id)
		if err != nil {
			return err
		}
		out.Before, out.After = before, after

		if before.Status == after.Status && equalStringPtr(before.SchedulingTime, after.SchedulingTime) {
			return nil
		}
		event := &domain.InquiryEvent{
			InquiryID:      id,
			Type:           domain.InquiryEventUpdated,
			BeforeStatus:   before.Status,
			AfterStatus:    after.Status,
			SchedulingTime: after.SchedulingTime,
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("failed to enqueue inquiry event: %w", err)
		}
		out.EventID = event.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// CompleteTask marks a pending task done. Only the assignee may complete it.
func (s *Store) CompleteTask(ctx context.Context, id, assignee string) (*domain.Task, error) {
	var task domain.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.ErrCodeNotFound, "task %s not found", id)
			}
			return fmt.Errorf("failed to get task: %w", err)
		}
		if task.AssignedTo != assignee {
			return apperrors.New(apperrors.ErrCodeForbidden, "task is assigned to another staff member")
		}
		if task.Status == domain.TaskStatusDone {
			return nil
		}
		now := tx.NowFunc()
		task.Status = domain.TaskStatusDone
		task.CompletedAt = &now
		return tx.Model(&domain.Task{}).Where("id = ?", id).
			Updates(map[string]any{"status": task.Status, "completed_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// MarkActivityRead marks one feed item read for its recipient
func (s *Store) MarkActivityRead(ctx context.Context, id, recipient string) (*domain.ActivityItem, error) {
	var item domain.ActivityItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.ErrCodeNotFound, "activity item %s not found", id)
			}
			return fmt.Errorf("failed to get activity item: %w", err)
		}
		if item.Recipient != recipient {
			return apperrors.New(apperrors.ErrCodeForbidden, "activity item belongs to another staff member")
		}
		if item.Read {
			return nil
		}
		now := tx.NowFunc()
		item.Read = true
		item.ReadAt = &now
		return tx.Model(&domain.ActivityItem{}).Where("id = ?", id).
			Updates(map[string]any{"read": true, "read_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
