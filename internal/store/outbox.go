package store

import (
	"context"
	"fmt"

	"inquiryflow/internal/domain"

	"gorm.io/gorm"
)

// PendingEvents returns undelivered lifecycle events in creation order.
// maxAttempts <= 0 disables the attempt cap.
func (s *Store) PendingEvents(ctx context.Context, limit, maxAttempts int) ([]domain.InquiryEvent, error) {
	db := s.db.WithContext(ctx).Where("delivered_at IS NULL")
	if maxAttempts > 0 {
		db = db.Where("attempts < ?", maxAttempts)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	var events []domain.InquiryEvent
	if err := db.Order("created_at ASC").Order("id").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to load pending events: %w", err)
	}
	return events, nil
}

// MarkEventDelivered records a successful delivery
func (s *Store) MarkEventDelivered(ctx context.Context, id string) error {
	now := s.Now()
	return s.db.WithContext(ctx).Model(&domain.InquiryEvent{}).Where("id = ?", id).
		Updates(map[string]any{
			"delivered_at": now,
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   nil,
		}).Error
}

// MarkEventFailed leaves the event pending and records the failure
func (s *Store) MarkEventFailed(ctx context.Context, id string, cause error) error {
	msg := cause.Error()
	return s.db.WithContext(ctx).Model(&domain.InquiryEvent{}).Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
		}).Error
}

// RecordSyncAttempt appends to the sync audit log
func (s *Store) RecordSyncAttempt(ctx context.Context, attempt *domain.SyncAttempt) error {
	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to record sync attempt: %w", err)
	}
	return nil
}

// ListSyncAttempts returns an inquiry's attempts, oldest first
func (s *Store) ListSyncAttempts(ctx context.Context, inquiryID string) ([]domain.SyncAttempt, error) {
	var attempts []domain.SyncAttempt
	err := s.db.WithContext(ctx).Where("inquiry_id = ?", inquiryID).
		Order("started_at ASC").Order("id").Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sync attempts: %w", err)
	}
	return attempts, nil
}
