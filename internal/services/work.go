package services

import (
	"context"

	"inquiryflow/internal/domain"
	"inquiryflow/internal/store"
	apperrors "inquiryflow/pkg/errors"
)

const defaultListLimit = 50

// WorkService serves a staff member's own tasks and activity feed
type WorkService struct {
	store *store.Store
}

// NewWorkService creates a new work service
func NewWorkService(s *store.Store) *WorkService {
	return &WorkService{store: s}
}

func currentUser(ctx context.Context) (*domain.User, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "authentication required")
	}
	return user, nil
}

// ListTasks returns the caller's tasks, pending only unless status is given
func (s *WorkService) ListTasks(ctx context.Context, r Request) (any, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	limit, err := r.QueryInt("limit", defaultListLimit)
	if err != nil {
		return nil, err
	}

	q := store.TaskQuery{
		AssignedTo: user.Username,
		InquiryID:  r.Query("inquiry_id"),
		Status:     domain.TaskStatusPending,
		Limit:      limit,
	}
	switch status := domain.TaskStatus(r.Query("status")); status {
	case "":
	case "all":
		q.Status = ""
	case domain.TaskStatusPending, domain.TaskStatusDone:
		q.Status = status
	default:
		return nil, apperrors.Newf(apperrors.ErrCodeBadRequest, "unknown task status %q", status)
	}
	if t := r.Query("type"); t != "" {
		q.Types = []domain.TaskType{domain.TaskType(t)}
	}
	return s.store.QueryTasks(ctx, q)
}

// CompleteTask marks one of the caller's tasks done
func (s *WorkService) CompleteTask(ctx context.Context, r Request) (any, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.CompleteTask(ctx, r.Param("id"), user.Username)
}

// ListActivity returns the caller's feed, newest first
func (s *WorkService) ListActivity(ctx context.Context, r Request) (any, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	limit, err := r.QueryInt("limit", defaultListLimit)
	if err != nil {
		return nil, err
	}
	return s.store.QueryActivity(ctx, store.ActivityQuery{
		Recipient:  user.Username,
		UnreadOnly: r.Query("unread") == "true",
		Limit:      limit,
	})
}

// MarkRead marks one of the caller's feed items read
func (s *WorkService) MarkRead(ctx context.Context, r Request) (any, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.MarkActivityRead(ctx, r.Param("id"), user.Username)
}
