package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"inquiryflow/internal/crmsync"
	"inquiryflow/internal/database/dbtest"
	"inquiryflow/internal/domain"
	"inquiryflow/internal/fanout"
	"inquiryflow/internal/staff"
	"inquiryflow/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeFanOut struct {
	mu      sync.Mutex
	created []string
	updates [][2]*domain.Inquiry
	err     error
}

func (f *fakeFanOut) OnInquiryCreated(_ context.Context, inq *domain.Inquiry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, inq.ID)
	return nil
}

func (f *fakeFanOut) OnInquiryUpdated(_ context.Context, before, after *domain.Inquiry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, [2]*domain.Inquiry{before, after})
	return nil
}

type fakeSyncer struct {
	mu     sync.Mutex
	synced map[string][]domain.SyncTarget
}

func (f *fakeSyncer) Targets(formType domain.FormType) []domain.SyncTarget {
	if formType == domain.FormTypeReferral {
		return []domain.SyncTarget{domain.SyncTargetMonday}
	}
	return []domain.SyncTarget{domain.SyncTargetInsightly, domain.SyncTargetMonday}
}

func (f *fakeSyncer) SyncAll(_ context.Context, inquiryID string, targets []domain.SyncTarget) []crmsync.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.synced == nil {
		f.synced = map[string][]domain.SyncTarget{}
	}
	f.synced[inquiryID] = append(f.synced[inquiryID], targets...)
	out := make([]crmsync.Result, len(targets))
	for i, t := range targets {
		out[i] = crmsync.Result{Target: t, Success: t == domain.SyncTargetMonday}
	}
	return out
}

func newInquiry(t *testing.T, s *store.Store, formType domain.FormType) *domain.Inquiry {
	t.Helper()
	inq := &domain.Inquiry{FormType: formType, ServiceArea: "counseling", FormData: datatypes.JSONMap{"name": "Ada"}}
	require.NoError(t, s.CreateInquiry(context.Background(), inq))
	return inq
}

func TestHandlerCreatedFansOutThenSyncs(t *testing.T) {
	fan, syncer := &fakeFanOut{}, &fakeSyncer{}
	h := NewHandler(fan, syncer, nil)
	inq := &domain.Inquiry{ID: "i1", FormType: domain.FormTypeReferral}

	require.NoError(t, h.OnInquiryCreated(context.Background(), inq))
	assert.Equal(t, []string{"i1"}, fan.created)
	assert.Equal(t, []domain.SyncTarget{domain.SyncTargetMonday}, syncer.synced["i1"])
}

func TestHandlerFanOutErrorSkipsSync(t *testing.T) {
	fan, syncer := &fakeFanOut{err: errors.New("batch failed")}, &fakeSyncer{}
	h := NewHandler(fan, syncer, nil)

	err := h.OnInquiryCreated(context.Background(), &domain.Inquiry{ID: "i1", FormType: domain.FormTypeContact})
	assert.Error(t, err)
	assert.Empty(t, syncer.synced)
}

func TestHandlerUpdateDoesNotSync(t *testing.T) {
	fan, syncer := &fakeFanOut{}, &fakeSyncer{}
	h := NewHandler(fan, syncer, nil)
	before := &domain.Inquiry{ID: "i1", Status: domain.InquiryStatusSubmitted}
	after := &domain.Inquiry{ID: "i1", Status: domain.InquiryStatusIntakeScheduled}

	require.NoError(t, h.OnInquiryUpdated(context.Background(), before, after))
	assert.Len(t, fan.updates, 1)
	assert.Empty(t, syncer.synced)
}

func TestDispatchOnceDeliversInOrder(t *testing.T) {
	s := store.New(dbtest.New(t))
	ctx := context.Background()
	fan, syncer := &fakeFanOut{}, &fakeSyncer{}
	d := NewDispatcher(s, NewHandler(fan, syncer, nil), DispatcherOptions{}, nil)

	inq := newInquiry(t, s, domain.FormTypeContact)
	when := "2026-03-01T15:00:00Z"
	_, err := s.TransitionInquiryStatus(ctx, inq.ID, domain.InquiryStatusIntakeScheduled, &when)
	require.NoError(t, err)
	_, err = s.TransitionInquiryStatus(ctx, inq.ID, domain.InquiryStatusClosed, nil)
	require.NoError(t, err)

	n, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, []string{inq.ID}, fan.created)
	assert.Len(t, syncer.synced[inq.ID], 2)
	require.Len(t, fan.updates, 2)

	// Each update is seen with its own statuses, not the latest row.
	first := fan.updates[0]
	assert.Equal(t, domain.InquiryStatusSubmitted, first[0].Status)
	assert.Equal(t, domain.InquiryStatusIntakeScheduled, first[1].Status)
	require.NotNil(t, first[1].SchedulingTime)
	assert.Equal(t, when, *first[1].SchedulingTime)
	assert.Equal(t, domain.InquiryStatusClosed, fan.updates[1][1].Status)

	n, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDispatchOnceRedeliversFailures(t *testing.T) {
	s := store.New(dbtest.New(t))
	ctx := context.Background()
	fan := &fakeFanOut{err: errors.New("write quota exceeded")}
	d := NewDispatcher(s, NewHandler(fan, nil, nil), DispatcherOptions{MaxAttempts: 3}, nil)
	inq := newInquiry(t, s, domain.FormTypeIntake)

	n, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	events, err := s.PendingEvents(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].Attempts)
	require.NotNil(t, events[0].LastError)
	assert.Contains(t, *events[0].LastError, "quota")

	fan.err = nil
	n, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{inq.ID}, fan.created)
}

func TestDispatcherLoop(t *testing.T) {
	s := store.New(dbtest.New(t))
	fan := &fakeFanOut{}
	d := NewDispatcher(s, NewHandler(fan, nil, nil), DispatcherOptions{PollInterval: 10 * time.Millisecond}, nil)
	inq := newInquiry(t, s, domain.FormTypeContact)

	d.Start()
	defer d.Stop()

	assert.Eventually(t, func() bool {
		fan.mu.Lock()
		defer fan.mu.Unlock()
		return len(fan.created) == 1 && fan.created[0] == inq.ID
	}, 2*time.Second, 10*time.Millisecond)
}

// flakyStaff fails its first lookup
type flakyStaff struct {
	mu    sync.Mutex
	calls int
}

func (f *flakyStaff) Resolve(context.Context) ([]staff.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == 1 {
		return nil, errors.New("users table unavailable")
	}
	return []staff.Member{{Username: "alice"}, {Username: "bob"}}, nil
}

func TestDispatchHoldsLaterEventsOfFailedInquiry(t *testing.T) {
	s := store.New(dbtest.New(t))
	ctx := context.Background()
	engine := fanout.New(s, &flakyStaff{}, "https://app.example/dashboard", nil)
	d := NewDispatcher(s, NewHandler(engine, nil, nil), DispatcherOptions{}, nil)

	inq := newInquiry(t, s, domain.FormTypeIntake)
	when := "2026-03-01T15:00:00Z"
	_, err := s.TransitionInquiryStatus(ctx, inq.ID, domain.InquiryStatusIntakeScheduled, &when)
	require.NoError(t, err)

	// The created event fails, so the update waits behind it.
	n, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	events, err := s.PendingEvents(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Zero(t, events[1].Attempts)

	n, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	open, err := s.QueryTasks(ctx, store.TaskQuery{InquiryID: inq.ID, Status: domain.TaskStatusPending})
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, task := range open {
		assert.Equal(t, domain.TaskTypeIntakeCall, task.Type)
	}
}
