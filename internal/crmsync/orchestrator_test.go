package crmsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"inquiryflow/internal/crm"
	"inquiryflow/internal/database/dbtest"
	"inquiryflow/internal/domain"
	"inquiryflow/internal/store"
	apperrors "inquiryflow/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type call struct {
	op         string
	externalID string
}

type fakeClient struct {
	mu    sync.Mutex
	calls []call
	err   error
	next  int
}

func (f *fakeClient) Create(_ context.Context, _ crm.Payload) (crm.Ref, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "create"})
	if f.err != nil {
		return crm.Ref{}, f.err
	}
	f.next++
	id := fmt.Sprintf("ext-%d", f.next)
	return crm.Ref{ID: id, URL: "https://crm.example/" + id}, nil
}

func (f *fakeClient) Update(_ context.Context, externalID string, _ crm.Payload) (crm.Ref, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "update", externalID: externalID})
	if f.err != nil {
		return crm.Ref{}, f.err
	}
	return crm.Ref{ID: externalID, URL: "https://crm.example/" + externalID}, nil
}

func (f *fakeClient) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type fixture struct {
	db        *gorm.DB
	store     *store.Store
	orch      *Orchestrator
	insightly *fakeClient
	monday    *fakeClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	s := store.New(db)
	f := &fixture{db: db, store: s, insightly: &fakeClient{}, monday: &fakeClient{}}
	f.orch = New(Options{
		Store: s,
		Clients: map[domain.SyncTarget]Client{
			domain.SyncTargetInsightly: f.insightly,
			domain.SyncTargetMonday:    f.monday,
		},
		DashboardURL: "https://app.example/dashboard",
	})
	return f
}

func (f *fixture) inquiry(t *testing.T, formType domain.FormType, data datatypes.JSONMap) string {
	t.Helper()
	inq := &domain.Inquiry{FormType: formType, ServiceArea: "counseling", FormData: data}
	require.NoError(t, f.store.CreateInquiry(context.Background(), inq))
	return inq.ID
}

func contactData() datatypes.JSONMap {
	return datatypes.JSONMap{"name": "Ada Lovelace", "email": "ada@example.com", "message": "hello"}
}

func TestSyncCreatesThenUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.inquiry(t, domain.FormTypeContact, contactData())

	first := f.orch.Sync(ctx, id, domain.SyncTargetInsightly)
	require.True(t, first.Success, "%v", first.Error)
	assert.Equal(t, domain.SyncOperationCreate, first.Operation)
	assert.Equal(t, "ext-1", first.ExternalID)
	assert.Nil(t, first.Error)

	second := f.orch.Retry(ctx, id, domain.SyncTargetInsightly)
	require.True(t, second.Success)
	assert.Equal(t, domain.SyncOperationUpdate, second.Operation)
	assert.Equal(t, "ext-1", second.ExternalID)

	assert.Equal(t, []call{{op: "create"}, {op: "update", externalID: "ext-1"}}, f.insightly.Calls())
	assert.Empty(t, f.monday.Calls())

	inq, err := f.store.GetInquiry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStateSuccess, inq.Insightly.Status)
	assert.Equal(t, "ext-1", inq.Insightly.ExternalID)
	assert.Equal(t, "https://crm.example/ext-1", inq.Insightly.ExternalURL)
	assert.Len(t, inq.Insightly.PayloadHash, 64)
	assert.NotNil(t, inq.Insightly.SyncedAt)
	assert.Nil(t, inq.Insightly.LastError)
	assert.Equal(t, domain.SyncState(""), inq.Monday.Status)

	attempts, err := f.store.ListSyncAttempts(ctx, id)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, domain.SyncTriggerEvent, attempts[0].Trigger)
	assert.Equal(t, domain.SyncTriggerRetry, attempts[1].Trigger)
	assert.Equal(t, domain.SyncOperationUpdate, attempts[1].Operation)
}

func TestSyncFailureIsRecordedAndClearedOnRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.inquiry(t, domain.FormTypeContact, contactData())

	f.monday.err = apperrors.New(apperrors.ErrCodeExternalUnavailable, "monday returned 503")
	res := f.orch.Sync(ctx, id, domain.SyncTargetMonday)
	assert.False(t, res.Success)
	assert.True(t, res.Retryable())
	assert.Equal(t, apperrors.ErrCodeExternalUnavailable, res.ErrorCode)
	require.NotNil(t, res.Error)

	inq, err := f.store.GetInquiry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStateFailed, inq.Monday.Status)
	assert.Equal(t, string(apperrors.ErrCodeExternalUnavailable), inq.Monday.ErrorCode)
	require.NotNil(t, inq.Monday.LastError)
	assert.Contains(t, *inq.Monday.LastError, "503")

	f.monday.err = nil
	res = f.orch.Retry(ctx, id, domain.SyncTargetMonday)
	require.True(t, res.Success)
	assert.Equal(t, domain.SyncOperationCreate, res.Operation)

	inq, err = f.store.GetInquiry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStateSuccess, inq.Monday.Status)
	assert.Nil(t, inq.Monday.LastError)
	assert.Empty(t, inq.Monday.ErrorCode)
}

func TestSyncUnsupportedLeavesStatusUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.inquiry(t, domain.FormTypeReferral, datatypes.JSONMap{
		"name": "Grace Hopper", "referrerName": "Dr. Who", "reason": "assessment",
	})

	res := f.orch.Sync(ctx, id, domain.SyncTargetInsightly)
	assert.False(t, res.Success)
	assert.Equal(t, apperrors.ErrCodeUnsupported, res.ErrorCode)
	assert.False(t, res.Retryable())
	assert.Empty(t, f.insightly.Calls())

	inq, err := f.store.GetInquiry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncState(""), inq.Insightly.Status)
	assert.Equal(t, []domain.SyncTarget{domain.SyncTargetMonday}, f.orch.Targets(domain.FormTypeReferral))
}

func TestSyncUnconfiguredTarget(t *testing.T) {
	s := store.New(dbtest.New(t))
	orch := New(Options{Store: s, Clients: map[domain.SyncTarget]Client{domain.SyncTargetMonday: &fakeClient{}}})
	inq := &domain.Inquiry{FormType: domain.FormTypeContact, ServiceArea: "counseling", FormData: contactData()}
	require.NoError(t, s.CreateInquiry(context.Background(), inq))

	res := orch.Sync(context.Background(), inq.ID, domain.SyncTargetInsightly)
	assert.Equal(t, apperrors.ErrCodeUnsupported, res.ErrorCode)
	assert.Equal(t, []domain.SyncTarget{domain.SyncTargetMonday}, orch.Targets(domain.FormTypeContact))
}

func TestSyncInvalidPayloadMakesNoCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Contact forms require an email.
	id := f.inquiry(t, domain.FormTypeContact, datatypes.JSONMap{"name": "Ada Lovelace"})

	res := f.orch.Sync(ctx, id, domain.SyncTargetMonday)
	assert.False(t, res.Success)
	assert.Equal(t, apperrors.ErrCodeInvalidPayload, res.ErrorCode)
	assert.Empty(t, f.monday.Calls())

	inq, err := f.store.GetInquiry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStateFailed, inq.Monday.Status)
	assert.Equal(t, string(apperrors.ErrCodeInvalidPayload), inq.Monday.ErrorCode)
}

func TestSyncMissingInquiry(t *testing.T) {
	f := newFixture(t)

	res := f.orch.Sync(context.Background(), "missing", domain.SyncTargetMonday)
	assert.False(t, res.Success)
	assert.Equal(t, apperrors.ErrCodeNotFound, res.ErrorCode)
	assert.Equal(t, domain.SyncOperationNone, res.Operation)
}

func TestSyncAllIsolatesTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.inquiry(t, domain.FormTypeContact, contactData())
	f.insightly.err = apperrors.New(apperrors.ErrCodeExternalRejected, "insightly returned 400")

	results := f.orch.SyncAll(ctx, id, f.orch.Targets(domain.FormTypeContact))
	require.Len(t, results, 2)
	assert.Equal(t, domain.SyncTargetInsightly, results[0].Target)
	assert.False(t, results[0].Success)
	assert.False(t, results[0].Retryable())
	assert.Equal(t, domain.SyncTargetMonday, results[1].Target)
	assert.True(t, results[1].Success)

	inq, err := f.store.GetInquiry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStateFailed, inq.Insightly.Status)
	assert.Equal(t, domain.SyncStateSuccess, inq.Monday.Status)
	assert.Equal(t, "Ada Lovelace", inq.FormData["name"])
}

func TestSweepRetriesOnlyUnavailableFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	transient := f.inquiry(t, domain.FormTypeContact, contactData())
	rejected := f.inquiry(t, domain.FormTypeContact, contactData())

	f.monday.err = apperrors.New(apperrors.ErrCodeExternalUnavailable, "timeout")
	f.orch.Sync(ctx, transient, domain.SyncTargetMonday)
	f.monday.err = apperrors.New(apperrors.ErrCodeExternalRejected, "bad column")
	f.orch.Sync(ctx, rejected, domain.SyncTargetMonday)
	f.monday.err = nil

	sweeper := NewSweeper(f.orch, 0, 10, nil)
	results, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	attempts, err := f.store.ListSyncAttempts(ctx, transient)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, domain.SyncTriggerSweep, attempts[1].Trigger)

	inq, err := f.store.GetInquiry(ctx, rejected)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStateFailed, inq.Monday.Status)

	// Disabled sweepers start and stop cleanly.
	sweeper.Start()
	sweeper.Stop()
}

func TestSuccessThatCannotBeStoredEndsFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.inquiry(t, domain.FormTypeContact, contactData())

	// Reject the first write of a success status.
	rejected := false
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:fail_success", func(tx *gorm.DB) {
		cols, ok := tx.Statement.Dest.(map[string]any)
		if !ok || rejected || cols["monday_status"] != domain.SyncStateSuccess {
			return
		}
		rejected = true
		_ = tx.AddError(errors.New("database is locked"))
	}))

	res := f.orch.Sync(ctx, id, domain.SyncTargetMonday)
	assert.False(t, res.Success)
	assert.Equal(t, "ext-1", res.ExternalID)
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "database is locked")

	inq, err := f.store.GetInquiry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStateFailed, inq.Monday.Status)
	assert.Equal(t, "ext-1", inq.Monday.ExternalID)
	require.NotNil(t, inq.Monday.LastError)

	// The retry updates the record that was already created.
	retry := f.orch.Retry(ctx, id, domain.SyncTargetMonday)
	require.True(t, retry.Success)
	assert.Equal(t, domain.SyncOperationUpdate, retry.Operation)
	assert.Equal(t, []call{{op: "create"}, {op: "update", externalID: "ext-1"}}, f.monday.Calls())
}
