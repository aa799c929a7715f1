package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"inquiryflow/internal/config"
	"inquiryflow/internal/crm"
	"inquiryflow/internal/crmsync"
	"inquiryflow/internal/database/dbtest"
	"inquiryflow/internal/domain"
	"inquiryflow/internal/duplicates"
	"inquiryflow/internal/store"
	"inquiryflow/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goahttp "goa.design/goa/v3/http"
	"gorm.io/gorm"
)

type stubClient struct{ created int }

func (c *stubClient) Create(context.Context, crm.Payload) (crm.Ref, error) {
	c.created++
	return crm.Ref{ID: "42", URL: "https://crm.example/42"}, nil
}

func (c *stubClient) Update(_ context.Context, id string, _ crm.Payload) (crm.Ref, error) {
	return crm.Ref{ID: id}, nil
}

type stubSearcher struct{}

func (stubSearcher) SearchLeadsByName(context.Context, string, string) ([]crm.Lead, error) {
	return []crm.Lead{{ID: "7", FirstName: "Ada", LastName: "Lovelace"}}, nil
}

func (stubSearcher) SearchLeadsByEmail(context.Context, string) ([]crm.Lead, error) {
	return nil, nil
}

type harness struct {
	t       *testing.T
	db      *gorm.DB
	store   *store.Store
	cfg     *config.Config
	handler http.Handler
	monday  *stubClient
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.New(t)
	s := store.New(db)
	cfg := &config.Config{
		App:  config.AppConfig{Name: "Inquiry Orchestrator", Version: "test", DashboardURL: "https://app.example/dashboard"},
		Auth: config.AuthConfig{SecretKey: "0123456789abcdef0123456789abcdef", TokenExpiryMinutes: 5},
	}
	monday := &stubClient{}
	orch := crmsync.New(crmsync.Options{
		Store:        s,
		Clients:      map[domain.SyncTarget]crmsync.Client{domain.SyncTargetMonday: monday},
		DashboardURL: cfg.App.DashboardURL,
	})

	mux := goahttp.NewMuxer()
	NewServer(Deps{
		DB:         db,
		Store:      s,
		Sync:       orch,
		Duplicates: duplicates.New(stubSearcher{}, nil),
		Config:     cfg,
	}).Mount(mux)

	return &harness{t: t, db: db, store: s, cfg: cfg, handler: mux, monday: monday}
}

func (h *harness) user(username string, staff bool) (*domain.User, string) {
	h.t.Helper()
	hash, err := util.HashPassword("secret-pass")
	require.NoError(h.t, err)
	u := &domain.User{Username: username, Email: username + "@example.com", HashedPassword: hash, IsStaff: staff, IsActive: true}
	require.NoError(h.t, h.db.Create(u).Error)
	token, err := util.GenerateToken(&h.cfg.Auth, u)
	require.NoError(h.t, err)
	return u, token
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func contactBody() map[string]any {
	return map[string]any{
		"form_type":    "contact",
		"service_area": "counseling",
		"form_data":    map[string]any{"name": "Ada Lovelace", "email": "ada@example.com"},
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := h.do("GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[HealthResult](t, rec)
	assert.Equal(t, "healthy", res.Status)
	assert.Equal(t, "ok", res.Database)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.user("sam", true)

	rec := h.do("POST", "/api/v1/auth/login", "", LoginPayload{Username: "sam", Password: "secret-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[LoginResult](t, rec)
	assert.Equal(t, "bearer", res.TokenType)

	claims, err := util.ValidateToken(&h.cfg.Auth, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "sam", claims.Username)

	rec = h.do("POST", "/api/v1/auth/login", "", LoginPayload{Username: "sam", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode[errorBody](t, rec).Name)
}

func TestPublicSubmit(t *testing.T) {
	h := newHarness(t)

	rec := h.do("POST", "/api/v1/inquiries", "", contactBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inq := decode[domain.Inquiry](t, rec)
	assert.NotEmpty(t, inq.ID)
	assert.Equal(t, "anonymous", inq.SubmittedBy)

	events, err := h.store.PendingEvents(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	bad := contactBody()
	bad["form_data"] = map[string]any{"name": "Ada Lovelace"}
	rec = h.do("POST", "/api/v1/inquiries", "", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_PAYLOAD", decode[errorBody](t, rec).Name)

	rec = h.do("POST", "/api/v1/inquiries", "", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStaffRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	_, volunteerToken := h.user("vic", false)

	rec := h.do("GET", "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do("GET", "/api/v1/tasks", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do("GET", "/api/v1/tasks", volunteerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestManualSubmitReportsDuplicates(t *testing.T) {
	h := newHarness(t)
	_, token := h.user("sam", true)

	rec := h.do("POST", "/api/v1/inquiries/manual", token, contactBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[ManualSubmitResult](t, rec)
	require.NotNil(t, res.Inquiry)
	assert.Equal(t, "sam", res.Inquiry.SubmittedBy)
	require.NotNil(t, res.Duplicates)
	assert.Equal(t, duplicates.AdvisoryMatches, res.Duplicates.Advisory)
	require.Len(t, res.Duplicates.Matches, 1)
	assert.Equal(t, "7", res.Duplicates.Matches[0].ExternalLeadID)

	rec = h.do("GET", "/api/v1/duplicates?name=Ada+Lovelace", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[duplicates.Result](t, rec).HasPotentialDuplicates)

	rec = h.do("GET", "/api/v1/duplicates", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusRetryAndSyncState(t *testing.T) {
	h := newHarness(t)
	_, token := h.user("sam", true)
	inq := decode[domain.Inquiry](t, h.do("POST", "/api/v1/inquiries", "", contactBody()))

	rec := h.do("GET", "/api/v1/inquiries/"+inq.ID+"/sync", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[SyncStatusResult](t, rec)
	assert.Equal(t, domain.SyncStateNeverSynced, status.Targets[domain.SyncTargetMonday].Status)

	rec = h.do("POST", "/api/v1/inquiries/"+inq.ID+"/sync/monday", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[crmsync.Result](t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, "42", res.ExternalID)
	assert.Equal(t, 1, h.monday.created)

	// Insightly has no client here, so the retry reports an unsupported target.
	rec = h.do("POST", "/api/v1/inquiries/"+inq.ID+"/sync/insightly", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[crmsync.Result](t, rec).Success)

	rec = h.do("POST", "/api/v1/inquiries/"+inq.ID+"/sync/salesforce", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do("POST", "/api/v1/inquiries/missing/sync/monday", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do("GET", "/api/v1/inquiries/"+inq.ID+"/sync/attempts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.SyncAttempt](t, rec), 2)

	when := "2026-03-01T15:00:00Z"
	rec = h.do("PATCH", "/api/v1/inquiries/"+inq.ID+"/status", token, StatusPayload{Status: domain.InquiryStatusIntakeScheduled, SchedulingTime: &when})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.InquiryStatusIntakeScheduled, decode[domain.Inquiry](t, rec).Status)

	rec = h.do("PATCH", "/api/v1/inquiries/"+inq.ID+"/status", token, StatusPayload{Status: "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do("GET", "/api/v1/inquiries/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTasksAndActivity(t *testing.T) {
	h := newHarness(t)
	_, samToken := h.user("sam", true)
	_, alexToken := h.user("alex", true)
	ctx := context.Background()

	task := &domain.Task{Title: "New inquiry: Ada", Type: domain.TaskTypeNewInquiry, InquiryID: "i1", AssignedTo: "sam"}
	item := &domain.ActivityItem{Title: "New inquiry: Ada", Type: domain.TaskTypeNewInquiry, InquiryID: "i1", Recipient: "sam"}
	require.NoError(t, h.store.NewBatch().Create(task).Create(item).Commit(ctx))

	rec := h.do("GET", "/api/v1/tasks", samToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Task](t, rec), 1)

	rec = h.do("GET", "/api/v1/tasks", alexToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]domain.Task](t, rec))

	rec = h.do("POST", "/api/v1/tasks/"+task.ID+"/complete", alexToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do("POST", "/api/v1/tasks/"+task.ID+"/complete", samToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.TaskStatusDone, decode[domain.Task](t, rec).Status)

	rec = h.do("GET", "/api/v1/tasks?status=bogus", samToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do("POST", "/api/v1/activity/"+item.ID+"/read", samToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do("GET", "/api/v1/activity?unread=true", samToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]domain.ActivityItem](t, rec))
}
