package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"inquiryflow/internal/config"
	"inquiryflow/internal/database/dbtest"
	"inquiryflow/internal/domain"
	"inquiryflow/internal/duplicates"
	"inquiryflow/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestInquiryLifecycleEndToEnd(t *testing.T) {
	var calls atomic.Int32
	board := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer board-token" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"create_item": map[string]any{"id": "9001"}},
		})
	}))
	defer board.Close()

	cfg := &config.Config{
		App: config.AppConfig{DashboardURL: "https://app.example/dashboard"},
		Monday: config.MondayConfig{
			Enabled:  true,
			APIToken: "board-token",
			BaseURL:  board.URL,
			BoardID:  "77",
			Account:  "clinic",
			Timeout:  time.Second,
		},
		Dispatcher: config.DispatcherConfig{BatchSize: 10, MaxAttempts: 3},
	}
	db := dbtest.New(t)
	a := Wire(cfg, db, nil)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.User{Username: "sam", Email: "sam@example.com", HashedPassword: "x", IsStaff: true, IsActive: true}).Error)

	inq := &domain.Inquiry{
		FormType:    domain.FormTypeReferral,
		ServiceArea: "counseling",
		FormData:    datatypes.JSONMap{"name": "Grace Hopper", "referrerName": "Dr. Who", "reason": "assessment"},
	}
	require.NoError(t, a.Store.CreateInquiry(ctx, inq))

	n, err := a.Dispatcher.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.EqualValues(t, 1, calls.Load())

	got, err := a.Store.GetInquiry(ctx, inq.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStateSuccess, got.Monday.Status)
	assert.Equal(t, "9001", got.Monday.ExternalID)
	assert.Equal(t, "https://clinic.monday.com/boards/77/pulses/9001", got.Monday.ExternalURL)
	assert.Equal(t, domain.SyncState(""), got.Insightly.Status)

	tasks, err := a.Store.QueryTasks(ctx, store.TaskQuery{AssignedTo: "sam"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "New inquiry: Grace Hopper", tasks[0].Title)

	// Insightly is disabled, so duplicate checks cannot run.
	res := a.Duplicates.FindDuplicates(ctx, "Grace Hopper", "")
	assert.Equal(t, duplicates.AdvisoryUnknown, res.Advisory)

	results, err := a.Sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}
