package crm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "inquiryflow/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoDecodesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "42"}`))
	}))
	defer srv.Close()

	var out struct {
		ID string `json:"id"`
	}
	err := Do(context.Background(), srv.Client(), Request{
		System: "test",
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   map[string]string{"a": "b"},
		Header: http.Header{"X-Test": []string{"yes"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "42", out.ID)
}

func TestDoClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		body   string
		code   apperrors.ErrorCode
		msg    string
	}{
		{http.StatusBadRequest, `{"Message": "LAST_NAME is required"}`, apperrors.ErrCodeExternalRejected, "LAST_NAME is required"},
		{http.StatusUnauthorized, `nope`, apperrors.ErrCodeExternalRejected, "nope"},
		{http.StatusRequestTimeout, ``, apperrors.ErrCodeExternalUnavailable, "empty response"},
		{http.StatusTooManyRequests, `{"message": "slow down"}`, apperrors.ErrCodeExternalUnavailable, "slow down"},
		{http.StatusBadGateway, `<html>bad gateway</html>`, apperrors.ErrCodeExternalUnavailable, "bad gateway"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := Do(context.Background(), srv.Client(), Request{System: "test", Method: http.MethodGet, URL: srv.URL}, nil)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDoTimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := &http.Client{Timeout: 50 * time.Millisecond}
	err := Do(context.Background(), client, Request{System: "test", Method: http.MethodGet, URL: srv.URL}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestLeadFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", Lead{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", Lead{FirstName: "Ada"}.FullName())
}
