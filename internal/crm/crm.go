// Package crm holds the types and HTTP plumbing shared by the external CRM clients.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"inquiryflow/internal/domain"
	apperrors "inquiryflow/pkg/errors"
)

// DefaultTimeout bounds every CRM request when the caller sets none
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of an error response is kept in messages
const maxErrorBody = 512

// Payload is a target-specific record body produced by the mapping layer
type Payload interface {
	Target() domain.SyncTarget
}

// Ref identifies a record in an external CRM
type Ref struct {
	ID  string
	URL string
}

// Lead is a search hit used for duplicate detection
type Lead struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Status    string
	URL       string
	CreatedAt time.Time
}

// FullName joins the name parts
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// Request is one JSON call against a CRM API
type Request struct {
	System string
	Method string
	URL    string
	Body   any
	Header http.Header
}

// Do sends req and decodes a 2xx JSON response into out (when non-nil).
// Failures are classified: transport errors, timeouts, 408, 429 and 5xx are
// EXTERNAL_UNAVAILABLE; every other non-2xx status is EXTERNAL_REJECTED.
func Do(ctx context.Context, client *http.Client, req Request, out any) error {
	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInvalidPayload, req.System+" payload is not serializable", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", req.System, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return TransportError(req.System, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return TransportError(req.System, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusError(req.System, resp.StatusCode, respBody)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeExternalRejected, req.System+" returned an unreadable response", err)
	}
	return nil
}

// TransportError classifies a failure that produced no HTTP response
func TransportError(system string, err error) error {
	msg := system + " request failed"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = system + " request timed out"
	}
	return apperrors.Wrap(apperrors.ErrCodeExternalUnavailable, msg, err)
}

// StatusError classifies a non-2xx response
func StatusError(system string, status int, body []byte) error {
	msg := fmt.Sprintf("%s returned status %d: %s", system, status, errorMessage(body))
	if Transient(status) {
		return apperrors.New(apperrors.ErrCodeExternalUnavailable, msg)
	}
	return apperrors.New(apperrors.ErrCodeExternalRejected, msg)
}

// Transient reports whether a status is worth retrying unchanged
func Transient(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}

// errorMessage pulls a human message out of common JSON error shapes,
// falling back to the truncated body.
func errorMessage(body []byte) string {
	var parsed map[string]any
	if json.Unmarshal(body, &parsed) == nil {
		for _, key := range []string{"Message", "message", "error_message", "error"} {
			if s, ok := parsed[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	if msg == "" {
		msg = "empty response"
	}
	return msg
}
