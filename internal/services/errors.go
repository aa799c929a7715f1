package services

import (
	"context"
	"errors"
	"net/http"

	apperrors "inquiryflow/pkg/errors"

	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"
)

// errorBody is the JSON shape of every error response
type errorBody struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	Message   string `json:"message"`
	Temporary bool   `json:"temporary"`
	Timeout   bool   `json:"timeout"`
	Fault     bool   `json:"fault"`
}

// statusByCode maps application error codes to HTTP statuses
var statusByCode = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeBadRequest:          http.StatusBadRequest,
	apperrors.ErrCodeValidation:          http.StatusBadRequest,
	apperrors.ErrCodeUnauthorized:        http.StatusUnauthorized,
	apperrors.ErrCodeForbidden:           http.StatusForbidden,
	apperrors.ErrCodeNotFound:            http.StatusNotFound,
	apperrors.ErrCodeConflict:            http.StatusConflict,
	apperrors.ErrCodeInvalidPayload:      http.StatusUnprocessableEntity,
	apperrors.ErrCodeUnsupported:         http.StatusUnprocessableEntity,
	apperrors.ErrCodeExternalRejected:    http.StatusBadGateway,
	apperrors.ErrCodeExternalUnavailable: http.StatusServiceUnavailable,
}

// toServiceError converts any error to a goa ServiceError and its status.
// Internal errors keep their cause out of the message.
func toServiceError(err error) (*goa.ServiceError, int) {
	var se *goa.ServiceError
	if errors.As(err, &se) {
		return se, http.StatusBadRequest
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return goa.Fault("internal server error"), http.StatusInternalServerError
	}
	status, ok := statusByCode[appErr.Code]
	if !ok {
		return goa.Fault("internal server error"), http.StatusInternalServerError
	}
	if appErr.Code == apperrors.ErrCodeExternalUnavailable {
		return goa.TemporaryError(string(appErr.Code), "%s", appErr.Message), status
	}
	return goa.PermanentError(string(appErr.Code), "%s", appErr.Message), status
}

// writeError encodes err as an error response
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	se, status := toServiceError(err)
	body := errorBody{
		Name:      se.Name,
		ID:        se.ID,
		Message:   se.Message,
		Temporary: se.Temporary,
		Timeout:   se.Timeout,
		Fault:     se.Fault,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = goahttp.ResponseEncoder(ctx, w).Encode(body)
}
