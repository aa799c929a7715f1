// Package services implements the HTTP API on the goa runtime: a goa muxer,
// goa request decoding and response encoding, and goa ServiceErrors.
package services

import (
	"context"
	"net/http"
	"strconv"

	"inquiryflow/internal/config"
	"inquiryflow/internal/crmsync"
	"inquiryflow/internal/duplicates"
	"inquiryflow/internal/logging"
	"inquiryflow/internal/store"
	apperrors "inquiryflow/pkg/errors"

	"go.uber.org/zap"
	goahttp "goa.design/goa/v3/http"
	"gorm.io/gorm"
)

// Deps are the components the API serves
type Deps struct {
	DB         *gorm.DB
	Store      *store.Store
	Sync       *crmsync.Orchestrator
	Duplicates *duplicates.Service
	Config     *config.Config
	Logger     *zap.Logger
}

// Server holds every service behind the API
type Server struct {
	Health    *HealthService
	Auth      *AuthService
	Inquiries *InquiryService
	Sync      *SyncService
	Work      *WorkService

	mux goahttp.Muxer
	log *zap.Logger
}

// NewServer wires the services
func NewServer(d Deps) *Server {
	log := logging.OrNop(d.Logger).Named("api")
	return &Server{
		Health:    NewHealthService(d.DB, &d.Config.App),
		Auth:      NewAuthService(d.DB, &d.Config.Auth, log),
		Inquiries: NewInquiryService(d.Store, d.Duplicates, log),
		Sync:      NewSyncService(d.Store, d.Sync, d.Duplicates),
		Work:      NewWorkService(d.Store),
		log:       log,
	}
}

// Mount registers every route on mux
func (s *Server) Mount(mux goahttp.Muxer) {
	s.mux = mux
	staff := s.Auth.Require(scopeStaff)

	mux.Handle("GET", "/health", s.handle(http.StatusOK, s.Health.Check))
	mux.Handle("POST", "/api/v1/auth/login", s.handle(http.StatusOK, s.Auth.Login))

	mux.Handle("POST", "/api/v1/inquiries", s.handle(http.StatusCreated, s.Inquiries.Submit))
	mux.Handle("POST", "/api/v1/inquiries/manual", staff(s.handle(http.StatusCreated, s.Inquiries.SubmitManual)))
	mux.Handle("GET", "/api/v1/inquiries/{id}", staff(s.handle(http.StatusOK, s.Inquiries.Get)))
	mux.Handle("PATCH", "/api/v1/inquiries/{id}/status", staff(s.handle(http.StatusOK, s.Inquiries.UpdateStatus)))

	mux.Handle("GET", "/api/v1/inquiries/{id}/sync", staff(s.handle(http.StatusOK, s.Sync.Status)))
	mux.Handle("GET", "/api/v1/inquiries/{id}/sync/attempts", staff(s.handle(http.StatusOK, s.Sync.Attempts)))
	mux.Handle("POST", "/api/v1/inquiries/{id}/sync/{target}", staff(s.handle(http.StatusOK, s.Sync.Retry)))
	mux.Handle("GET", "/api/v1/duplicates", staff(s.handle(http.StatusOK, s.Sync.FindDuplicates)))

	mux.Handle("GET", "/api/v1/tasks", staff(s.handle(http.StatusOK, s.Work.ListTasks)))
	mux.Handle("POST", "/api/v1/tasks/{id}/complete", staff(s.handle(http.StatusOK, s.Work.CompleteTask)))
	mux.Handle("GET", "/api/v1/activity", staff(s.handle(http.StatusOK, s.Work.ListActivity)))
	mux.Handle("POST", "/api/v1/activity/{id}/read", staff(s.handle(http.StatusOK, s.Work.MarkRead)))
}

// Request is what a service method sees of an HTTP request
type Request struct {
	*http.Request
	vars map[string]string
}

// Param returns a path variable
func (r Request) Param(name string) string {
	return r.vars[name]
}

// Query returns a query string value
func (r Request) Query(name string) string {
	return r.URL.Query().Get(name)
}

// QueryInt returns a non-negative integer query value, or def when absent
func (r Request) QueryInt(name string, def int) (int, error) {
	raw := r.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.Newf(apperrors.ErrCodeBadRequest, "%s must be a non-negative integer", name)
	}
	return n, nil
}

// Decode reads the JSON body into v
func (r Request) Decode(v any) error {
	if err := goahttp.RequestDecoder(r.Request).Decode(v); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeBadRequest, "invalid request body", err)
	}
	return nil
}

// method is the shape of every service method
type method func(ctx context.Context, r Request) (any, error)

// handle adapts a service method to the muxer
func (s *Server) handle(status int, m method) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		res, err := m(ctx, Request{Request: req, vars: s.mux.Vars(req)})
		if err != nil {
			if apperrors.CodeOf(err) == apperrors.ErrCodeInternalError {
				s.log.Error("request failed", zap.String("method", req.Method), zap.String("path", req.URL.Path), zap.Error(err))
			}
			writeError(ctx, w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := goahttp.ResponseEncoder(ctx, w).Encode(res); err != nil {
			s.log.Error("failed to encode response", zap.Error(err))
		}
	}
}
