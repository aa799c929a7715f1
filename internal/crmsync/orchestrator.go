// Package crmsync pushes inquiries to the external CRMs. Each target is
// synced independently; a sync never fails the caller and is safe to re-run.
package crmsync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"inquiryflow/internal/crm"
	"inquiryflow/internal/domain"
	"inquiryflow/internal/logging"
	"inquiryflow/internal/mapping"
	"inquiryflow/internal/metrics"
	"inquiryflow/internal/store"
	"inquiryflow/internal/syncstatus"
	apperrors "inquiryflow/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Client creates and updates records in one CRM
type Client interface {
	Create(ctx context.Context, p crm.Payload) (crm.Ref, error)
	Update(ctx context.Context, externalID string, p crm.Payload) (crm.Ref, error)
}

// Result is the outcome of one sync invocation
type Result struct {
	Target      domain.SyncTarget    `json:"target"`
	Success     bool                 `json:"success"`
	Operation   domain.SyncOperation `json:"operation"`
	ExternalID  string               `json:"external_id,omitempty"`
	ExternalURL string               `json:"external_url,omitempty"`
	Error       *string              `json:"error"`
	ErrorCode   apperrors.ErrorCode  `json:"error_code,omitempty"`
}

// Retryable reports whether the failure may be re-run automatically. Staff may
// retry any failure by hand.
func (r Result) Retryable() bool {
	return !r.Success && r.ErrorCode == apperrors.ErrCodeExternalUnavailable
}

// Options configures an Orchestrator
type Options struct {
	Store    *store.Store
	Registry *mapping.Registry
	// Clients holds the configured targets; a target without a client is unsupported.
	Clients      map[domain.SyncTarget]Client
	DashboardURL string
	Logger       *zap.Logger
}

// Orchestrator runs create-or-update syncs and records their status
type Orchestrator struct {
	store        *store.Store
	tracker      *syncstatus.Tracker
	registry     *mapping.Registry
	clients      map[domain.SyncTarget]Client
	dashboardURL string
	log          *zap.Logger
}

// New creates an orchestrator
func New(opts Options) *Orchestrator {
	registry := opts.Registry
	if registry == nil {
		registry = mapping.NewRegistry()
	}
	clients := make(map[domain.SyncTarget]Client, len(opts.Clients))
	for target, c := range opts.Clients {
		if c != nil {
			clients[target] = c
		}
	}
	return &Orchestrator{
		store:        opts.Store,
		tracker:      syncstatus.New(opts.Store),
		registry:     registry,
		clients:      clients,
		dashboardURL: opts.DashboardURL,
		log:          logging.OrNop(opts.Logger).Named("sync"),
	}
}

// Tracker exposes the status tracker the orchestrator writes through
func (o *Orchestrator) Tracker() *syncstatus.Tracker {
	return o.tracker
}

// Targets lists the configured targets that have a mapping for formType
func (o *Orchestrator) Targets(formType domain.FormType) []domain.SyncTarget {
	var out []domain.SyncTarget
	for _, target := range o.registry.Targets(formType) {
		if _, ok := o.clients[target]; ok {
			out = append(out, target)
		}
	}
	return out
}

// Sync runs one lifecycle-triggered sync
func (o *Orchestrator) Sync(ctx context.Context, inquiryID string, target domain.SyncTarget) Result {
	return o.run(ctx, inquiryID, target, domain.SyncTriggerEvent)
}

// Retry is the staff "retry sync" action. It is the same idempotent
// operation: a target that already holds an external id is updated.
func (o *Orchestrator) Retry(ctx context.Context, inquiryID string, target domain.SyncTarget) Result {
	return o.run(ctx, inquiryID, target, domain.SyncTriggerRetry)
}

// SyncAll syncs the targets concurrently and waits for every outcome.
// One target's failure neither cancels nor rolls back another.
func (o *Orchestrator) SyncAll(ctx context.Context, inquiryID string, targets []domain.SyncTarget) []Result {
	return o.syncAll(ctx, inquiryID, targets, domain.SyncTriggerEvent)
}

func (o *Orchestrator) syncAll(ctx context.Context, inquiryID string, targets []domain.SyncTarget, trigger domain.SyncTrigger) []Result {
	results := make([]Result, len(targets))
	var mu sync.Mutex

	var g errgroup.Group
	for i, target := range targets {
		g.Go(func() error {
			res := o.run(ctx, inquiryID, target, trigger)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) run(ctx context.Context, inquiryID string, target domain.SyncTarget, trigger domain.SyncTrigger) Result {
	started := o.store.Now()
	log := o.log.With(zap.String("inquiry_id", inquiryID), zap.String("target", string(target)), zap.String("trigger", string(trigger)))

	res, payloadHash := o.attempt(ctx, inquiryID, target, log)

	finished := o.store.Now()
	outcome := domain.SyncStateSuccess
	if !res.Success {
		outcome = domain.SyncStateFailed
	}
	metrics.RecordCRMSync(string(target), string(outcome), string(res.ErrorCode), finished.Sub(started))

	if res.Success {
		log.Info("crm sync succeeded", zap.String("operation", string(res.Operation)), zap.String("external_id", res.ExternalID), zap.String("payload_hash", payloadHash))
	} else {
		log.Warn("crm sync failed", zap.String("operation", string(res.Operation)), zap.String("error_code", string(res.ErrorCode)), zap.Stringp("error", res.Error))
	}

	attempt := &domain.SyncAttempt{
		InquiryID:  inquiryID,
		Target:     target,
		Operation:  res.Operation,
		Outcome:    outcome,
		ExternalID: res.ExternalID,
		ErrorCode:  string(res.ErrorCode),
		Trigger:    trigger,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if res.Error != nil {
		attempt.Error = *res.Error
	}
	if err := o.store.RecordSyncAttempt(context.WithoutCancel(ctx), attempt); err != nil {
		log.Error("failed to record sync attempt", zap.Error(err))
	}
	return res
}

// attempt performs the sync steps and returns the result and payload hash
func (o *Orchestrator) attempt(ctx context.Context, inquiryID string, target domain.SyncTarget, log *zap.Logger) (Result, string) {
	res := Result{Target: target, Operation: domain.SyncOperationNone}

	// Unpersisted failures: nothing was marked pending, so nothing is recorded on the inquiry.
	inq, err := o.store.GetInquiry(ctx, inquiryID)
	if err != nil {
		return fail(res, err), ""
	}
	client, ok := o.clients[target]
	if !ok {
		return fail(res, apperrors.Newf(apperrors.ErrCodeUnsupported, "sync target %q is not configured", target)), ""
	}
	if _, ok := o.registry.Lookup(inq.FormType, target); !ok {
		return fail(res, apperrors.Newf(apperrors.ErrCodeUnsupported, "form type %q has no %s mapping", inq.FormType, target)), ""
	}

	now := o.store.Now()
	if err := o.tracker.Set(ctx, inquiryID, target, syncstatus.Update{
		Status:      domain.SyncStatePending,
		ClearError:  true,
		AttemptedAt: &now,
	}); err != nil {
		return fail(res, err), ""
	}

	payload, err := o.registry.Map(inq, target, inq.DashboardLink(o.dashboardURL))
	if err != nil {
		return o.recordFailure(ctx, inquiryID, fail(res, err), log), ""
	}
	hash := payloadHash(payload)

	// The stored external id turns a repeat sync into an update.
	var ref crm.Ref
	if existing := inq.SyncRecordFor(target).ExternalID; existing != "" {
		res.Operation = domain.SyncOperationUpdate
		ref, err = client.Update(ctx, existing, payload)
		if err == nil && ref.ID == "" {
			ref.ID = existing
		}
	} else {
		res.Operation = domain.SyncOperationCreate
		ref, err = client.Create(ctx, payload)
	}
	if err != nil {
		return o.recordFailure(ctx, inquiryID, fail(res, err), log), hash
	}

	syncedAt := o.store.Now()
	if err := o.tracker.Set(context.WithoutCancel(ctx), inquiryID, target, syncstatus.Update{
		Status:      domain.SyncStateSuccess,
		ExternalID:  &ref.ID,
		ExternalURL: &ref.URL,
		ClearError:  true,
		PayloadHash: &hash,
		SyncedAt:    &syncedAt,
	}); err != nil {
		log.Error("failed to persist sync success", zap.String("external_id", ref.ID), zap.Error(err))
		res = fail(res, err)
		code := res.ErrorCode
		// Keep the external id so a retry updates the record instead of creating another.
		if err := o.tracker.Set(context.WithoutCancel(ctx), inquiryID, target, syncstatus.Update{
			Status:      domain.SyncStateFailed,
			ExternalID:  &ref.ID,
			ExternalURL: &ref.URL,
			Error:       res.Error,
			ErrorCode:   &code,
		}); err != nil {
			log.Error("failed to persist sync failure", zap.Error(err))
		}
		res.ExternalID = ref.ID
		res.ExternalURL = ref.URL
		return res, hash
	}

	res.Success = true
	res.ExternalID = ref.ID
	res.ExternalURL = ref.URL
	return res, hash
}

func (o *Orchestrator) recordFailure(ctx context.Context, inquiryID string, res Result, log *zap.Logger) Result {
	code := res.ErrorCode
	// The outcome is persisted even when the caller has gone away.
	if err := o.tracker.Set(context.WithoutCancel(ctx), inquiryID, res.Target, syncstatus.Update{
		Status:    domain.SyncStateFailed,
		Error:     res.Error,
		ErrorCode: &code,
	}); err != nil {
		log.Error("failed to persist sync failure", zap.Error(err))
	}
	return res
}

func fail(res Result, err error) Result {
	msg := err.Error()
	res.Success = false
	res.Error = &msg
	res.ErrorCode = apperrors.CodeOf(err)
	return res
}

// payloadHash fingerprints the exact body sent to the CRM
func payloadHash(p crm.Payload) string {
	raw, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
