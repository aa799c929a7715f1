package services

import (
	"context"
	"strings"

	"inquiryflow/internal/domain"
	"inquiryflow/internal/duplicates"
	"inquiryflow/internal/forms"
	"inquiryflow/internal/metrics"
	"inquiryflow/internal/store"
	apperrors "inquiryflow/pkg/errors"

	"go.uber.org/zap"
)

// SubmitPayload is the body of a new inquiry
type SubmitPayload struct {
	FormType    domain.FormType    `json:"form_type"`
	ServiceArea domain.ServiceArea `json:"service_area"`
	FormData    map[string]any     `json:"form_data"`
}

// ManualSubmitPayload is a paper intake entered by staff
type ManualSubmitPayload struct {
	SubmitPayload
	// SkipDuplicateCheck is set once staff have reviewed the candidates.
	SkipDuplicateCheck bool `json:"skip_duplicate_check"`
}

// ManualSubmitResult carries the stored inquiry and the duplicate advisory
type ManualSubmitResult struct {
	Inquiry    *domain.Inquiry    `json:"inquiry"`
	Duplicates *duplicates.Result `json:"duplicates,omitempty"`
}

// StatusPayload changes the lifecycle status
type StatusPayload struct {
	Status         domain.InquiryStatus `json:"status"`
	SchedulingTime *string              `json:"scheduling_time"`
}

// InquiryService records inquiries and their status changes. Fan-out and
// CRM sync follow from the outbox events these writes enqueue.
type InquiryService struct {
	store      *store.Store
	duplicates *duplicates.Service
	log        *zap.Logger
}

// NewInquiryService creates a new inquiry service
func NewInquiryService(s *store.Store, dup *duplicates.Service, log *zap.Logger) *InquiryService {
	return &InquiryService{store: s, duplicates: dup, log: log}
}

// Submit records a public web form submission
func (s *InquiryService) Submit(ctx context.Context, r Request) (any, error) {
	var p SubmitPayload
	if err := r.Decode(&p); err != nil {
		return nil, err
	}
	return s.create(ctx, p, "")
}

// SubmitManual records a paper intake. Unless skipped, the lead index is
// checked first; the advisory never blocks the intake.
func (s *InquiryService) SubmitManual(ctx context.Context, r Request) (any, error) {
	var p ManualSubmitPayload
	if err := r.Decode(&p); err != nil {
		return nil, err
	}
	form, err := forms.Decode(p.FormType, p.FormData)
	if err != nil {
		return nil, err
	}
	res := &ManualSubmitResult{}
	if !p.SkipDuplicateCheck && s.duplicates != nil {
		dup := s.duplicates.FindDuplicates(ctx, form.Name().Full, form.ContactEmail())
		res.Duplicates = &dup
	}

	submittedBy := ""
	if user, ok := UserFromContext(ctx); ok {
		submittedBy = user.Username
	}
	inq, err := s.create(ctx, p.SubmitPayload, submittedBy)
	if err != nil {
		return nil, err
	}
	res.Inquiry = inq
	return res, nil
}

func (s *InquiryService) create(ctx context.Context, p SubmitPayload, submittedBy string) (*domain.Inquiry, error) {
	area := domain.ServiceArea(strings.TrimSpace(string(p.ServiceArea)))
	if area == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "service_area is required")
	}
	if _, err := forms.Decode(p.FormType, p.FormData); err != nil {
		return nil, err
	}

	inq := &domain.Inquiry{
		FormType:    p.FormType,
		ServiceArea: area,
		FormData:    p.FormData,
		SubmittedBy: submittedBy,
	}
	if err := s.store.CreateInquiry(ctx, inq); err != nil {
		return nil, err
	}
	metrics.RecordInquirySubmitted(string(inq.FormType))
	s.log.Info("inquiry recorded",
		zap.String("inquiry_id", inq.ID),
		zap.String("form_type", string(inq.FormType)),
		zap.String("submitted_by", inq.SubmittedBy))
	return inq, nil
}

// Get returns one inquiry with its sync sub-records
func (s *InquiryService) Get(ctx context.Context, r Request) (any, error) {
	return s.store.GetInquiry(ctx, r.Param("id"))
}

// UpdateStatus moves an inquiry through its lifecycle
func (s *InquiryService) UpdateStatus(ctx context.Context, r Request) (any, error) {
	var p StatusPayload
	if err := r.Decode(&p); err != nil {
		return nil, err
	}
	tr, err := s.store.TransitionInquiryStatus(ctx, r.Param("id"), p.Status, p.SchedulingTime)
	if err != nil {
		return nil, err
	}
	return tr.After, nil
}
