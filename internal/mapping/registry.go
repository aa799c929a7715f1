// Package mapping turns validated inquiry forms into CRM payloads.
// Mappers are pure: no I/O, and they fail closed with INVALID_PAYLOAD.
package mapping

import (
	"embed"
	"fmt"
	"sort"
	"time"

	"inquiryflow/internal/crm"
	"inquiryflow/internal/domain"
	"inquiryflow/internal/forms"
	"inquiryflow/internal/validation"
	apperrors "inquiryflow/pkg/errors"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var payloadSchemas = validation.MustCompile(schemaFS, "schemas")

// Context carries the inquiry metadata a mapper may copy into a payload
type Context struct {
	InquiryID   string
	FormType    domain.FormType
	ServiceArea domain.ServiceArea
	SubmittedAt time.Time
	SubmittedBy string
	// Link is the dashboard URL of the inquiry
	Link string
}

// Mapper builds one target's payload for one form type
type Mapper func(form forms.Form, mc Context) (crm.Payload, error)

type key struct {
	formType domain.FormType
	target   domain.SyncTarget
}

// Registry holds the mapper of each (form type, target) pair
type Registry struct {
	mappers map[key]Mapper
}

// NewRegistry returns a registry with the built-in mappers:
// contact and intake go to both targets, referral only to monday.
func NewRegistry() *Registry {
	r := &Registry{mappers: make(map[key]Mapper)}
	r.Register(domain.FormTypeContact, domain.SyncTargetInsightly, contactToInsightly)
	r.Register(domain.FormTypeContact, domain.SyncTargetMonday, contactToMonday)
	r.Register(domain.FormTypeIntake, domain.SyncTargetInsightly, intakeToInsightly)
	r.Register(domain.FormTypeIntake, domain.SyncTargetMonday, intakeToMonday)
	r.Register(domain.FormTypeReferral, domain.SyncTargetMonday, referralToMonday)
	return r
}

// Register sets the mapper of a pair, replacing any existing one
func (r *Registry) Register(formType domain.FormType, target domain.SyncTarget, m Mapper) {
	r.mappers[key{formType, target}] = m
}

// Lookup returns the mapper of a pair
func (r *Registry) Lookup(formType domain.FormType, target domain.SyncTarget) (Mapper, bool) {
	m, ok := r.mappers[key{formType, target}]
	return m, ok
}

// Targets lists the targets a form type maps to, in stable order
func (r *Registry) Targets(formType domain.FormType) []domain.SyncTarget {
	var out []domain.SyncTarget
	for k := range r.mappers {
		if k.formType == formType {
			out = append(out, k.target)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Map decodes the inquiry's form data and builds the target payload.
// A missing mapper is UNSUPPORTED; any decode, mapping or payload schema
// failure is INVALID_PAYLOAD.
func (r *Registry) Map(inq *domain.Inquiry, target domain.SyncTarget, link string) (crm.Payload, error) {
	m, ok := r.Lookup(inq.FormType, target)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeUnsupported, "form type %q has no %s mapping", inq.FormType, target)
	}

	form, err := forms.Decode(inq.FormType, inq.FormData)
	if err != nil {
		return nil, err
	}

	payload, err := m(form, Context{
		InquiryID:   inq.ID,
		FormType:    inq.FormType,
		ServiceArea: inq.ServiceArea,
		SubmittedAt: inq.SubmittedAt,
		SubmittedBy: inq.SubmittedBy,
		Link:        link,
	})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrCodeInternalError {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidPayload, fmt.Sprintf("%s mapping failed", target), err)
		}
		return nil, err
	}
	if payload == nil || payload.Target() != target {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidPayload, "%s mapping produced a payload for another target", target)
	}

	if err := payloadSchemas.Validate(string(target), payload); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidPayload, fmt.Sprintf("%s payload failed validation", target), err)
	}
	return payload, nil
}
