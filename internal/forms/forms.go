// Package forms decodes and validates the form payloads stored on inquiries.
// Each form type is one variant of a closed union with its own JSON schema.
package forms

import (
	"embed"
	"encoding/json"
	"fmt"

	"inquiryflow/internal/domain"
	"inquiryflow/internal/validation"
	apperrors "inquiryflow/pkg/errors"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemas = validation.MustCompile(schemaFS, "schemas")

// Form is a validated form payload
type Form interface {
	Type() domain.FormType
	Name() Name
	ContactEmail() string
	ContactPhone() string
}

// ContactForm is the public "contact us" form
type ContactForm struct {
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Subject          string `json:"subject"`
	Message          string `json:"message"`
	PreferredContact string `json:"preferredContact"`
	HowHeard         string `json:"howHeard"`

	name Name
}

func (f *ContactForm) Type() domain.FormType { return domain.FormTypeContact }
func (f *ContactForm) Name() Name            { return f.name }
func (f *ContactForm) ContactEmail() string  { return f.Email }
func (f *ContactForm) ContactPhone() string  { return f.Phone }

// IntakeForm is the full client intake, submitted online or from paper by staff
type IntakeForm struct {
	DateOfBirth        string `json:"dateOfBirth"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	City               string `json:"city"`
	State              string `json:"state"`
	Zip                string `json:"zip"`
	PresentingConcerns string `json:"presentingConcerns"`
	Insurance          string `json:"insurance"`
	PreferredTimes     string `json:"preferredTimes"`
	ReferralSource     string `json:"referralSource"`
	Urgent             bool   `json:"urgent"`

	name Name
}

func (f *IntakeForm) Type() domain.FormType { return domain.FormTypeIntake }
func (f *IntakeForm) Name() Name            { return f.name }
func (f *IntakeForm) ContactEmail() string  { return f.Email }
func (f *IntakeForm) ContactPhone() string  { return f.Phone }

// ReferralForm is a third-party referral of a prospective client
type ReferralForm struct {
	ReferrerName         string `json:"referrerName"`
	ReferrerOrganization string `json:"referrerOrganization"`
	ReferrerEmail        string `json:"referrerEmail"`
	ReferrerPhone        string `json:"referrerPhone"`
	Email                string `json:"email"`
	Phone                string `json:"phone"`
	Reason               string `json:"reason"`
	Urgency              string `json:"urgency"`

	name Name
}

func (f *ReferralForm) Type() domain.FormType { return domain.FormTypeReferral }
func (f *ReferralForm) Name() Name            { return f.name }
func (f *ReferralForm) ContactEmail() string  { return f.Email }
func (f *ReferralForm) ContactPhone() string  { return f.Phone }

// Known reports whether formType is a registered variant
func Known(formType domain.FormType) bool {
	return schemas.Has(string(formType))
}

// Decode validates data against formType's schema and returns the typed variant.
// Every failure is an INVALID_PAYLOAD AppError.
func Decode(formType domain.FormType, data map[string]any) (Form, error) {
	var form Form
	switch formType {
	case domain.FormTypeContact:
		form = &ContactForm{}
	case domain.FormTypeIntake:
		form = &IntakeForm{}
	case domain.FormTypeReferral:
		form = &ReferralForm{}
	default:
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidPayload, "unknown form type %q", formType)
	}

	if data == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidPayload, "form data is empty")
	}
	if err := schemas.Validate(string(formType), data); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidPayload, fmt.Sprintf("%s form failed validation", formType), err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidPayload, "form data is not serializable", err)
	}
	if err := json.Unmarshal(raw, form); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidPayload, fmt.Sprintf("%s form failed to decode", formType), err)
	}

	name := ResolveName(data)
	if name.IsZero() {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidPayload, "%s form has no name", formType)
	}
	switch f := form.(type) {
	case *ContactForm:
		f.name = name
	case *IntakeForm:
		f.name = name
	case *ReferralForm:
		f.name = name
	}
	return form, nil
}
