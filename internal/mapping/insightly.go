package mapping

import (
	"strings"

	"inquiryflow/internal/crm"
	"inquiryflow/internal/crm/insightly"
	"inquiryflow/internal/forms"
)

func contactToInsightly(form forms.Form, mc Context) (crm.Payload, error) {
	f := form.(*forms.ContactForm)
	lead := baseLead(form, mc)
	lead.Title = f.Subject
	lead.Description = joinLines(
		f.Message,
		labeled("Preferred contact", f.PreferredContact),
		labeled("Heard about us", f.HowHeard),
	)
	lead.Tags = append(lead.Tags, insightly.Tag{TagName: "web-contact"})
	return lead, nil
}

func intakeToInsightly(form forms.Form, mc Context) (crm.Payload, error) {
	f := form.(*forms.IntakeForm)
	lead := baseLead(form, mc)
	lead.AddressStreet = f.Address
	lead.AddressCity = f.City
	lead.AddressState = f.State
	lead.AddressPostcode = f.Zip
	lead.Description = joinLines(
		f.PresentingConcerns,
		labeled("Date of birth", f.DateOfBirth),
		labeled("Insurance", f.Insurance),
		labeled("Preferred times", f.PreferredTimes),
		labeled("Referral source", f.ReferralSource),
	)
	lead.Tags = append(lead.Tags, insightly.Tag{TagName: "intake"})
	if f.Urgent {
		lead.Tags = append(lead.Tags, insightly.Tag{TagName: "urgent"})
	}
	return lead, nil
}

// baseLead fills the identity and tracking fields shared by every lead.
// Insightly requires LAST_NAME, so a single-word name is sent as the last name.
func baseLead(form forms.Form, mc Context) *insightly.Lead {
	name := form.Name()
	first, last := name.First, name.Last
	if last == "" {
		first, last = "", first
	}
	lead := &insightly.Lead{
		FirstName: first,
		LastName:  last,
		Email:     form.ContactEmail(),
		Phone:     form.ContactPhone(),
		CustomFields: []insightly.CustomField{
			{FieldName: insightly.FieldInquiryID, FieldValue: mc.InquiryID},
			{FieldName: insightly.FieldFormType, FieldValue: string(mc.FormType)},
		},
	}
	if mc.ServiceArea != "" {
		lead.CustomFields = append(lead.CustomFields, insightly.CustomField{FieldName: insightly.FieldServiceArea, FieldValue: string(mc.ServiceArea)})
		lead.Tags = append(lead.Tags, insightly.Tag{TagName: string(mc.ServiceArea)})
	}
	if mc.Link != "" {
		lead.CustomFields = append(lead.CustomFields, insightly.CustomField{FieldName: insightly.FieldDashboard, FieldValue: mc.Link})
	}
	return lead
}

func labeled(label, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return label + ": " + value
}

func joinLines(lines ...string) string {
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
