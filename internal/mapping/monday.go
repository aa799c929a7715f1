package mapping

import (
	"inquiryflow/internal/crm"
	"inquiryflow/internal/crm/monday"
	"inquiryflow/internal/forms"
)

// Status label of a freshly synced item
const mondayNewLabel = "New"

func contactToMonday(form forms.Form, mc Context) (crm.Payload, error) {
	f := form.(*forms.ContactForm)
	item := baseItem(form, mc)
	item.ColumnValues[monday.ColumnNotes] = monday.LongTextValue(joinLines(
		labeled("Subject", f.Subject),
		f.Message,
		labeled("Preferred contact", f.PreferredContact),
	))
	return item, nil
}

func intakeToMonday(form forms.Form, mc Context) (crm.Payload, error) {
	f := form.(*forms.IntakeForm)
	item := baseItem(form, mc)
	item.ColumnValues[monday.ColumnNotes] = monday.LongTextValue(joinLines(
		f.PresentingConcerns,
		labeled("Insurance", f.Insurance),
		labeled("Preferred times", f.PreferredTimes),
	))
	if f.Urgent {
		item.ColumnValues[monday.ColumnStatus] = monday.LabelValue("Urgent")
	}
	return item, nil
}

func referralToMonday(form forms.Form, mc Context) (crm.Payload, error) {
	f := form.(*forms.ReferralForm)
	item := baseItem(form, mc)
	referrer := f.ReferrerName
	if f.ReferrerOrganization != "" {
		referrer += " (" + f.ReferrerOrganization + ")"
	}
	item.ColumnValues[monday.ColumnReferrer] = referrer
	item.ColumnValues[monday.ColumnNotes] = monday.LongTextValue(joinLines(
		f.Reason,
		labeled("Referrer email", f.ReferrerEmail),
		labeled("Referrer phone", f.ReferrerPhone),
	))
	if f.Urgency == "urgent" {
		item.ColumnValues[monday.ColumnStatus] = monday.LabelValue("Urgent")
	}
	return item, nil
}

func baseItem(form forms.Form, mc Context) *monday.Item {
	cols := map[string]any{
		monday.ColumnInquiryID: mc.InquiryID,
		monday.ColumnFormType:  string(mc.FormType),
		monday.ColumnStatus:    monday.LabelValue(mondayNewLabel),
	}
	if mc.ServiceArea != "" {
		cols[monday.ColumnServiceArea] = string(mc.ServiceArea)
	}
	if email := form.ContactEmail(); email != "" {
		cols[monday.ColumnEmail] = monday.EmailValue(email)
	}
	if phone := form.ContactPhone(); phone != "" {
		cols[monday.ColumnPhone] = monday.PhoneValue(phone)
	}
	if !mc.SubmittedAt.IsZero() {
		cols[monday.ColumnSubmitted] = monday.DateValue(mc.SubmittedAt.UTC().Format("2006-01-02"))
	}
	if mc.Link != "" {
		cols[monday.ColumnLink] = monday.LinkValue(mc.Link, "Dashboard")
	}
	return &monday.Item{Name: form.Name().Full, ColumnValues: cols}
}
