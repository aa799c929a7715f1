package monday

import "inquiryflow/internal/domain"

// Item is a board item: its name plus column values keyed by column id
type Item struct {
	Name         string         `json:"item_name"`
	ColumnValues map[string]any `json:"column_values"`
}

// Target implements crm.Payload
func (*Item) Target() domain.SyncTarget {
	return domain.SyncTargetMonday
}

// Column ids on the inquiries board
const (
	ColumnEmail       = "email"
	ColumnPhone       = "phone"
	ColumnStatus      = "status"
	ColumnServiceArea = "service_area"
	ColumnFormType    = "form_type"
	ColumnSubmitted   = "date"
	ColumnNotes       = "long_text"
	ColumnLink        = "link"
	ColumnReferrer    = "referrer"
	ColumnInquiryID   = "inquiry_id"
)

// EmailValue formats an email column
func EmailValue(email string) map[string]any {
	return map[string]any{"email": email, "text": email}
}

// PhoneValue formats a phone column
func PhoneValue(phone string) map[string]any {
	return map[string]any{"phone": phone, "countryShortName": "US"}
}

// DateValue formats a date column (YYYY-MM-DD)
func DateValue(date string) map[string]any {
	return map[string]any{"date": date}
}

// LabelValue formats a status column
func LabelValue(label string) map[string]any {
	return map[string]any{"label": label}
}

// LongTextValue formats a long text column
func LongTextValue(text string) map[string]any {
	return map[string]any{"text": text}
}

// LinkValue formats a link column
func LinkValue(url, text string) map[string]any {
	return map[string]any{"url": url, "text": text}
}
