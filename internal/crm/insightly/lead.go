package insightly

import "inquiryflow/internal/domain"

// Lead is the v3.1 lead resource as sent on create and update
type Lead struct {
	LeadID          int64         `json:"LEAD_ID,omitempty"`
	FirstName       string        `json:"FIRST_NAME,omitempty"`
	LastName        string        `json:"LAST_NAME"`
	Email           string        `json:"EMAIL,omitempty"`
	Phone           string        `json:"PHONE,omitempty"`
	Title           string        `json:"TITLE,omitempty"`
	Organisation    string        `json:"ORGANISATION_NAME,omitempty"`
	Description     string        `json:"LEAD_DESCRIPTION,omitempty"`
	AddressStreet   string        `json:"ADDRESS_STREET,omitempty"`
	AddressCity     string        `json:"ADDRESS_CITY,omitempty"`
	AddressState    string        `json:"ADDRESS_STATE,omitempty"`
	AddressPostcode string        `json:"ADDRESS_POSTCODE,omitempty"`
	CustomFields    []CustomField `json:"CUSTOMFIELDS,omitempty"`
	Tags            []Tag         `json:"TAGS,omitempty"`
}

// CustomField is an org-defined lead field
type CustomField struct {
	FieldName  string `json:"FIELD_NAME"`
	FieldValue any    `json:"FIELD_VALUE"`
}

// Tag labels a lead
type Tag struct {
	TagName string `json:"TAG_NAME"`
}

// Target implements crm.Payload
func (*Lead) Target() domain.SyncTarget {
	return domain.SyncTargetInsightly
}

// Custom field names provisioned on the lead object
const (
	FieldInquiryID   = "INQUIRY_ID__c"
	FieldServiceArea = "SERVICE_AREA__c"
	FieldFormType    = "FORM_TYPE__c"
	FieldDashboard   = "DASHBOARD_URL__c"
)

// leadRecord is a lead as returned by the API
type leadRecord struct {
	LeadID         int64  `json:"LEAD_ID"`
	FirstName      string `json:"FIRST_NAME"`
	LastName       string `json:"LAST_NAME"`
	Email          string `json:"EMAIL"`
	LeadStatusID   *int64 `json:"LEAD_STATUS_ID"`
	Converted      bool   `json:"CONVERTED"`
	DateCreatedUTC string `json:"DATE_CREATED_UTC"`
}
