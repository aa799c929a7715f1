// Package insightly is the lead CRM client: leads over the Insightly v3.1 REST API.
package insightly

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"inquiryflow/internal/config"
	"inquiryflow/internal/crm"
	apperrors "inquiryflow/pkg/errors"
)

const system = "insightly"

// searchLimit caps results per duplicate lookup
const searchLimit = 25

// Insightly reports timestamps in UTC without a zone suffix
const dateLayout = "2006-01-02 15:04:05"

// Options configures a Client
type Options struct {
	BaseURL    string
	WebURL     string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OptionsFromConfig maps service configuration onto client options
func OptionsFromConfig(cfg *config.InsightlyConfig) Options {
	return Options{
		BaseURL: cfg.BaseURL,
		WebURL:  cfg.WebURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	}
}

// Client talks to one Insightly instance. It never retries; callers decide.
type Client struct {
	baseURL string
	webURL  string
	// authorization is HTTP Basic with the API key as user and an empty password.
	authorization string
	httpClient    *http.Client
}

// New creates a client
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.na1.insightly.com/v3.1"
	}
	webURL := strings.TrimRight(strings.TrimSpace(opts.WebURL), "/")
	if webURL == "" {
		webURL = "https://crm.na1.insightly.com"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = crm.DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:       baseURL,
		webURL:        webURL,
		authorization: "Basic " + base64.StdEncoding.EncodeToString([]byte(opts.APIKey+":")),
		httpClient:    httpClient,
	}
}

// LeadURL is the browser link for a lead
func (c *Client) LeadURL(id string) string {
	return c.webURL + "/details/Lead/" + id
}

// CreateLead creates a lead and returns its reference
func (c *Client) CreateLead(ctx context.Context, lead *Lead) (crm.Ref, error) {
	body := *lead
	body.LeadID = 0

	var created leadRecord
	if err := c.do(ctx, http.MethodPost, "/Leads", &body, &created); err != nil {
		return crm.Ref{}, err
	}
	if created.LeadID == 0 {
		return crm.Ref{}, apperrors.New(apperrors.ErrCodeExternalRejected, "insightly returned no LEAD_ID")
	}
	id := strconv.FormatInt(created.LeadID, 10)
	return crm.Ref{ID: id, URL: c.LeadURL(id)}, nil
}

// UpdateLead replaces the mapped fields of an existing lead
func (c *Client) UpdateLead(ctx context.Context, id string, lead *Lead) (crm.Ref, error) {
	leadID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return crm.Ref{}, apperrors.Wrap(apperrors.ErrCodeInvalidPayload, "stored insightly lead id is not numeric", err)
	}
	body := *lead
	body.LeadID = leadID

	if err := c.do(ctx, http.MethodPut, "/Leads", &body, nil); err != nil {
		return crm.Ref{}, err
	}
	return crm.Ref{ID: id, URL: c.LeadURL(id)}, nil
}

// SearchLeadsByName finds leads by last name and keeps those whose first name
// also matches, ignoring case. A single-word name is stored as the last name,
// so it is searched as LAST_NAME and then FIRST_NAME, and the results unioned.
func (c *Client) SearchLeadsByName(ctx context.Context, first, last string) ([]crm.Lead, error) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if last == "" {
		return c.searchSingleName(ctx, first)
	}
	if first == "" {
		return c.searchSingleName(ctx, last)
	}

	leads, err := c.search(ctx, "LAST_NAME", last)
	if err != nil {
		return nil, err
	}
	out := leads[:0]
	for _, l := range leads {
		if strings.EqualFold(strings.TrimSpace(l.FirstName), first) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (c *Client) searchSingleName(ctx context.Context, name string) ([]crm.Lead, error) {
	if name == "" {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "name is required for a lead search")
	}
	byLast, err := c.search(ctx, "LAST_NAME", name)
	if err != nil {
		return nil, err
	}
	byFirst, err := c.search(ctx, "FIRST_NAME", name)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(byLast))
	out := make([]crm.Lead, 0, len(byLast)+len(byFirst))
	for _, l := range append(byLast, byFirst...) {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	return out, nil
}

// SearchLeadsByEmail finds leads with the exact email
func (c *Client) SearchLeadsByEmail(ctx context.Context, email string) ([]crm.Lead, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "email is required for a lead search")
	}
	return c.search(ctx, "EMAIL", email)
}

// Create implements the orchestrator client contract
func (c *Client) Create(ctx context.Context, p crm.Payload) (crm.Ref, error) {
	lead, err := asLead(p)
	if err != nil {
		return crm.Ref{}, err
	}
	return c.CreateLead(ctx, lead)
}

// Update implements the orchestrator client contract
func (c *Client) Update(ctx context.Context, externalID string, p crm.Payload) (crm.Ref, error) {
	lead, err := asLead(p)
	if err != nil {
		return crm.Ref{}, err
	}
	return c.UpdateLead(ctx, externalID, lead)
}

func asLead(p crm.Payload) (*Lead, error) {
	lead, ok := p.(*Lead)
	if !ok || lead == nil {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidPayload, "insightly expects a lead payload, got %T", p)
	}
	return lead, nil
}

func (c *Client) search(ctx context.Context, field, value string) ([]crm.Lead, error) {
	q := url.Values{}
	q.Set("field_name", field)
	q.Set("field_value", value)
	q.Set("top", strconv.Itoa(searchLimit))

	var records []leadRecord
	if err := c.do(ctx, http.MethodGet, "/Leads/Search?"+q.Encode(), nil, &records); err != nil {
		return nil, err
	}

	leads := make([]crm.Lead, 0, len(records))
	for _, r := range records {
		id := strconv.FormatInt(r.LeadID, 10)
		lead := crm.Lead{
			ID:        id,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Email:     r.Email,
			Status:    leadStatus(r),
			URL:       c.LeadURL(id),
		}
		if t, err := time.Parse(dateLayout, r.DateCreatedUTC); err == nil {
			lead.CreatedAt = t.UTC()
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

func leadStatus(r leadRecord) string {
	switch {
	case r.Converted:
		return "converted"
	case r.LeadStatusID != nil:
		return fmt.Sprintf("status-%d", *r.LeadStatusID)
	}
	return "open"
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return crm.Do(ctx, c.httpClient, crm.Request{
		System: system,
		Method: method,
		URL:    c.baseURL + path,
		Body:   body,
		Header: http.Header{"Authorization": []string{c.authorization}},
	}, out)
}
