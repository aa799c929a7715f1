// Package monday is the work-board CRM client: board items over the monday.com GraphQL API.
package monday

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"inquiryflow/internal/config"
	"inquiryflow/internal/crm"
	apperrors "inquiryflow/pkg/errors"

	"golang.org/x/oauth2"
)

const (
	system     = "monday"
	apiVersion = "2024-10"
)

const createItemMutation = `mutation ($boardId: ID!, $groupId: String, $itemName: String!, $columnValues: JSON) {
  create_item (board_id: $boardId, group_id: $groupId, item_name: $itemName, column_values: $columnValues, create_labels_if_missing: true) { id }
}`

const updateItemMutation = `mutation ($boardId: ID!, $itemId: ID!, $columnValues: JSON!) {
  change_multiple_column_values (board_id: $boardId, item_id: $itemId, column_values: $columnValues, create_labels_if_missing: true) { id }
}`

// Error codes monday reports for throttling; they clear on their own.
var transientCodes = map[string]bool{
	"ComplexityException":        true,
	"RATE_LIMIT_EXCEEDED":        true,
	"maxComplexityExceeded":      true,
	"IP_RATE_LIMIT_EXCEEDED":     true,
	"DAILY_LIMIT_EXCEEDED":       true,
	"CONCURRENCY_LIMIT_EXCEEDED": true,
}

// Options configures a Client
type Options struct {
	BaseURL  string
	APIToken string
	BoardID  string
	GroupID  string
	Account  string
	Timeout  time.Duration
	// Base is the transport under the token source; http.DefaultTransport when nil.
	Base http.RoundTripper
}

// OptionsFromConfig maps service configuration onto client options
func OptionsFromConfig(cfg *config.MondayConfig) Options {
	return Options{
		BaseURL:  cfg.BaseURL,
		APIToken: cfg.APIToken,
		BoardID:  cfg.BoardID,
		GroupID:  cfg.GroupID,
		Account:  cfg.Account,
		Timeout:  cfg.Timeout,
	}
}

// Client writes items to one board. It never retries; callers decide.
type Client struct {
	endpoint   string
	boardID    string
	groupID    string
	account    string
	httpClient *http.Client
}

// New creates a client. The API token is attached by an oauth2 static token source.
func New(opts Options) *Client {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if endpoint == "" {
		endpoint = "https://api.monday.com/v2"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = crm.DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		boardID:  opts.BoardID,
		groupID:  opts.GroupID,
		account:  opts.Account,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIToken, TokenType: "Bearer"}),
				Base:   opts.Base,
			},
		},
	}
}

// ItemURL is the browser link for an item on the board
func (c *Client) ItemURL(itemID string) string {
	host := "monday.com"
	if c.account != "" {
		host = c.account + ".monday.com"
	}
	return fmt.Sprintf("https://%s/boards/%s/pulses/%s", host, c.boardID, itemID)
}

// CreateItem adds an item to the configured board and group
func (c *Client) CreateItem(ctx context.Context, item *Item) (crm.Ref, error) {
	columns, err := encodeColumns(item.ColumnValues)
	if err != nil {
		return crm.Ref{}, err
	}
	vars := map[string]any{
		"boardId":      c.boardID,
		"itemName":     item.Name,
		"columnValues": columns,
	}
	if c.groupID != "" {
		vars["groupId"] = c.groupID
	}

	var data struct {
		CreateItem *struct {
			ID string `json:"id"`
		} `json:"create_item"`
	}
	if err := c.graphql(ctx, createItemMutation, vars, &data); err != nil {
		return crm.Ref{}, err
	}
	if data.CreateItem == nil || data.CreateItem.ID == "" {
		return crm.Ref{}, apperrors.New(apperrors.ErrCodeExternalRejected, "monday returned no item id")
	}
	return crm.Ref{ID: data.CreateItem.ID, URL: c.ItemURL(data.CreateItem.ID)}, nil
}

// UpdateItem rewrites the item's name and mapped columns
func (c *Client) UpdateItem(ctx context.Context, itemID string, item *Item) (crm.Ref, error) {
	values := make(map[string]any, len(item.ColumnValues)+1)
	for k, v := range item.ColumnValues {
		values[k] = v
	}
	values["name"] = item.Name
	columns, err := encodeColumns(values)
	if err != nil {
		return crm.Ref{}, err
	}

	var data struct {
		ChangeMultipleColumnValues *struct {
			ID string `json:"id"`
		} `json:"change_multiple_column_values"`
	}
	vars := map[string]any{"boardId": c.boardID, "itemId": itemID, "columnValues": columns}
	if err := c.graphql(ctx, updateItemMutation, vars, &data); err != nil {
		return crm.Ref{}, err
	}
	if data.ChangeMultipleColumnValues == nil {
		return crm.Ref{}, apperrors.Newf(apperrors.ErrCodeExternalRejected, "monday did not update item %s", itemID)
	}
	return crm.Ref{ID: itemID, URL: c.ItemURL(itemID)}, nil
}

// Create implements the orchestrator client contract
func (c *Client) Create(ctx context.Context, p crm.Payload) (crm.Ref, error) {
	item, err := asItem(p)
	if err != nil {
		return crm.Ref{}, err
	}
	return c.CreateItem(ctx, item)
}

// Update implements the orchestrator client contract
func (c *Client) Update(ctx context.Context, externalID string, p crm.Payload) (crm.Ref, error) {
	item, err := asItem(p)
	if err != nil {
		return crm.Ref{}, err
	}
	return c.UpdateItem(ctx, externalID, item)
}

func asItem(p crm.Payload) (*Item, error) {
	item, ok := p.(*Item)
	if !ok || item == nil {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidPayload, "monday expects an item payload, got %T", p)
	}
	return item, nil
}

// column_values travels as a JSON-encoded string inside the variables
func encodeColumns(values map[string]any) (string, error) {
	if values == nil {
		values = map[string]any{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInvalidPayload, "monday column values are not serializable", err)
	}
	return string(raw), nil
}

type graphqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type graphqlResponse struct {
	Data         json.RawMessage `json:"data"`
	Errors       []graphqlError  `json:"errors"`
	ErrorCode    string          `json:"error_code"`
	ErrorMessage string          `json:"error_message"`
}

// graphql posts one operation. monday reports many failures with HTTP 200 and
// an errors array, which are classified like status errors.
func (c *Client) graphql(ctx context.Context, query string, vars map[string]any, data any) error {
	var resp graphqlResponse
	err := crm.Do(ctx, c.httpClient, crm.Request{
		System: system,
		Method: http.MethodPost,
		URL:    c.endpoint,
		Body:   map[string]any{"query": query, "variables": vars},
		Header: http.Header{"API-Version": []string{apiVersion}},
	}, &resp)
	if err != nil {
		return err
	}

	if resp.ErrorCode != "" || resp.ErrorMessage != "" {
		return classify(resp.ErrorCode, resp.ErrorMessage)
	}
	if len(resp.Errors) > 0 {
		first := resp.Errors[0]
		return classify(first.Extensions.Code, first.Message)
	}
	if data != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeExternalRejected, "monday returned an unreadable response", err)
		}
	}
	return nil
}

func classify(code, message string) error {
	msg := fmt.Sprintf("monday error %s: %s", code, message)
	if code == "" {
		msg = "monday error: " + message
	}
	if transientCodes[code] {
		return apperrors.New(apperrors.ErrCodeExternalUnavailable, msg)
	}
	return apperrors.New(apperrors.ErrCodeExternalRejected, msg)
}
