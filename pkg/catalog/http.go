package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-ticketform/pkg/model"
)

// HTTPOption configures the HTTP client adapter.
type HTTPOption func(*HTTPClient)

// WithHTTPDoer overrides the *http.Client used for requests.
func WithHTTPDoer(client *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithResultsPath sets the dotted path to the results array inside option
// responses (default "results").
func WithResultsPath(path string) HTTPOption {
	return func(c *HTTPClient) {
		c.resultsPath = strings.TrimSpace(path)
	}
}

// WithOptionFields overrides which keys hold an option's value and label
// (defaults "value" and "label").
func WithOptionFields(valueField, labelField string) HTTPOption {
	return func(c *HTTPClient) {
		if v := strings.TrimSpace(valueField); v != "" {
			c.valueField = v
		}
		if l := strings.TrimSpace(labelField); l != "" {
			c.labelField = l
		}
	}
}

// WithHeader adds a static header (for example an API token) to every call.
func WithHeader(name, value string) HTTPOption {
	return func(c *HTTPClient) {
		if strings.TrimSpace(name) == "" {
			return
		}
		c.headers.Set(name, value)
	}
}

// HTTPClient reaches a remote catalog/ticket backend over JSON/HTTP:
//
//	GET  {base}/options/{kind}?k=v   -> {"results":[{"label":..,"value":..}]}
//	GET  {base}/exists/{kind}?k=v    -> {"exists":true}
//	GET  {base}/tickets/{id}         -> model.Document
//	POST {base}/tickets              -> {"ticketId":..}
//	PUT  {base}/tickets/{id}         -> {"ticketId":..}
//
// A 422 response carrying {"errors":{path:[messages]}} becomes a
// *RejectedError.
type HTTPClient struct {
	base        *url.URL
	client      *http.Client
	resultsPath string
	valueField  string
	labelField  string
	headers     http.Header
}

// NewHTTPClient constructs the adapter for baseURL.
func NewHTTPClient(baseURL string, options ...HTTPOption) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("catalog: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("catalog: base url %q must be absolute", baseURL)
	}
	c := &HTTPClient{
		base:        base,
		client:      http.DefaultClient,
		resultsPath: "results",
		valueField:  "value",
		labelField:  "label",
		headers:     make(http.Header),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c, nil
}

// LookupOptions implements Catalog.
func (c *HTTPClient) LookupOptions(ctx context.Context, kind string, params Params) ([]model.Option, error) {
	var payload any
	if err := c.do(ctx, http.MethodGet, c.endpoint(params, "options", kind), nil, &payload); err != nil {
		return nil, fmt.Errorf("catalog: lookup %s: %w", kind, err)
	}

	var opts []model.Option
	for _, item := range extractResults(payload, c.resultsPath) {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		value := pickValue(obj, c.valueField)
		if value == "" {
			continue
		}
		label := pickValue(obj, c.labelField)
		if label == "" {
			label = value
		}
		opts = append(opts, model.Option{Label: label, Value: value})
	}
	return opts, nil
}

// CheckExists implements Catalog.
func (c *HTTPClient) CheckExists(ctx context.Context, kind string, params Params) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	if err := c.do(ctx, http.MethodGet, c.endpoint(params, "exists", kind), nil, &out); err != nil {
		return false, fmt.Errorf("catalog: check %s: %w", kind, err)
	}
	return out.Exists, nil
}

// FetchTicket implements Tickets.
func (c *HTTPClient) FetchTicket(ctx context.Context, ticketID string) (model.Document, error) {
	var doc model.Document
	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, "tickets", ticketID), nil, &doc); err != nil {
		return model.Document{}, fmt.Errorf("catalog: fetch ticket %s: %w", ticketID, err)
	}
	return doc, nil
}

// SubmitTicket implements Tickets.
func (c *HTTPClient) SubmitTicket(ctx context.Context, sub Submission) (Receipt, error) {
	body, err := json.Marshal(sub.Payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("catalog: encode payload: %w", err)
	}

	method, target := http.MethodPost, c.endpoint(nil, "tickets")
	if sub.Mode == ModeEdit {
		method, target = http.MethodPut, c.endpoint(nil, "tickets", sub.TicketID)
	}

	var receipt Receipt
	if err := c.do(ctx, method, target, body, &receipt); err != nil {
		return Receipt{}, fmt.Errorf("catalog: submit ticket: %w", err)
	}
	if receipt.TicketID == "" {
		receipt.TicketID = sub.TicketID
	}
	return receipt, nil
}

func (c *HTTPClient) endpoint(params Params, segments ...string) string {
	u := *c.base
	escaped := make([]string, 0, len(segments))
	for _, seg := range segments {
		escaped = append(escaped, url.PathEscape(seg))
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(escaped, "/")
	if len(params) > 0 {
		q := u.Query()
		for key, values := range params {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *HTTPClient) do(ctx context.Context, method, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, values := range c.headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return decodeRejection(resp.Body)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func decodeRejection(r io.Reader) error {
	var payload struct {
		Errors map[string][]string `json:"errors"`
		Form   []string            `json:"form"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return &RejectedError{Form: []string{"submission rejected"}}
	}
	return &RejectedError{Fields: payload.Errors, Form: payload.Form}
}

func extractResults(payload any, path string) []any {
	cur := payload
	if path != "" {
		for _, segment := range strings.Split(path, ".") {
			node, ok := cur.(map[string]any)
			if !ok {
				break
			}
			cur = node[segment]
		}
	}
	if list, ok := cur.([]any); ok {
		return list
	}
	if list, ok := payload.([]any); ok {
		return list
	}
	return nil
}

func pickValue(m map[string]any, path string) string {
	var cur any = m
	for _, segment := range strings.Split(path, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = node[segment]
	}
	if cur == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(cur))
}
