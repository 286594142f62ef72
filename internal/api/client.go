// Package api implements the client for the auto-posting backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"autopost_bot/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the auto-posting backend.
type Client struct {
	client  HTTPClient
	baseURL string
	token   string
}

// New creates a Client for the backend at baseURL.
func New(client HTTPClient, baseURL, token string) *Client {
	return &Client{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// ListRules returns all rules for the authenticated user.
func (c *Client) ListRules(ctx context.Context) ([]model.Rule, error) {
	var out rulesEnvelope
	if err := c.call(ctx, http.MethodGet, "/api/rules", nil, nil, "", &out); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	rules := make([]model.Rule, 0, len(out.Data.Rules))
	for _, w := range out.Data.Rules {
		rules = append(rules, w.toRule())
	}
	return rules, nil
}

// ListChannels returns the publishing destinations available to rules.
func (c *Client) ListChannels(ctx context.Context) ([]model.Channel, error) {
	var out channelsEnvelope
	if err := c.call(ctx, http.MethodGet, "/api/channels", nil, nil, "", &out); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	channels := make([]model.Channel, 0, len(out.Data.Channels))
	for _, w := range out.Data.Channels {
		channels = append(channels, model.Channel(w))
	}
	return channels, nil
}

// CreateRule submits a new rule. The request carries a fresh idempotency
// key so an accidental resubmission cannot create a duplicate.
func (c *Client) CreateRule(ctx context.Context, p RulePayload) error {
	var out statusEnvelope
	if err := c.call(ctx, http.MethodPost, "/api/rules", nil, p, uuid.NewString(), &out); err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

// UpdateRule submits a full replacement of an existing rule's fields.
func (c *Client) UpdateRule(ctx context.Context, id string, p RulePayload) error {
	var out statusEnvelope
	path := "/api/rules/" + url.PathEscape(id)
	if err := c.call(ctx, http.MethodPut, path, nil, p, uuid.NewString(), &out); err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return nil
}

// DeleteRule removes a rule by its backend identifier.
func (c *Client) DeleteRule(ctx context.Context, id string) error {
	var out statusEnvelope
	path := "/api/rules/" + url.PathEscape(id)
	if err := c.call(ctx, http.MethodDelete, path, nil, nil, "", &out); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// HistoryQuery describes one page request against the posting history.
type HistoryQuery struct {
	Page     int
	PageSize int
	Status   string
	Search   string
}

// HistoryPage is one fetched page of posting history. TotalPages is the
// server-declared page count and the only source of truth for whether
// more pages exist.
type HistoryPage struct {
	Entries    []model.HistoryEntry
	TotalPages int
}

// History fetches one page of past posting attempts.
func (c *Client) History(ctx context.Context, q HistoryQuery) (*HistoryPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("pageSize", strconv.Itoa(q.PageSize))
	query.Set("filter", q.Status)
	query.Set("search", q.Search)

	var out historyEnvelope
	if err := c.call(ctx, http.MethodGet, "/api/history", query, nil, "", &out); err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	entries := make([]model.HistoryEntry, 0, len(out.Data.History))
	for _, w := range out.Data.History {
		entries = append(entries, w.toEntry())
	}
	return &HistoryPage{
		Entries:    entries,
		TotalPages: out.Data.Pagination.TotalPages,
	}, nil
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload any, idemKey string, out result) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e envelope
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, e.Message)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !out.ok() {
		if msg := out.errorMessage(); msg != "" {
			return fmt.Errorf("backend rejected request: %s", msg)
		}
		return fmt.Errorf("backend rejected request")
	}
	return nil
}
