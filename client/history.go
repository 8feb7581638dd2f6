package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ZaguanLabs/pdftl"
)

// envelope is the backend's {status, data} response wrapper.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// progressRequest is the body of PUT /pdf/history/progress.
type progressRequest struct {
	PDFID       string `json:"pdf_id"`
	CurrentPage int    `json:"current_page"`
	TotalPages  int    `json:"total_pages"`
}

// ListHistory returns up to limit history entries, most recent first.
// A limit of 0 leaves the choice to the backend.
func (c *Client) ListHistory(ctx context.Context, limit int) ([]pdftl.HistoryEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var entries []pdftl.HistoryEntry
	if err := c.callData(ctx, http.MethodGet, "/pdf/history", query, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []pdftl.HistoryEntry{}
	}
	return entries, nil
}

// AddHistory adds or replaces an entry.
func (c *Client) AddHistory(ctx context.Context, entry pdftl.HistoryEntry) error {
	return c.call(ctx, http.MethodPost, "/pdf/history", nil, entry, nil)
}

// UpdateHistoryProgress records the reader's position. The backend derives
// the progress percentage and last-read date.
func (c *Client) UpdateHistoryProgress(ctx context.Context, pdfID string, page, total int) error {
	body := progressRequest{PDFID: pdfID, CurrentPage: page, TotalPages: total}
	return c.call(ctx, http.MethodPut, "/pdf/history/progress", nil, body, nil)
}

// RemoveHistory deletes one entry.
func (c *Client) RemoveHistory(ctx context.Context, pdfID string) error {
	return c.call(ctx, http.MethodDelete, "/pdf/history/"+url.PathEscape(pdfID), nil, nil, nil)
}

// ClearHistory deletes every entry.
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/pdf/history", nil, nil, nil)
}

// HistoryStats returns aggregate reading statistics.
func (c *Client) HistoryStats(ctx context.Context) (*pdftl.HistoryStats, error) {
	var stats pdftl.HistoryStats
	if err := c.callData(ctx, http.MethodGet, "/pdf/history/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// callData performs a GET-style call and decodes the data field of the
// response envelope into out. Bare (unwrapped) payloads are accepted too.
func (c *Client) callData(ctx context.Context, method, path string, query url.Values, out any) error {
	var raw json.RawMessage
	if err := c.call(ctx, method, path, query, nil, &raw); err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		raw = env.Data
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Method: method, Path: path, StatusCode: http.StatusOK, Message: "invalid response", Cause: err}
	}
	return nil
}
