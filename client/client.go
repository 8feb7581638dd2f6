// Package client implements the HTTP client for the PDF translation backend:
// upload, page rendering, document close and reopen, and the remote history API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ZaguanLabs/pdftl"
	"github.com/google/uuid"
)

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://localhost:8000"

// DefaultTimeout bounds one backend request. Rendering and translating a page
// can take tens of seconds.
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client talks to the backend over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger for request tracing at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the backend at baseURL (DefaultBaseURL if empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  pdftl.UserAgent(),
		logger:     slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetPage fetches one rendered page with its original and translated text.
func (c *Client) GetPage(ctx context.Context, docID string, page int, langs pdftl.LanguagePair) (*pdftl.PageContent, error) {
	query := url.Values{}
	query.Set("source_lang", langs.Source)
	query.Set("target_lang", langs.Target)

	path := "/pdf/" + url.PathEscape(docID) + "/page/" + strconv.Itoa(page)

	resp, err := c.do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return nil, &pdftl.PageFetchError{
			Page:      page,
			Cause:     err,
			Retryable: isRetryableTransport(ctx, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &pdftl.PageFetchError{
			Page:       page,
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp),
			Retryable:  isRetryableStatus(resp.StatusCode),
		}
	}

	var content pdftl.PageContent
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, &pdftl.PageFetchError{
			Page:    page,
			Message: "invalid page response",
			Cause:   err,
		}
	}

	return &content, nil
}

// Upload sends a PDF as the multipart field "file".
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*pdftl.Document, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, &pdftl.UploadError{Filename: filename, Message: "building request", Cause: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, &pdftl.UploadError{Filename: filename, Message: "reading file", Cause: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &pdftl.UploadError{Filename: filename, Message: "building request", Cause: err}
	}

	return c.postDocument(ctx, "/pdf/upload", filename, &body, mw.FormDataContentType())
}

// UploadFile uploads the PDF at path.
func (c *Client) UploadFile(ctx context.Context, path string) (*pdftl.Document, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, &pdftl.UploadError{Filename: filepath.Base(path), Message: "opening file", Cause: err}
	}
	defer f.Close()

	return c.Upload(ctx, path, f)
}

// Reopen re-derives a usable document handle from a pdf id known to history.
// An unknown id yields an error matching pdftl.ErrDocumentNotFound.
func (c *Client) Reopen(ctx context.Context, pdfID string) (*pdftl.Document, error) {
	return c.postDocument(ctx, "/pdf/reopen/"+url.PathEscape(pdfID), pdfID, nil, "")
}

func (c *Client) postDocument(ctx context.Context, path, filename string, body io.Reader, contentType string) (*pdftl.Document, error) {
	resp, err := c.do(ctx, http.MethodPost, path, nil, body, contentType)
	if err != nil {
		return nil, &pdftl.UploadError{Filename: filepath.Base(filename), Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &pdftl.UploadError{
			Filename:   filepath.Base(filename),
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp),
		}
	}

	var doc pdftl.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &pdftl.UploadError{Filename: filepath.Base(filename), Message: "invalid response", Cause: err}
	}
	if doc.ID == "" {
		return nil, &pdftl.UploadError{Filename: filepath.Base(filename), Message: "response has no doc_id"}
	}

	return &doc, nil
}

// CloseDocument releases the backend's resources for docID.
func (c *Client) CloseDocument(ctx context.Context, docID string) error {
	return c.call(ctx, http.MethodDelete, "/pdf/"+url.PathEscape(docID), nil, nil, nil)
}

// call performs a JSON request. in is encoded as the body when non-nil, and
// out receives the decoded response when non-nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, query, body, contentType)
	if err != nil {
		return &APIError{
			Method:    method,
			Path:      path,
			Message:   "request failed",
			Cause:     err,
			Retryable: isRetryableTransport(ctx, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp),
			Retryable:  isRetryableStatus(resp.StatusCode),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: "invalid response", Cause: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed",
			"method", method,
			"path", path,
			"request_id", requestID,
			"error", err)
		return nil, err
	}

	c.logger.Debug("backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID)

	return resp, nil
}

// isRetryableStatus reports statuses worth retrying: timeouts, throttling and
// server errors.
func isRetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

// isRetryableTransport reports whether a transport failure is worth retrying.
// Failures caused by the caller's own context are not.
func isRetryableTransport(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// Verify Client implements the backend interfaces
var (
	_ pdftl.PageService    = (*Client)(nil)
	_ pdftl.Uploader       = (*Client)(nil)
	_ pdftl.DocumentCloser = (*Client)(nil)
	_ pdftl.Reopener       = (*Client)(nil)
)
