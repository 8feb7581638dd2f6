package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/ZaguanLabs/pdftl"
)

// maxMessageLen truncates messages taken from raw bodies.
const maxMessageLen = 200

// APIError indicates a failed call to a backend endpoint other than page
// fetch and upload.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Cause      error
	Retryable  bool
}

func (e *APIError) Error() string {
	prefix := fmt.Sprintf("%s %s", e.Method, e.Path)
	if e.StatusCode != 0 {
		prefix += fmt.Sprintf(" (%d)", e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Is reports 404 responses as pdftl.ErrDocumentNotFound.
func (e *APIError) Is(target error) bool {
	return target == pdftl.ErrDocumentNotFound && e.StatusCode == http.StatusNotFound
}

// readErrorMessage extracts a human-readable message from an error response.
// The backend answers {"detail": ...}; proxies in front of it answer HTML.
func readErrorMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if msg := errorMessage(resp.Header.Get("Content-Type"), body); msg != "" {
		return msg
	}
	return http.StatusText(resp.StatusCode)
}

func errorMessage(contentType string, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	switch {
	case strings.Contains(contentType, "json") || trimmed[0] == '{':
		if msg := detailMessage(trimmed); msg != "" {
			return msg
		}
	case strings.Contains(contentType, "html") || trimmed[0] == '<':
		if msg := htmlMessage(trimmed); msg != "" {
			return msg
		}
	}

	return truncate(collapseSpace(string(trimmed)))
}

// detailMessage reads FastAPI-style errors: detail is either a string or a
// list of validation errors with a msg field.
func detailMessage(body []byte) string {
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}

	if len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}

		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}

	return envelope.Message
}

// htmlMessage reduces an HTML error page to its title, first heading or text.
func htmlMessage(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	for _, sel := range []string{"title", "h1"} {
		if text := collapseSpace(doc.Find(sel).First().Text()); text != "" {
			return truncate(text)
		}
	}

	doc.Find("script, style").Remove()
	return truncate(collapseSpace(doc.Find("body").Text()))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
