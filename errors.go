package pdftl

import (
	"errors"
	"fmt"
)

// Sentinel errors callers branch on.
var (
	// ErrDocumentNotFound means the backend no longer knows the document.
	// The usual recovery is to drop it from history and return to upload.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrNoDocument is returned by navigation calls when no document is open.
	ErrNoDocument = errors.New("no document selected")

	// ErrPageOutOfRange is returned, with state unchanged, for page numbers
	// below 1 or beyond the known page count.
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrInvalidLanguage is returned for an unusable language pair.
	ErrInvalidLanguage = errors.New("invalid language")
)

// defaultPageErrorMessage is shown when the backend gives no usable detail.
const defaultPageErrorMessage = "Failed to load page"

// PageFetchError indicates a failure fetching one page from the backend.
type PageFetchError struct {
	Page       int
	StatusCode int    // HTTP status, 0 for transport failures
	Message    string // backend detail, if any
	Cause      error
	Retryable  bool // Whether the operation can be retried
}

func (e *PageFetchError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.Cause != nil {
		return fmt.Sprintf("page %d: %s: %v", e.Page, msg, e.Cause)
	}
	return fmt.Sprintf("page %d: %s", e.Page, msg)
}

func (e *PageFetchError) Unwrap() error {
	return e.Cause
}

// Is reports 404 responses as ErrDocumentNotFound.
func (e *PageFetchError) Is(target error) bool {
	return target == ErrDocumentNotFound && e.StatusCode == 404
}

// UserMessage returns the backend's message or a generic fallback.
func (e *PageFetchError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return defaultPageErrorMessage
}

// UploadError indicates an invalid file or a failed upload.
type UploadError struct {
	Filename   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *UploadError) Error() string {
	name := e.Filename
	if name == "" {
		name = "upload"
	}
	if e.Cause != nil {
		return fmt.Sprintf("upload error (%s): %s: %v", name, e.Message, e.Cause)
	}
	return fmt.Sprintf("upload error (%s): %s", name, e.Message)
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}

// Is reports 404 responses (reopen of an unknown pdf id) as ErrDocumentNotFound.
func (e *UploadError) Is(target error) bool {
	return target == ErrDocumentNotFound && e.StatusCode == 404
}

// HistoryError indicates a failed history store operation.
type HistoryError struct {
	Op    string // "list", "upsert", "progress", "remove", "clear", "stats"
	Cause error
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("history error: %s: %v", e.Op, e.Cause)
}

func (e *HistoryError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a shared page store failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}
