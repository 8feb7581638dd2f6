package pdftl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PageContent is one rendered and translated page, as returned by the backend.
type PageContent struct {
	PageImage      []byte `json:"page_image"` // PNG bytes; base64 on the wire
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	PageNumber     int    `json:"page_number"` // 1-based
	TotalPages     int    `json:"total_pages"` // authoritative page count of the document
}

// DataURI returns the page image as a data URI suitable for direct display.
func (p *PageContent) DataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(p.PageImage)
}

// Document is the backend's handle for an uploaded or reopened PDF.
type Document struct {
	ID        string `json:"doc_id"`
	PageCount int    `json:"page_count"`
	Filename  string `json:"filename"`
}

// Status is the display status of a navigator session.
type Status int

const (
	// StatusIdle means no document is open.
	StatusIdle Status = iota
	// StatusLoading means a fetch for the displayed page is outstanding.
	StatusLoading
	// StatusReady means the displayed page's content is available.
	StatusReady
	// StatusError means the last fetch for the displayed page failed.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// NavigationState describes where the reader is within the document.
type NavigationState struct {
	CurrentPage int
	TotalPages  int // 0 until the backend has reported it
	IsFirstPage bool
	IsLastPage  bool
}

// ViewState is a snapshot of everything a display layer needs to render.
type ViewState struct {
	Seq        uint64 // increases with every change; later snapshots win
	Status     Status
	DocID      string
	Page       int          // page requested for display
	Content    *PageContent // set when Status is StatusReady
	Err        error        // set when Status is StatusError
	Languages  LanguagePair
	Navigation NavigationState
}

// ErrorMessage returns the user-facing message for a failed fetch, or "".
func (v ViewState) ErrorMessage() string {
	if v.Err == nil {
		return ""
	}
	var fetchErr *PageFetchError
	if errors.As(v.Err, &fetchErr) {
		return fetchErr.UserMessage()
	}
	return v.Err.Error()
}

// HistoryEntry is a persisted record of a previously opened document.
type HistoryEntry struct {
	PDFID        string    `json:"pdf_id"`
	Filename     string    `json:"filename"`
	FilePath     string    `json:"file_path,omitempty"`
	LastPage     int       `json:"last_page"`
	TotalPages   int       `json:"total_pages"`
	Progress     float64   `json:"progress"` // percent, one decimal
	Language     string    `json:"language,omitempty"`
	LanguageFlag string    `json:"language_flag,omitempty"`
	UploadDate   Timestamp `json:"upload_date"`
	LastReadDate Timestamp `json:"last_read_date"`
}

// Timestamp is a time that tolerates the layouts the history backends emit:
// RFC 3339, and the zone-less ISO form SQLite hands back.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// NewTimestamp wraps t, dropping the monotonic clock reading.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Round(0)}
}

// MarshalJSON encodes the time as RFC 3339; the zero time encodes as "".
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

// UnmarshalJSON accepts any of the known layouts, "" and null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// HistoryStats aggregates reading progress across history entries.
type HistoryStats struct {
	TotalDocuments     int     `json:"total_documents"`
	CompletedDocuments int     `json:"completed_documents"`
	AverageProgress    float64 `json:"average_progress"`
	TotalPagesRead     int     `json:"total_pages_read"`
}

// Progress returns the reading progress in percent, rounded to one decimal.
// It returns 0 when the total is unknown.
func Progress(page, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(page) / float64(total) * 100
	return float64(int64(p*10+0.5)) / 10
}
