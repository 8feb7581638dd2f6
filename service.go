package pdftl

import (
	"context"
	"io"
)

// PageService fetches one rendered and translated page from the backend.
type PageService interface {
	GetPage(ctx context.Context, docID string, page int, langs LanguagePair) (*PageContent, error)
}

// Uploader sends a PDF to the backend and returns its new document handle.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*Document, error)
}

// DocumentCloser releases server-side resources for a document.
type DocumentCloser interface {
	CloseDocument(ctx context.Context, docID string) error
}

// Reopener derives a usable document handle from a previously known pdf id.
type Reopener interface {
	Reopen(ctx context.Context, pdfID string) (*Document, error)
}

// ProgressReporter receives reading progress. Calls are fire-and-forget from
// the navigator's point of view.
type ProgressReporter interface {
	UpdateProgress(ctx context.Context, docID string, page, total int) error
}

// PageStore is a string key/value store shared across navigator sessions.
// The cache package provides in-memory and Redis implementations.
type PageStore interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
	Delete(key string) error
}
