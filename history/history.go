// Package history keeps the "recently opened" list of documents.
//
// Three stores share one contract: FileStore keeps a JSON array in the user's
// state directory, RedisStore keeps the same array under one Redis key, and
// RemoteStore delegates to the backend's history API. All of them satisfy
// pdftl.ProgressReporter, so a store can be handed straight to a Navigator.
package history

import (
	"context"
	"errors"

	"github.com/ZaguanLabs/pdftl"
)

// DefaultMaxItems is how many entries the local stores keep.
const DefaultMaxItems = 4

// ErrNotFound is returned for operations on an unknown pdf id.
var ErrNotFound = errors.New("history entry not found")

// Store is a history backend.
type Store interface {
	// List returns up to limit entries, most recently read first.
	// A limit of 0 returns everything.
	List(ctx context.Context, limit int) ([]pdftl.HistoryEntry, error)

	// Get returns one entry or ErrNotFound.
	Get(ctx context.Context, pdfID string) (*pdftl.HistoryEntry, error)

	// Upsert adds an entry or replaces the one with the same pdf id,
	// keeping its original upload date.
	Upsert(ctx context.Context, entry pdftl.HistoryEntry) error

	// UpdateProgress records the reader's position in a document.
	UpdateProgress(ctx context.Context, pdfID string, page, total int) error

	// Remove deletes one entry. Removing an unknown id is not an error.
	Remove(ctx context.Context, pdfID string) error

	// Clear deletes every entry.
	Clear(ctx context.Context) error

	// Stats aggregates reading progress over all entries.
	Stats(ctx context.Context) (*pdftl.HistoryStats, error)
}

// wrapErr reports a store failure as a *pdftl.HistoryError.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var histErr *pdftl.HistoryError
	if errors.As(err, &histErr) {
		return err
	}
	return &pdftl.HistoryError{Op: op, Cause: err}
}

// Verify the stores implement Store and pdftl.ProgressReporter
var (
	_ Store                  = (*FileStore)(nil)
	_ Store                  = (*RedisStore)(nil)
	_ Store                  = (*RemoteStore)(nil)
	_ pdftl.ProgressReporter = (*FileStore)(nil)
	_ pdftl.ProgressReporter = (*RedisStore)(nil)
	_ pdftl.ProgressReporter = (*RemoteStore)(nil)
)
