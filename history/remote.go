package history

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ZaguanLabs/pdftl"
)

// RemoteAPI is the backend's history API. *client.Client implements it.
type RemoteAPI interface {
	ListHistory(ctx context.Context, limit int) ([]pdftl.HistoryEntry, error)
	AddHistory(ctx context.Context, entry pdftl.HistoryEntry) error
	UpdateHistoryProgress(ctx context.Context, pdfID string, page, total int) error
	RemoveHistory(ctx context.Context, pdfID string) error
	ClearHistory(ctx context.Context) error
	HistoryStats(ctx context.Context) (*pdftl.HistoryStats, error)
}

// DefaultRemoteLimit is how many entries RemoteStore asks the backend for.
const DefaultRemoteLimit = 10

// RemoteOption configures a RemoteStore.
type RemoteOption func(*RemoteStore)

// WithRemoteLimit sets how many entries a refresh fetches.
func WithRemoteLimit(n int) RemoteOption {
	return func(s *RemoteStore) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithRemoteLogger sets the logger for background refresh failures.
func WithRemoteLogger(l *slog.Logger) RemoteOption {
	return func(s *RemoteStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRemoteClock overrides the clock used for upload dates.
func WithRemoteClock(now func() time.Time) RemoteOption {
	return func(s *RemoteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// RemoteStore keeps history on the backend. It mirrors the last list it
// fetched; after a failed mutation it refetches so the mirror matches the
// server again.
type RemoteStore struct {
	api    RemoteAPI
	limit  int
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries []pdftl.HistoryEntry
}

// NewRemoteStore creates a store backed by api.
func NewRemoteStore(api RemoteAPI, opts ...RemoteOption) *RemoteStore {
	s := &RemoteStore{
		api:    api,
		limit:  DefaultRemoteLimit,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Entries returns the most recently fetched list without contacting the
// backend.
func (s *RemoteStore) Entries() []pdftl.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Refresh refetches the list from the backend.
func (s *RemoteStore) Refresh(ctx context.Context) error {
	_, err := s.List(ctx, s.limit)
	return err
}

// List implements Store. A limit of 0 uses the store's configured limit.
func (s *RemoteStore) List(ctx context.Context, limit int) ([]pdftl.HistoryEntry, error) {
	if limit <= 0 {
		limit = s.limit
	}
	entries, err := s.api.ListHistory(ctx, limit)
	if err != nil {
		return nil, wrapErr("list", err)
	}

	s.mu.Lock()
	s.entries = slices.Clone(entries)
	s.mu.Unlock()
	return entries, nil
}

// Get implements Store. The backend has no single-entry endpoint, so this
// lists and searches.
func (s *RemoteStore) Get(ctx context.Context, pdfID string) (*pdftl.HistoryEntry, error) {
	entries, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	i := indexOf(entries, pdfID)
	if i < 0 {
		return nil, wrapErr("get", ErrNotFound)
	}
	e := entries[i]
	return &e, nil
}

// Upsert implements Store. The backend keeps the original upload date of an
// existing entry.
func (s *RemoteStore) Upsert(ctx context.Context, entry pdftl.HistoryEntry) error {
	if entry.LastPage < 1 {
		entry.LastPage = 1
	}
	if entry.UploadDate.IsZero() {
		entry.UploadDate = pdftl.NewTimestamp(s.now())
	}
	if entry.TotalPages > 0 {
		entry.Progress = pdftl.Progress(entry.LastPage, entry.TotalPages)
	}

	if err := s.api.AddHistory(ctx, entry); err != nil {
		s.resync(ctx)
		return wrapErr("upsert", err)
	}
	s.resync(ctx)
	return nil
}

// UpdateProgress implements Store and pdftl.ProgressReporter.
func (s *RemoteStore) UpdateProgress(ctx context.Context, pdfID string, page, total int) error {
	if err := s.api.UpdateHistoryProgress(ctx, pdfID, page, total); err != nil {
		s.resync(ctx)
		return wrapErr("progress", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.entries, pdfID); i >= 0 {
		e := &s.entries[i]
		e.LastPage = page
		if total > 0 {
			e.TotalPages = total
		}
		e.Progress = pdftl.Progress(e.LastPage, e.TotalPages)
		e.LastReadDate = pdftl.NewTimestamp(s.now())
	}
	return nil
}

// Remove implements Store.
func (s *RemoteStore) Remove(ctx context.Context, pdfID string) error {
	if err := s.api.RemoveHistory(ctx, pdfID); err != nil {
		s.resync(ctx)
		return wrapErr("remove", err)
	}

	s.mu.Lock()
	s.entries = slices.DeleteFunc(s.entries, func(e pdftl.HistoryEntry) bool {
		return e.PDFID == pdfID
	})
	s.mu.Unlock()
	return nil
}

// Clear implements Store.
func (s *RemoteStore) Clear(ctx context.Context) error {
	if err := s.api.ClearHistory(ctx); err != nil {
		s.resync(ctx)
		return wrapErr("clear", err)
	}

	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	return nil
}

// Stats implements Store.
func (s *RemoteStore) Stats(ctx context.Context) (*pdftl.HistoryStats, error) {
	stats, err := s.api.HistoryStats(ctx)
	if err != nil {
		return nil, wrapErr("stats", err)
	}
	return stats, nil
}

// resync refetches the mirror; its own failure is only logged.
func (s *RemoteStore) resync(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("history refresh failed", "error", err)
	}
}
