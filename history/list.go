package history

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ZaguanLabs/pdftl"
)

// blobStore persists the serialized history array.
type blobStore interface {
	// load returns nil data when nothing has been stored yet.
	load(ctx context.Context) ([]byte, error)
	save(ctx context.Context, data []byte) error
	clear(ctx context.Context) error
}

// listStore implements Store over a single serialized array. Unreadable data
// is discarded rather than reported.
type listStore struct {
	mu       sync.Mutex
	blob     blobStore
	maxItems int
	now      func() time.Time
	logger   *slog.Logger
}

func newListStore(blob blobStore, maxItems int, now func() time.Time, logger *slog.Logger) *listStore {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &listStore{blob: blob, maxItems: maxItems, now: now, logger: logger}
}

func (s *listStore) read(ctx context.Context) ([]pdftl.HistoryEntry, error) {
	data, err := s.blob.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []pdftl.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("discarding unreadable history", "error", err)
		return nil, nil
	}
	return entries, nil
}

func (s *listStore) write(ctx context.Context, entries []pdftl.HistoryEntry) error {
	if entries == nil {
		entries = []pdftl.HistoryEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.blob.save(ctx, data)
}

// List implements Store.
func (s *listStore) List(ctx context.Context, limit int) ([]pdftl.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx)
	if err != nil {
		return nil, wrapErr("list", err)
	}

	entries = SortEntries(entries, SortRecent)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get implements Store.
func (s *listStore) Get(ctx context.Context, pdfID string) (*pdftl.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx)
	if err != nil {
		return nil, wrapErr("get", err)
	}

	i := indexOf(entries, pdfID)
	if i < 0 {
		return nil, wrapErr("get", ErrNotFound)
	}
	e := entries[i]
	return &e, nil
}

// Upsert implements Store. The new or updated entry becomes the most recent,
// and the list is trimmed to the store's maximum.
func (s *listStore) Upsert(ctx context.Context, entry pdftl.HistoryEntry) error {
	if entry.PDFID == "" {
		return wrapErr("upsert", errors.New("entry has no pdf id"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx)
	if err != nil {
		return wrapErr("upsert", err)
	}

	now := pdftl.NewTimestamp(s.now())
	if i := indexOf(entries, entry.PDFID); i >= 0 {
		entry.UploadDate = entries[i].UploadDate
		entries = slices.Delete(entries, i, i+1)
	}
	if entry.UploadDate.IsZero() {
		entry.UploadDate = now
	}
	entry.LastReadDate = now
	if entry.TotalPages > 0 {
		entry.Progress = pdftl.Progress(entry.LastPage, entry.TotalPages)
	}

	entries = append([]pdftl.HistoryEntry{entry}, entries...)
	return wrapErr("upsert", s.write(ctx, s.trim(entries)))
}

// UpdateProgress implements Store and pdftl.ProgressReporter.
func (s *listStore) UpdateProgress(ctx context.Context, pdfID string, page, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx)
	if err != nil {
		return wrapErr("progress", err)
	}

	i := indexOf(entries, pdfID)
	if i < 0 {
		return wrapErr("progress", ErrNotFound)
	}

	e := entries[i]
	e.LastPage = page
	if total > 0 {
		e.TotalPages = total
	}
	e.Progress = pdftl.Progress(e.LastPage, e.TotalPages)
	e.LastReadDate = pdftl.NewTimestamp(s.now())

	entries = slices.Delete(entries, i, i+1)
	entries = append([]pdftl.HistoryEntry{e}, entries...)
	return wrapErr("progress", s.write(ctx, s.trim(entries)))
}

// Remove implements Store.
func (s *listStore) Remove(ctx context.Context, pdfID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx)
	if err != nil {
		return wrapErr("remove", err)
	}

	i := indexOf(entries, pdfID)
	if i < 0 {
		return nil
	}
	return wrapErr("remove", s.write(ctx, slices.Delete(entries, i, i+1)))
}

// Clear implements Store.
func (s *listStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wrapErr("clear", s.blob.clear(ctx))
}

// Stats implements Store.
func (s *listStore) Stats(ctx context.Context) (*pdftl.HistoryStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx)
	if err != nil {
		return nil, wrapErr("stats", err)
	}
	stats := ComputeStats(entries)
	return &stats, nil
}

func (s *listStore) trim(entries []pdftl.HistoryEntry) []pdftl.HistoryEntry {
	entries = SortEntries(entries, SortRecent)
	if len(entries) > s.maxItems {
		entries = entries[:s.maxItems]
	}
	return entries
}

func indexOf(entries []pdftl.HistoryEntry, pdfID string) int {
	return slices.IndexFunc(entries, func(e pdftl.HistoryEntry) bool {
		return e.PDFID == pdfID
	})
}
