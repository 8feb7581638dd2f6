package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ZaguanLabs/pdftl"
)

// ExportVersion is written to every export and accepted on import.
const ExportVersion = "1.0"

// Export is the portable form of a history list.
type Export struct {
	ExportDate pdftl.Timestamp      `json:"export_date"`
	Version    string               `json:"version"`
	History    []pdftl.HistoryEntry `json:"history"`
}

// WriteExport writes entries as an indented export document.
func WriteExport(w io.Writer, entries []pdftl.HistoryEntry, now time.Time) error {
	if entries == nil {
		entries = []pdftl.HistoryEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Export{
		ExportDate: pdftl.NewTimestamp(now),
		Version:    ExportVersion,
		History:    entries,
	})
}

// ReadExport parses an export document. Entries lacking an id, a filename,
// or either page field are dropped.
func ReadExport(r io.Reader) ([]pdftl.HistoryEntry, error) {
	var doc struct {
		Version string            `json:"version"`
		History []json.RawMessage `json:"history"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid import format: %w", err)
	}
	if doc.Version != "" && doc.Version != ExportVersion {
		return nil, fmt.Errorf("unsupported export version %q", doc.Version)
	}

	entries := make([]pdftl.HistoryEntry, 0, len(doc.History))
	for _, raw := range doc.History {
		var present struct {
			LastPage   *int `json:"last_page"`
			TotalPages *int `json:"total_pages"`
		}
		var e pdftl.HistoryEntry
		if json.Unmarshal(raw, &present) != nil || json.Unmarshal(raw, &e) != nil {
			continue
		}
		if e.PDFID == "" || e.Filename == "" || present.LastPage == nil || present.TotalPages == nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ExportStore writes every entry of store to w.
func ExportStore(ctx context.Context, store Store, w io.Writer, now time.Time) error {
	entries, err := store.List(ctx, 0)
	if err != nil {
		return err
	}
	return WriteExport(w, entries, now)
}

// ImportInto reads an export document and upserts its entries into store,
// oldest first so the most recent ends up on top. It returns how many
// entries were stored.
func ImportInto(ctx context.Context, store Store, r io.Reader) (int, error) {
	entries, err := ReadExport(r)
	if err != nil {
		return 0, err
	}

	entries = SortEntries(entries, SortRecent)
	n := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if err := store.Upsert(ctx, entries[i]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
