package history

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ZaguanLabs/pdftl"
)

// SortOrder selects how SortEntries orders a list.
type SortOrder int

const (
	// SortRecent orders by last read date, newest first.
	SortRecent SortOrder = iota
	// SortName orders by filename using language-aware collation.
	SortName
	// SortProgress orders by progress, furthest first.
	SortProgress
)

func (o SortOrder) String() string {
	switch o {
	case SortName:
		return "name"
	case SortProgress:
		return "progress"
	default:
		return "recent"
	}
}

// ParseSortOrder parses "recent", "name" or "progress".
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recent":
		return SortRecent, nil
	case "name":
		return SortName, nil
	case "progress":
		return SortProgress, nil
	}
	return SortRecent, fmt.Errorf("unknown sort order %q", s)
}

// SortEntries returns a sorted copy of entries. Ties keep their input order.
func SortEntries(entries []pdftl.HistoryEntry, order SortOrder) []pdftl.HistoryEntry {
	out := slices.Clone(entries)

	switch order {
	case SortName:
		col := collate.New(language.Und, collate.IgnoreCase)
		slices.SortStableFunc(out, func(a, b pdftl.HistoryEntry) int {
			return col.CompareString(a.Filename, b.Filename)
		})
	case SortProgress:
		slices.SortStableFunc(out, func(a, b pdftl.HistoryEntry) int {
			return cmp.Compare(b.Progress, a.Progress)
		})
	default:
		slices.SortStableFunc(out, func(a, b pdftl.HistoryEntry) int {
			return b.LastReadDate.Compare(a.LastReadDate.Time)
		})
	}
	return out
}

// ComputeStats aggregates entries the way the backend's stats endpoint does.
// A document counts as completed once progress reaches 100%.
func ComputeStats(entries []pdftl.HistoryEntry) pdftl.HistoryStats {
	stats := pdftl.HistoryStats{TotalDocuments: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	var sum float64
	for _, e := range entries {
		sum += e.Progress
		if e.Progress >= 100 {
			stats.CompletedDocuments++
		}
		stats.TotalPagesRead += e.LastPage
	}
	avg := sum / float64(len(entries))
	stats.AverageProgress = float64(int64(avg*10+0.5)) / 10
	return stats
}

// DefaultMinutesPerPage is the reading speed ReadingTime assumes.
const DefaultMinutesPerPage = 2

// ReadingTime estimates how long the pages after current take to read.
func ReadingTime(current, total int, perPage time.Duration) time.Duration {
	remaining := total - current
	if remaining <= 0 {
		return 0
	}
	return time.Duration(remaining) * perPage
}

// RemainingReadingTime sums ReadingTime over every entry.
func RemainingReadingTime(entries []pdftl.HistoryEntry, perPage time.Duration) time.Duration {
	var d time.Duration
	for _, e := range entries {
		d += ReadingTime(e.LastPage, e.TotalPages, perPage)
	}
	return d
}

// FormatReadingTime renders d as "<1 min", "25 min" or "2h 5min".
func FormatReadingTime(d time.Duration) string {
	minutes := int(d.Minutes())
	switch {
	case minutes < 1:
		return "<1 min"
	case minutes < 60:
		return fmt.Sprintf("%d min", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dmin", h, m)
}
