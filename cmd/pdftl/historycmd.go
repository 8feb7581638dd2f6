package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ZaguanLabs/pdftl"
	"github.com/ZaguanLabs/pdftl/history"
)

func (a *app) runHistory(ctx context.Context, args []string) error {
	cmd := "list"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	store, err := a.requireHistory(ctx)
	if err != nil {
		return err
	}

	switch cmd {
	case "list":
		return a.historyList(ctx, store, args)
	case "remove":
		if len(args) != 1 {
			return errors.New("usage: pdftl history remove PDF_ID")
		}
		return store.Remove(ctx, args[0])
	case "clear":
		return store.Clear(ctx)
	case "stats":
		return a.historyStats(ctx, store)
	case "export":
		return a.historyExport(ctx, store, args)
	case "import":
		return a.historyImport(ctx, store, args)
	}
	return fmt.Errorf("unknown history command %q", cmd)
}

func (a *app) historyList(ctx context.Context, store history.Store, args []string) error {
	fs := a.flags("history list")
	sortBy := fs.String("sort", "recent", "Sort order: recent, name or progress")
	limit := fs.Int("limit", 0, "Maximum entries to show (0 for all)")
	asJSON := fs.Bool("json", false, "Print entries as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	order, err := history.ParseSortOrder(*sortBy)
	if err != nil {
		return err
	}

	entries, err := store.List(ctx, *limit)
	if err != nil {
		return err
	}
	entries = history.SortEntries(entries, order)

	if *asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(a.stderr, "No documents in history.")
		return nil
	}

	now := time.Now()
	perPage := history.DefaultMinutesPerPage * time.Minute
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "FILE", "PAGE", "PROGRESS", "LANGUAGE", "LAST READ", "REMAINING")
	for _, e := range entries {
		t.Row(
			e.PDFID,
			history.TruncateFilename(e.Filename, 25),
			strconv.Itoa(e.LastPage)+"/"+strconv.Itoa(e.TotalPages),
			strconv.FormatFloat(e.Progress, 'f', 1, 64)+"%",
			languageLabel(e),
			history.RelativeTime(e.LastReadDate.Time, now),
			history.FormatReadingTime(history.ReadingTime(e.LastPage, e.TotalPages, perPage)),
		)
	}
	_, err = fmt.Fprintln(a.stdout, t.Render())
	return err
}

func languageLabel(e pdftl.HistoryEntry) string {
	switch {
	case e.Language == "":
		return "-"
	case e.LanguageFlag == "":
		return e.Language
	}
	return e.LanguageFlag + " " + e.Language
}

func (a *app) historyStats(ctx context.Context, store history.Store) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Documents:        %d\n", stats.TotalDocuments)
	fmt.Fprintf(a.stdout, "Completed:        %d\n", stats.CompletedDocuments)
	fmt.Fprintf(a.stdout, "Average progress: %.1f%%\n", stats.AverageProgress)
	fmt.Fprintf(a.stdout, "Pages read:       %d\n", stats.TotalPagesRead)

	if entries, err := store.List(ctx, 0); err == nil {
		remaining := history.RemainingReadingTime(entries, history.DefaultMinutesPerPage*time.Minute)
		fmt.Fprintf(a.stdout, "Time remaining:   %s\n", history.FormatReadingTime(remaining))
	}
	return nil
}

func (a *app) historyExport(ctx context.Context, store history.Store, args []string) error {
	var w io.Writer = a.stdout
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return history.ExportStore(ctx, store, w, time.Now())
}

func (a *app) historyImport(ctx context.Context, store history.Store, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: pdftl history import FILE")
	}

	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0]) // #nosec G304 - CLI tool reads user-specified files
		if err != nil {
			return fmt.Errorf("opening import file: %w", err)
		}
		defer f.Close()
		r = f
	}

	n, err := history.ImportInto(ctx, store, r)
	if err != nil {
		return fmt.Errorf("import failed after %d entries: %w", n, err)
	}
	fmt.Fprintf(a.stderr, "Imported %d entries.\n", n)
	return nil
}
