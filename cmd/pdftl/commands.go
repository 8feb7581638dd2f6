package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ZaguanLabs/pdftl"
	"github.com/ZaguanLabs/pdftl/history"
	"github.com/ZaguanLabs/pdftl/pdfcheck"
)

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) runUpload(ctx context.Context, args []string) error {
	fs := a.flags("upload")
	view := fs.Bool("view", false, "Open the viewer after uploading")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: pdftl upload [--view] FILE")
	}

	info, err := pdfcheck.Inspect(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stderr, "Uploading %s (%d pages, %s)...\n", info.Name, info.Pages, history.FormatSize(info.Size))
	doc, err := a.client.UploadFile(ctx, info.Path)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	if store := a.optionalHistory(ctx); store != nil {
		path, _ := filepath.Abs(info.Path)
		entry := pdftl.HistoryEntry{
			PDFID:        doc.ID,
			Filename:     doc.Filename,
			FilePath:     path,
			LastPage:     1,
			TotalPages:   doc.PageCount,
			Language:     pdftl.GetLanguageName(a.langs.Target),
			LanguageFlag: pdftl.GetLanguageFlag(a.langs.Target),
		}
		if entry.Filename == "" {
			entry.Filename = info.Name
		}
		if err := store.Upsert(ctx, entry); err != nil {
			a.logger.Warn("saving history failed", "pdf_id", doc.ID, "error", err)
		}
	}

	fmt.Fprintln(a.stdout, doc.ID)

	if *view {
		return a.view(ctx, doc.ID, doc.ID, 1, doc.Filename)
	}
	return nil
}

// pageOutput is the --json form of a printed page.
type pageOutput struct {
	DocID          string `json:"doc_id"`
	PageNumber     int    `json:"page_number"`
	TotalPages     int    `json:"total_pages"`
	SourceLang     string `json:"source_lang"`
	TargetLang     string `json:"target_lang"`
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
}

type printOptions struct {
	original bool
	json     bool
	image    string
}

func (a *app) printFlags(fs *flag.FlagSet) *printOptions {
	var opts printOptions
	fs.BoolVar(&opts.original, "original", false, "Print the original text above the translation")
	fs.BoolVar(&opts.json, "json", false, "Print the page as JSON")
	fs.StringVar(&opts.image, "image", "", "Write the rendered page PNG to this file")
	return &opts
}

func (a *app) runPage(ctx context.Context, args []string) error {
	fs := a.flags("page")
	opts := a.printFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: pdftl page [--original] [--json] [--image FILE] DOC_ID PAGE")
	}

	docID := fs.Arg(0)
	page, err := strconv.Atoi(fs.Arg(1))
	if err != nil || page < 1 {
		return fmt.Errorf("invalid page number %q", fs.Arg(1))
	}

	return a.printPage(ctx, docID, docID, "", page, opts)
}

// printPage fetches one page through a navigator session, so the fetch goes
// through the same cache, retry and progress path as the viewer.
func (a *app) printPage(ctx context.Context, docID, pdfID, name string, page int, opts *printOptions) error {
	nav := pdftl.NewNavigator(a.pageService(ctx),
		pdftl.WithLanguages(a.langs),
		pdftl.WithLogger(a.logger),
		pdftl.WithPrefetchDepth(0),
		pdftl.WithProgressReporter(a.reporterFor(ctx, pdfID)),
	)
	defer func() {
		nav.Wait()
		nav.Close()
	}()

	content, err := nav.Open(ctx, docID, page)
	if err != nil {
		return a.notFound(ctx, pdfID, name, err)
	}

	if opts.image != "" {
		if err := os.WriteFile(opts.image, content.PageImage, 0o644); err != nil {
			return fmt.Errorf("writing image: %w", err)
		}
	}

	if opts.json {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pageOutput{
			DocID:          docID,
			PageNumber:     content.PageNumber,
			TotalPages:     content.TotalPages,
			SourceLang:     a.langs.Source,
			TargetLang:     a.langs.Target,
			OriginalText:   content.OriginalText,
			TranslatedText: content.TranslatedText,
		})
	}

	fmt.Fprintf(a.stderr, "Page %d/%d (%s)\n", content.PageNumber, content.TotalPages, a.langs)
	if opts.original {
		fmt.Fprintln(a.stdout, content.OriginalText)
		fmt.Fprintln(a.stdout, "---")
	}
	fmt.Fprintln(a.stdout, content.TranslatedText)
	return nil
}

func (a *app) runView(ctx context.Context, args []string) error {
	fs := a.flags("view")
	page := fs.Int("page", 0, "Start page (default: last page read, or 1)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: pdftl view [--page N] DOC_ID")
	}

	docID := fs.Arg(0)
	start, title := *page, docID
	if store := a.optionalHistory(ctx); store != nil {
		if e, err := store.Get(ctx, docID); err == nil {
			title = e.Filename
			if start == 0 {
				start = e.LastPage
			}
		}
	}

	return a.view(ctx, docID, docID, max(start, 1), title)
}

func (a *app) runOpen(ctx context.Context, args []string) error {
	fs := a.flags("open")
	printOnly := fs.Bool("print", false, "Print the page instead of opening the viewer")
	opts := a.printFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: pdftl open [--print] PDF_ID")
	}
	pdfID := fs.Arg(0)

	store, err := a.requireHistory(ctx)
	if err != nil {
		return err
	}
	entry, err := store.Get(ctx, pdfID)
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no history entry for %q", pdfID)
	}
	if err != nil {
		return err
	}

	doc, err := a.client.Reopen(ctx, pdfID)
	if err != nil {
		return a.notFound(ctx, pdfID, entry.Filename, err)
	}

	page := max(entry.LastPage, 1)
	if doc.PageCount > 0 {
		page = min(page, doc.PageCount)
		entry.TotalPages = doc.PageCount
	}
	entry.LastPage = page
	if err := store.Upsert(ctx, *entry); err != nil {
		a.logger.Warn("saving history failed", "pdf_id", pdfID, "error", err)
	}

	if *printOnly {
		return a.printPage(ctx, doc.ID, pdfID, entry.Filename, page, opts)
	}
	return a.view(ctx, doc.ID, pdfID, page, entry.Filename)
}

func (a *app) runClose(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: pdftl close DOC_ID")
	}
	if err := a.client.CloseDocument(ctx, args[0]); err != nil {
		return fmt.Errorf("closing %s: %w", args[0], err)
	}
	fmt.Fprintf(a.stderr, "Closed %s\n", args[0])
	return nil
}
