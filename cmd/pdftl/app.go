package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ZaguanLabs/pdftl"
	"github.com/ZaguanLabs/pdftl/cache"
	"github.com/ZaguanLabs/pdftl/client"
	"github.com/ZaguanLabs/pdftl/history"
)

// app is the wiring shared by every command. The page service and history
// store are built on first use so that commands which need neither never
// touch Redis or the state directory.
type app struct {
	cfg    config
	langs  pdftl.LanguagePair
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
	client *client.Client

	pages   pdftl.PageService
	store   history.Store
	opened  bool // store has been resolved, possibly to nil
	closers []func() error
}

func newApp(ctx context.Context, cfg config, stdout, stderr io.Writer) (*app, error) {
	langs := pdftl.LanguagePair{
		Source: pdftl.NormalizeLanguage(cfg.source),
		Target: pdftl.NormalizeLanguage(cfg.target),
	}
	if err := langs.Validate(); err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	return &app{
		cfg:    cfg,
		langs:  langs,
		stdout: stdout,
		stderr: stderr,
		logger: logger,
		client: client.New(cfg.apiURL,
			client.WithTimeout(cfg.timeout),
			client.WithLogger(logger),
		),
	}, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Debug("close failed", "error", err)
		}
	}
}

// pageService returns the backend page service wrapped, from the outside in,
// in a shared page cache, retries and the rate limiter.
func (a *app) pageService(ctx context.Context) pdftl.PageService {
	if a.pages != nil {
		return a.pages
	}

	var svc pdftl.PageService = a.client
	svc = pdftl.NewRateLimitedPageService(svc, pdftl.RateLimitConfig{RequestsPerMinute: a.cfg.rateLimit})
	svc = pdftl.NewRetryablePageService(svc, pdftl.DefaultRetryConfig())

	if a.cfg.cacheTTL > 0 {
		svc = pdftl.NewCachedPageService(svc, a.pageStore(ctx))
	}

	a.pages = svc
	return svc
}

func (a *app) pageStore(ctx context.Context) pdftl.PageStore {
	if a.cfg.redisURL == "" {
		return cache.NewInMemoryCache(a.cfg.cacheTTL)
	}

	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: a.cfg.redisURL, TTL: a.cfg.cacheTTL})
	if err != nil {
		a.logger.Warn("redis page cache unavailable, using memory", "error", err)
		return cache.NewInMemoryCache(a.cfg.cacheTTL)
	}
	a.closers = append(a.closers, rc.Close)
	return rc
}

// historyStore returns the configured history store, or nil when history is
// disabled.
func (a *app) historyStore(ctx context.Context) (history.Store, error) {
	if a.opened {
		return a.store, nil
	}

	var store history.Store
	switch a.cfg.history {
	case "none", "off":
	case "file", "":
		fs, err := history.NewFileStore(history.FileConfig{Logger: a.logger})
		if err != nil {
			return nil, err
		}
		store = fs
	case "redis":
		if a.cfg.redisURL == "" {
			return nil, fmt.Errorf("redis history needs --redis-url or %s", envRedisURL)
		}
		rs, err := history.NewRedisStore(ctx, history.RedisConfig{URL: a.cfg.redisURL, Logger: a.logger})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		store = rs
	case "remote":
		store = history.NewRemoteStore(a.client, history.WithRemoteLogger(a.logger))
	default:
		return nil, fmt.Errorf("unknown history store %q", a.cfg.history)
	}

	a.store, a.opened = store, true
	return store, nil
}

// requireHistory is history for commands that cannot work without it.
func (a *app) requireHistory(ctx context.Context) (history.Store, error) {
	store, err := a.historyStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("history is disabled")
	}
	return store, nil
}

// optionalHistory is history for commands where it is a convenience. A store
// that cannot be opened is logged and treated as disabled.
func (a *app) optionalHistory(ctx context.Context) history.Store {
	store, err := a.historyStore(ctx)
	if err != nil {
		a.logger.Warn("history unavailable", "error", err)
		a.opened = true
		return nil
	}
	return store
}

// reporterFor returns the progress reporter for a document known to history
// under pdfID, or nil.
func (a *app) reporterFor(ctx context.Context, pdfID string) pdftl.ProgressReporter {
	store := a.optionalHistory(ctx)
	if store == nil || pdfID == "" {
		return nil
	}
	if _, err := store.Get(ctx, pdfID); err != nil {
		return nil
	}
	return historyProgress{store: store, pdfID: pdfID}
}

// historyProgress records progress under the history's pdf id, which is not
// the backend document id once a document has been reopened.
type historyProgress struct {
	store history.Store
	pdfID string
}

func (h historyProgress) UpdateProgress(ctx context.Context, _ string, page, total int) error {
	return h.store.UpdateProgress(ctx, h.pdfID, page, total)
}

// notFound handles a document the backend no longer knows: its history
// entry is dropped and the user is told to upload again.
func (a *app) notFound(ctx context.Context, pdfID, name string, err error) error {
	if !errors.Is(err, pdftl.ErrDocumentNotFound) {
		return err
	}

	if store := a.optionalHistory(ctx); store != nil && pdfID != "" {
		if rmErr := store.Remove(ctx, pdfID); rmErr != nil {
			a.logger.Warn("removing stale history entry failed", "pdf_id", pdfID, "error", rmErr)
		}
	}
	if name == "" {
		name = pdfID
	}
	return fmt.Errorf("%s is no longer available on the server, please upload it again: %w", name, err)
}
