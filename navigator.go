package pdftl

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// progressTimeout bounds a single fire-and-forget progress report.
const progressTimeout = 10 * time.Second

// Navigator pages through one open document at a time. It owns the page
// cache, the table of in-flight fetches and the navigation state of the
// current document session; all three are discarded on Open and Close.
//
// Methods are safe for concurrent use. Fetches run on goroutines bound to the
// session, so a caller that stops waiting never strands the display in the
// loading state.
type Navigator struct {
	service       PageService
	reporter      ProgressReporter
	logger        *slog.Logger
	prefetchDepth int
	onChange      func(ViewState)

	mu       sync.Mutex
	docID    string
	epoch    uint64 // bumped on open, close and language change
	seq      uint64 // bumped on every visible state change
	langs    LanguagePair
	cache    map[CacheKey]*PageContent
	inflight map[CacheKey]*pageCall
	pager    Pager
	status   Status
	content  *PageContent
	err      error
	ctx      context.Context
	cancel   context.CancelFunc

	background sync.WaitGroup
}

// pageCall is one outstanding fetch. Every request for the same key while it
// is outstanding waits on the same call.
type pageCall struct {
	done    chan struct{}
	content *PageContent
	err     error
}

// NavigatorOption is a functional option for configuring the Navigator.
type NavigatorOption func(*Navigator)

// WithLanguages sets the initial language pair.
func WithLanguages(langs LanguagePair) NavigatorOption {
	return func(n *Navigator) {
		n.langs = langs
	}
}

// WithProgressReporter sets the collaborator notified of reading progress.
func WithProgressReporter(r ProgressReporter) NavigatorOption {
	return func(n *Navigator) {
		n.reporter = r
	}
}

// WithLogger sets the logger for background failures. The default discards.
func WithLogger(logger *slog.Logger) NavigatorOption {
	return func(n *Navigator) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithPrefetchDepth sets how many pages after the displayed one are warmed in
// the background. Zero disables prefetch.
func WithPrefetchDepth(depth int) NavigatorOption {
	return func(n *Navigator) {
		if depth >= 0 {
			n.prefetchDepth = depth
		}
	}
}

// WithOnChange registers an observer called after every visible state change.
// It is called without internal locks held and may call back into the
// Navigator. Snapshots can arrive out of order; compare ViewState.Seq.
func WithOnChange(fn func(ViewState)) NavigatorOption {
	return func(n *Navigator) {
		n.onChange = fn
	}
}

// NewNavigator creates an idle Navigator fetching pages from service.
func NewNavigator(service PageService, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		service:       service,
		logger:        slog.New(slog.DiscardHandler),
		prefetchDepth: 1,
		langs:         DefaultLanguages(),
		cache:         make(map[CacheKey]*PageContent),
		inflight:      make(map[CacheKey]*pageCall),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Open starts a session for docID at startPage (1 when below 1), discarding
// any previous session, and waits for the first page.
func (n *Navigator) Open(ctx context.Context, docID string, startPage int) (*PageContent, error) {
	if docID == "" {
		return nil, ErrNoDocument
	}
	if startPage < 1 {
		startPage = 1
	}

	n.mu.Lock()
	n.resetSessionLocked()
	n.ctx, n.cancel = context.WithCancel(context.Background())
	n.docID = docID
	n.pager = NewPager(startPage, 0)
	call, content, err := n.beginNavigateLocked(startPage)
	n.mu.Unlock()

	n.emit()
	return n.await(ctx, call, content, err)
}

// Close ends the session. Responses still in flight are discarded.
func (n *Navigator) Close() {
	n.mu.Lock()
	n.resetSessionLocked()
	n.mu.Unlock()

	n.emit()
}

// NavigateToPage displays page. A cached page is shown immediately; otherwise
// the display enters the loading state and the call waits for the page's
// fetch, joining one already in flight for the same key.
//
// Pages below 1 or beyond the known page count return ErrPageOutOfRange and
// leave the state untouched.
func (n *Navigator) NavigateToPage(ctx context.Context, page int) (*PageContent, error) {
	n.mu.Lock()
	call, content, err := n.beginNavigateLocked(page)
	n.mu.Unlock()

	if err == nil {
		n.emit()
	}
	return n.await(ctx, call, content, err)
}

// PrefetchPage warms the cache for page without touching the displayed state.
// Failures are logged, never returned. It reports whether the page is cached
// once the fetch completes.
func (n *Navigator) PrefetchPage(ctx context.Context, page int) bool {
	n.mu.Lock()
	if n.docID == "" || !n.pager.InRange(page) {
		n.mu.Unlock()
		return false
	}
	key := NewCacheKey(page, n.langs)
	if _, ok := n.cache[key]; ok {
		n.mu.Unlock()
		return true
	}
	call := n.fetchLocked(key)
	n.mu.Unlock()

	select {
	case <-call.done:
		return call.err == nil && n.isCached(key)
	case <-ctx.Done():
		return false
	}
}

// ResetCache discards every cached page of the current session.
func (n *Navigator) ResetCache() {
	n.mu.Lock()
	n.cache = make(map[CacheKey]*PageContent)
	n.mu.Unlock()
}

// IsPageCached reports whether page is cached under the current language pair.
func (n *Navigator) IsPageCached(page int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.cache[NewCacheKey(page, n.langs)]
	return ok
}

// IsPageInFlight reports whether a fetch for page under the current language
// pair is outstanding.
func (n *Navigator) IsPageInFlight(page int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.inflight[NewCacheKey(page, n.langs)]
	return ok
}

// SetLanguages switches the language pair. The cache is cleared, fetches under
// the old pair are abandoned, and the current page is fetched again under the
// new pair. Setting the current pair again is a no-op.
func (n *Navigator) SetLanguages(ctx context.Context, langs LanguagePair) (*PageContent, error) {
	if err := langs.Validate(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	if langs == n.langs {
		content := n.content
		n.mu.Unlock()
		return content, nil
	}
	n.langs = langs
	n.epoch++
	n.cache = make(map[CacheKey]*PageContent)
	n.inflight = make(map[CacheKey]*pageCall)
	if n.docID == "" {
		n.seq++
		n.mu.Unlock()
		n.emit()
		return nil, nil
	}
	call, content, err := n.beginNavigateLocked(n.pager.Current)
	n.mu.Unlock()

	n.emit()
	return n.await(ctx, call, content, err)
}

// Retry re-issues the request for the displayed page.
func (n *Navigator) Retry(ctx context.Context) (*PageContent, error) {
	n.mu.Lock()
	if n.docID == "" {
		n.mu.Unlock()
		return nil, ErrNoDocument
	}
	if n.status == StatusReady {
		content := n.content
		n.mu.Unlock()
		return content, nil
	}
	call, content, err := n.beginNavigateLocked(n.pager.Current)
	n.mu.Unlock()

	n.emit()
	return n.await(ctx, call, content, err)
}

// ClearCacheAndRetry resets the cache, then retries the displayed page.
func (n *Navigator) ClearCacheAndRetry(ctx context.Context) (*PageContent, error) {
	n.ResetCache()
	return n.Retry(ctx)
}

// NextPage navigates forward one page; a no-op on the last page.
func (n *Navigator) NextPage(ctx context.Context) (*PageContent, error) {
	return n.step(ctx, Pager.Next)
}

// PreviousPage navigates back one page; a no-op on the first page.
func (n *Navigator) PreviousPage(ctx context.Context) (*PageContent, error) {
	return n.step(ctx, Pager.Previous)
}

// FirstPage navigates to page 1.
func (n *Navigator) FirstPage(ctx context.Context) (*PageContent, error) {
	return n.step(ctx, Pager.First)
}

// LastPage navigates to the last page once the page count is known.
func (n *Navigator) LastPage(ctx context.Context) (*PageContent, error) {
	return n.step(ctx, Pager.Last)
}

// JumpToPage navigates to page when it is in range.
func (n *Navigator) JumpToPage(ctx context.Context, page int) (*PageContent, error) {
	return n.step(ctx, func(p Pager) (int, bool) { return p.Jump(page) })
}

// State returns a snapshot of the displayed state.
func (n *Navigator) State() ViewState {
	n.mu.Lock()
	defer n.mu.Unlock()

	return ViewState{
		Seq:        n.seq,
		Status:     n.status,
		DocID:      n.docID,
		Page:       n.pager.Current,
		Content:    n.content,
		Err:        n.err,
		Languages:  n.langs,
		Navigation: n.pager.State(),
	}
}

// Navigation returns the current navigation state.
func (n *Navigator) Navigation() NavigationState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pager.State()
}

// Languages returns the current language pair.
func (n *Navigator) Languages() LanguagePair {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.langs
}

// DocID returns the open document, or "" when idle.
func (n *Navigator) DocID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.docID
}

// Wait blocks until background prefetches and progress reports have finished.
func (n *Navigator) Wait() {
	n.background.Wait()
}

func (n *Navigator) step(ctx context.Context, move func(Pager) (int, bool)) (*PageContent, error) {
	n.mu.Lock()
	if n.docID == "" {
		n.mu.Unlock()
		return nil, ErrNoDocument
	}
	target, ok := move(n.pager)
	n.mu.Unlock()

	if !ok {
		return nil, ErrPageOutOfRange
	}
	return n.NavigateToPage(ctx, target)
}

// beginNavigateLocked moves the display to page. It returns the cached content
// for a synchronous transition, or the call to wait on.
func (n *Navigator) beginNavigateLocked(page int) (*pageCall, *PageContent, error) {
	if n.docID == "" {
		return nil, nil, ErrNoDocument
	}
	if !n.pager.InRange(page) {
		return nil, nil, ErrPageOutOfRange
	}

	key := NewCacheKey(page, n.langs)
	if cached, ok := n.cache[key]; ok {
		n.setReadyLocked(page, cached)
		return nil, cached, nil
	}

	n.pager.Current = page
	n.status = StatusLoading
	n.content = nil
	n.err = nil
	n.seq++

	return n.fetchLocked(key), nil, nil
}

// fetchLocked returns the outstanding call for key, starting one if needed.
func (n *Navigator) fetchLocked(key CacheKey) *pageCall {
	if call, ok := n.inflight[key]; ok {
		return call
	}

	call := &pageCall{done: make(chan struct{})}
	n.inflight[key] = call

	n.background.Add(1)
	go n.runFetch(n.ctx, n.epoch, n.docID, key, call)

	return call
}

func (n *Navigator) runFetch(ctx context.Context, epoch uint64, docID string, key CacheKey, call *pageCall) {
	defer n.background.Done()

	langs := LanguagePair{Source: key.SourceLang, Target: key.TargetLang}
	content, err := n.service.GetPage(ctx, docID, key.Page, langs)
	if err == nil && content == nil {
		err = &PageFetchError{Page: key.Page, Message: "empty response from backend"}
	}
	if err != nil {
		err = asPageFetchError(key.Page, err)
	}

	n.mu.Lock()
	if n.inflight[key] == call {
		delete(n.inflight, key)
	}
	call.content, call.err = content, err

	displayed := false
	current := epoch == n.epoch
	if current {
		displayed = n.status == StatusLoading && n.pager.Current == key.Page && NewCacheKey(key.Page, n.langs) == key
		if err == nil {
			n.storeLocked(key, content)
			if displayed {
				n.setReadyLocked(key.Page, content)
			}
		} else if displayed {
			n.status = StatusError
			n.err = err
			n.seq++
		}
	}
	n.mu.Unlock()
	close(call.done)

	if err != nil && !displayed {
		n.logger.Warn("background page fetch failed",
			"doc_id", docID,
			"page", key.Page,
			"langs", langs.String(),
			"stale", !current,
			"error", err)
	}
	if current && (displayed || err == nil) {
		n.emit()
	}
}

// storeLocked caches content and adopts the backend's page count.
func (n *Navigator) storeLocked(key CacheKey, content *PageContent) {
	n.cache[key] = content

	total := content.TotalPages
	if total <= 0 || total == n.pager.Total {
		return
	}
	if n.pager.Total != 0 {
		n.logger.Warn("backend changed page count",
			"doc_id", n.docID,
			"previous", n.pager.Total,
			"reported", total)
	}
	n.pager.SetTotal(total)
	n.seq++
}

func (n *Navigator) setReadyLocked(page int, content *PageContent) {
	n.pager.Current = page
	if content.TotalPages > 0 {
		n.pager.SetTotal(content.TotalPages)
	}
	n.status = StatusReady
	n.content = content
	n.err = nil
	n.seq++

	n.reportProgressLocked(page, n.pager.Total)
	n.schedulePrefetchLocked(page)
}

func (n *Navigator) reportProgressLocked(page, total int) {
	if n.reporter == nil {
		return
	}

	docID := n.docID
	n.background.Add(1)
	go func() {
		defer n.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), progressTimeout)
		defer cancel()
		if err := n.reporter.UpdateProgress(ctx, docID, page, total); err != nil {
			n.logger.Warn("progress report failed", "doc_id", docID, "page", page, "error", err)
		}
	}()
}

// schedulePrefetchLocked warms the pages after page, up to the prefetch depth.
func (n *Navigator) schedulePrefetchLocked(page int) {
	for next := page + 1; next <= page+n.prefetchDepth; next++ {
		if n.pager.Total <= 0 || next > n.pager.Total {
			return
		}
		key := NewCacheKey(next, n.langs)
		if _, ok := n.cache[key]; ok {
			continue
		}
		n.fetchLocked(key)
	}
}

func (n *Navigator) resetSessionLocked() {
	if n.cancel != nil {
		n.cancel()
	}
	n.ctx, n.cancel = nil, nil
	n.epoch++
	n.seq++
	n.docID = ""
	n.cache = make(map[CacheKey]*PageContent)
	n.inflight = make(map[CacheKey]*pageCall)
	n.pager = Pager{}
	n.status = StatusIdle
	n.content = nil
	n.err = nil
}

func (n *Navigator) await(ctx context.Context, call *pageCall, content *PageContent, err error) (*PageContent, error) {
	if err != nil || call == nil {
		return content, err
	}

	select {
	case <-call.done:
		return call.content, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (n *Navigator) isCached(key CacheKey) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.cache[key]
	return ok
}

func (n *Navigator) emit() {
	if n.onChange == nil {
		return
	}
	n.onChange(n.State())
}

// asPageFetchError wraps err as a *PageFetchError for page unless it already is one.
func asPageFetchError(page int, err error) error {
	var fetchErr *PageFetchError
	if errors.As(err, &fetchErr) {
		return err
	}
	return &PageFetchError{
		Page:      page,
		Cause:     err,
		Retryable: !errors.Is(err, context.Canceled),
	}
}
