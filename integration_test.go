package pdftl_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZaguanLabs/pdftl"
	"github.com/ZaguanLabs/pdftl/cache"
	"github.com/ZaguanLabs/pdftl/client"
	"github.com/ZaguanLabs/pdftl/history"
)

// Integration tests wiring the navigator to the real decorators, caches and
// history stores over the mock backend.

func uploadMock(t *testing.T, pages int) (*client.MockService, *pdftl.Document) {
	t.Helper()
	mock := client.NewMockService(pages)
	doc, err := mock.Upload(context.Background(), "report.pdf", nil)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	return mock, doc
}

func TestIntegration_ReadThroughDocument(t *testing.T) {
	ctx := context.Background()
	mock, doc := uploadMock(t, 3)

	nav := pdftl.NewNavigator(mock)
	defer nav.Close()

	content, err := nav.Open(ctx, doc.ID, 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if content.TranslatedText != "[pt] Page 1 of report.pdf" {
		t.Errorf("unexpected translation: %q", content.TranslatedText)
	}

	for want := 2; want <= 3; want++ {
		content, err = nav.NextPage(ctx)
		if err != nil {
			t.Fatalf("NextPage failed: %v", err)
		}
		if content.PageNumber != want {
			t.Errorf("Expected page %d, got %d", want, content.PageNumber)
		}
	}

	if _, err := nav.NextPage(ctx); !errors.Is(err, pdftl.ErrPageOutOfRange) {
		t.Errorf("Expected ErrPageOutOfRange past the last page, got %v", err)
	}
	nav.Wait()

	state := nav.Navigation()
	if state.CurrentPage != 3 || state.TotalPages != 3 || !state.IsLastPage || state.IsFirstPage {
		t.Errorf("unexpected navigation state: %+v", state)
	}
}

func TestIntegration_SharedCacheAcrossSessions(t *testing.T) {
	ctx := context.Background()
	mock, doc := uploadMock(t, 2)
	svc := pdftl.NewCachedPageService(mock, cache.NewInMemoryCache(time.Hour))

	first := pdftl.NewNavigator(svc, pdftl.WithPrefetchDepth(0))
	if _, err := first.Open(ctx, doc.ID, 1); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	first.Close()
	first.Wait()

	second := pdftl.NewNavigator(svc, pdftl.WithPrefetchDepth(0))
	defer second.Close()
	content, err := second.Open(ctx, doc.ID, 1)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	if content.PageNumber != 1 {
		t.Errorf("Expected page 1, got %d", content.PageNumber)
	}

	if calls := mock.PageCalls(); calls != 1 {
		t.Errorf("Backend should be called once, was called %d times", calls)
	}
}

func TestIntegration_RetryRecoversTransientFailure(t *testing.T) {
	ctx := context.Background()
	mock, doc := uploadMock(t, 2)
	mock.FailPage(1, 2)

	svc := pdftl.NewRetryablePageService(mock, pdftl.RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
	})
	nav := pdftl.NewNavigator(svc, pdftl.WithPrefetchDepth(0))
	defer nav.Close()

	if _, err := nav.Open(ctx, doc.ID, 1); err != nil {
		t.Fatalf("Open should succeed after retries: %v", err)
	}
	if calls := mock.PageCalls(); calls != 3 {
		t.Errorf("Expected 3 backend calls, got %d", calls)
	}
}

func TestIntegration_FullDecoratorStack(t *testing.T) {
	ctx := context.Background()
	mock, doc := uploadMock(t, 4)

	var svc pdftl.PageService = mock
	svc = pdftl.NewRateLimitedPageService(svc, pdftl.RateLimitConfig{RequestsPerMinute: 6000, BurstSize: 10})
	svc = pdftl.NewRetryablePageService(svc, pdftl.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	svc = pdftl.NewCachedPageService(svc, cache.NewInMemoryCache(time.Hour))

	nav := pdftl.NewNavigator(svc, pdftl.WithPrefetchDepth(0))
	defer nav.Close()

	if _, err := nav.Open(ctx, doc.ID, 1); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	warmed := nav.WarmPages(ctx, 2, 3, 4, 9)
	if len(warmed) != 3 {
		t.Errorf("Expected pages 2-4 warmed, got %v", warmed)
	}

	if _, err := nav.LastPage(ctx); err != nil {
		t.Fatalf("LastPage failed: %v", err)
	}
	if calls := mock.PageCalls(); calls != 4 {
		t.Errorf("Expected 4 backend calls, got %d", calls)
	}
}

func TestIntegration_LanguageSwitch(t *testing.T) {
	ctx := context.Background()
	mock, doc := uploadMock(t, 2)

	nav := pdftl.NewNavigator(mock, pdftl.WithPrefetchDepth(0))
	defer nav.Close()

	if _, err := nav.Open(ctx, doc.ID, 2); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	content, err := nav.SetLanguages(ctx, pdftl.LanguagePair{Source: "en", Target: "ar"})
	if err != nil {
		t.Fatalf("SetLanguages failed: %v", err)
	}
	if !strings.HasPrefix(content.TranslatedText, "[ar]") {
		t.Errorf("Expected Arabic translation, got %q", content.TranslatedText)
	}
	if content.PageNumber != 2 {
		t.Errorf("Language switch should keep the page, got %d", content.PageNumber)
	}
	if !pdftl.IsRTL(nav.Languages().Target) {
		t.Error("Arabic should be right-to-left")
	}
	if nav.IsPageCached(1) {
		t.Error("Page 1 was never fetched in the new languages")
	}
}

func TestIntegration_ProgressSavedToHistory(t *testing.T) {
	ctx := context.Background()
	mock, doc := uploadMock(t, 4)

	store, err := history.NewFileStore(history.FileConfig{Path: filepath.Join(t.TempDir(), "history.json")})
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := store.Upsert(ctx, pdftl.HistoryEntry{
		PDFID:      doc.ID,
		Filename:   doc.Filename,
		LastPage:   1,
		TotalPages: doc.PageCount,
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	nav := pdftl.NewNavigator(mock,
		pdftl.WithPrefetchDepth(0),
		pdftl.WithProgressReporter(store),
	)
	defer nav.Close()

	if _, err := nav.Open(ctx, doc.ID, 1); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	nav.Wait()
	if _, err := nav.JumpToPage(ctx, 3); err != nil {
		t.Fatalf("JumpToPage failed: %v", err)
	}
	nav.Wait()

	entry, err := store.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.LastPage != 3 {
		t.Errorf("Expected last page 3, got %d", entry.LastPage)
	}
	if entry.Progress != 75 {
		t.Errorf("Expected progress 75, got %v", entry.Progress)
	}
}

func TestIntegration_ReopenAfterClose(t *testing.T) {
	ctx := context.Background()
	mock, doc := uploadMock(t, 2)

	if err := mock.CloseDocument(ctx, doc.ID); err != nil {
		t.Fatalf("CloseDocument failed: %v", err)
	}

	nav := pdftl.NewNavigator(mock, pdftl.WithPrefetchDepth(0))
	defer nav.Close()

	_, err := nav.Open(ctx, doc.ID, 1)
	if !errors.Is(err, pdftl.ErrDocumentNotFound) {
		t.Fatalf("Expected ErrDocumentNotFound for a closed document, got %v", err)
	}

	reopened, err := mock.Reopen(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if _, err := nav.Open(ctx, reopened.ID, 1); err != nil {
		t.Errorf("Open after reopen failed: %v", err)
	}
}
