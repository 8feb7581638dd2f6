package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/ZaguanLabs/pdftl"
)

// pngSignature stands in for a rendered page image.
var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// MockService is an in-memory backend for tests and demos. Uploaded documents
// have a fixed page count; translated text is the original tagged with the
// target language.
type MockService struct {
	mu        sync.Mutex
	pages     int
	nextID    int
	docs      map[string]*mockDoc // open documents by doc id
	pdfs      map[string]*mockDoc // every uploaded document, for Reopen
	failPages map[int]int         // page → remaining failures
	pageCalls int

	// Delay is applied to every GetPage call.
	Delay time.Duration
}

type mockDoc struct {
	filename string
	pages    int
}

// NewMockService creates a mock whose uploads have pages pages.
func NewMockService(pages int) *MockService {
	return &MockService{
		pages:     pages,
		docs:      make(map[string]*mockDoc),
		pdfs:      make(map[string]*mockDoc),
		failPages: make(map[int]int),
	}
}

// Upload registers a new document. The reader may be nil.
func (m *MockService) Upload(ctx context.Context, filename string, r io.Reader) (*pdftl.Document, error) {
	if r != nil {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return nil, &pdftl.UploadError{Filename: filename, Message: "reading file", Cause: err}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := fmt.Sprintf("mock-%d", m.nextID)
	doc := &mockDoc{filename: filepath.Base(filename), pages: m.pages}
	m.docs[id] = doc
	m.pdfs[id] = doc

	return &pdftl.Document{ID: id, PageCount: doc.pages, Filename: doc.filename}, nil
}

// GetPage returns generated content for an open document.
func (m *MockService) GetPage(ctx context.Context, docID string, page int, langs pdftl.LanguagePair) (*pdftl.PageContent, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, &pdftl.PageFetchError{Page: page, Cause: ctx.Err()}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pageCalls++

	doc, ok := m.docs[docID]
	if !ok {
		return nil, &pdftl.PageFetchError{Page: page, StatusCode: http.StatusNotFound, Message: "Document not found"}
	}
	if page < 1 || page > doc.pages {
		return nil, &pdftl.PageFetchError{
			Page:       page,
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("Invalid page number. Must be between 1 and %d", doc.pages),
		}
	}
	if n := m.failPages[page]; n > 0 {
		m.failPages[page] = n - 1
		return nil, &pdftl.PageFetchError{
			Page:       page,
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to process page",
			Retryable:  true,
		}
	}

	original := fmt.Sprintf("Page %d of %s", page, doc.filename)
	return &pdftl.PageContent{
		PageImage:      append([]byte(nil), pngSignature...),
		OriginalText:   original,
		TranslatedText: fmt.Sprintf("[%s] %s", langs.Target, original),
		PageNumber:     page,
		TotalPages:     doc.pages,
	}, nil
}

// CloseDocument forgets the open document. It can still be reopened.
func (m *MockService) CloseDocument(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[docID]; !ok {
		return &APIError{Method: http.MethodDelete, Path: "/pdf/" + docID, StatusCode: http.StatusNotFound, Message: "Document not found"}
	}
	delete(m.docs, docID)
	return nil
}

// Reopen makes a previously uploaded document available again.
func (m *MockService) Reopen(ctx context.Context, pdfID string) (*pdftl.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.pdfs[pdfID]
	if !ok {
		return nil, &pdftl.UploadError{Filename: pdfID, StatusCode: http.StatusNotFound, Message: "Document not found"}
	}
	m.docs[pdfID] = doc

	return &pdftl.Document{ID: pdfID, PageCount: doc.pages, Filename: doc.filename}, nil
}

// FailPage makes the next times fetches of page fail with a retryable error.
func (m *MockService) FailPage(page, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPages[page] = times
}

// Forget drops a document entirely, as if the backend had lost it.
func (m *MockService) Forget(docID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, docID)
	delete(m.pdfs, docID)
}

// PageCalls returns the number of GetPage calls so far.
func (m *MockService) PageCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pageCalls
}

// Verify MockService implements the backend interfaces
var (
	_ pdftl.PageService    = (*MockService)(nil)
	_ pdftl.Uploader       = (*MockService)(nil)
	_ pdftl.DocumentCloser = (*MockService)(nil)
	_ pdftl.Reopener       = (*MockService)(nil)
)
