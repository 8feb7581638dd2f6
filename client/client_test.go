package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZaguanLabs/pdftl"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_GetPage(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/pdf/abc/page/3" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("source_lang"); got != "auto" {
			t.Errorf("source_lang = %q", got)
		}
		if got := r.URL.Query().Get("target_lang"); got != "es" {
			t.Errorf("target_lang = %q", got)
		}
		if ua := r.Header.Get("User-Agent"); ua != pdftl.UserAgent() {
			t.Errorf("User-Agent = %q", ua)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("Missing X-Request-ID")
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"page_image":      "iVBORw0KGgo=",
			"original_text":   "Hello",
			"translated_text": "Hola",
			"page_number":     3,
			"total_pages":     12,
		})
	})

	page, err := c.GetPage(context.Background(), "abc", 3, pdftl.LanguagePair{Source: "auto", Target: "es"})
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	if page.PageNumber != 3 || page.TotalPages != 12 {
		t.Errorf("Unexpected page numbers: %+v", page)
	}
	if page.TranslatedText != "Hola" || page.OriginalText != "Hello" {
		t.Errorf("Unexpected text: %+v", page)
	}
	if !strings.HasPrefix(string(page.PageImage), "\x89PNG") {
		t.Errorf("Page image should be decoded PNG bytes, got %q", page.PageImage)
	}
	if page.DataURI() != "data:image/png;base64,iVBORw0KGgo=" {
		t.Errorf("DataURI() = %q", page.DataURI())
	}
}

func TestClient_GetPage_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		contentType   string
		body          string
		wantMessage   string
		wantRetryable bool
		wantNotFound  bool
	}{
		{
			name:         "not found detail",
			status:       404,
			contentType:  "application/json",
			body:         `{"detail":"Document not found"}`,
			wantMessage:  "Document not found",
			wantNotFound: true,
		},
		{
			name:        "validation errors",
			status:      422,
			contentType: "application/json",
			body:        `{"detail":[{"loc":["query","target_lang"],"msg":"field required"}]}`,
			wantMessage: "field required",
		},
		{
			name:          "server error detail",
			status:        500,
			contentType:   "application/json",
			body:          `{"detail":"Translation error: quota"}`,
			wantMessage:   "Translation error: quota",
			wantRetryable: true,
		},
		{
			name:          "proxy html page",
			status:        502,
			contentType:   "text/html",
			body:          "<html><head><title>502 Bad Gateway</title></head><body><h1>Bad Gateway</h1></body></html>",
			wantMessage:   "502 Bad Gateway",
			wantRetryable: true,
		},
		{
			name:          "html without title",
			status:        504,
			contentType:   "text/html",
			body:          "<html><body><script>x()</script><p>upstream   timed out</p></body></html>",
			wantMessage:   "upstream timed out",
			wantRetryable: true,
		},
		{
			name:          "plain text",
			status:        429,
			contentType:   "text/plain",
			body:          "  slow down \n",
			wantMessage:   "slow down",
			wantRetryable: true,
		},
		{
			name:        "empty body",
			status:      400,
			wantMessage: "Bad Request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.GetPage(context.Background(), "abc", 1, pdftl.DefaultLanguages())

			var fetchErr *pdftl.PageFetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("Expected PageFetchError, got %v", err)
			}
			if fetchErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", fetchErr.StatusCode, tt.status)
			}
			if fetchErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", fetchErr.Message, tt.wantMessage)
			}
			if fetchErr.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", fetchErr.Retryable, tt.wantRetryable)
			}
			if errors.Is(err, pdftl.ErrDocumentNotFound) != tt.wantNotFound {
				t.Errorf("errors.Is(ErrDocumentNotFound) = %v", !tt.wantNotFound)
			}
		})
	}
}

func TestClient_GetPage_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL)
	srv.Close()

	_, err := c.GetPage(context.Background(), "abc", 1, pdftl.DefaultLanguages())

	var fetchErr *pdftl.PageFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected PageFetchError, got %v", err)
	}
	if fetchErr.StatusCode != 0 || !fetchErr.Retryable {
		t.Errorf("Transport failure should be retryable with no status: %+v", fetchErr)
	}
}

func TestClient_GetPage_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, WithTimeout(20*time.Millisecond))
	_, err := c.GetPage(context.Background(), "abc", 1, pdftl.DefaultLanguages())

	var fetchErr *pdftl.PageFetchError
	if !errors.As(err, &fetchErr) || !fetchErr.Retryable {
		t.Errorf("A client timeout should be a retryable fetch error, got %v", err)
	}
}

func TestClient_GetPage_CancelledContext(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetPage(ctx, "abc", 1, pdftl.DefaultLanguages())
	if pdftl.IsRetryable(err) {
		t.Errorf("A cancelled request must not be retryable: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
}

func TestClient_Upload(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/pdf/upload" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()

		data, _ := io.ReadAll(file)
		if string(data) != "%PDF-1.7 test" {
			t.Errorf("Unexpected upload body %q", data)
		}
		if header.Filename != "paper.pdf" {
			t.Errorf("Filename = %q", header.Filename)
		}

		writeJSON(w, http.StatusOK, map[string]any{"doc_id": "d-1", "page_count": 9, "filename": "paper.pdf"})
	})

	doc, err := c.Upload(context.Background(), "/tmp/papers/paper.pdf", strings.NewReader("%PDF-1.7 test"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if doc.ID != "d-1" || doc.PageCount != 9 || doc.Filename != "paper.pdf" {
		t.Errorf("Unexpected document: %+v", doc)
	}
}

func TestClient_Upload_Rejected(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "File must be a PDF"})
	})

	_, err := c.Upload(context.Background(), "notes.txt", strings.NewReader("hello"))

	var uploadErr *pdftl.UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("Expected UploadError, got %v", err)
	}
	if uploadErr.Message != "File must be a PDF" || uploadErr.StatusCode != 400 {
		t.Errorf("Unexpected error: %+v", uploadErr)
	}
}

func TestClient_Upload_MissingDocID(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"page_count": 2})
	})

	if _, err := c.Upload(context.Background(), "a.pdf", strings.NewReader("%PDF-")); err == nil {
		t.Error("Expected an error for a response without doc_id")
	}
}

func TestClient_Reopen(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pdf/reopen/known":
			writeJSON(w, http.StatusOK, map[string]any{"doc_id": "fresh", "page_count": 4, "filename": "a.pdf"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "PDF not found"})
		}
	})

	doc, err := c.Reopen(context.Background(), "known")
	if err != nil || doc.ID != "fresh" {
		t.Fatalf("Reopen = %+v, %v", doc, err)
	}

	_, err = c.Reopen(context.Background(), "gone")
	if !errors.Is(err, pdftl.ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound, got %v", err)
	}
}

func TestClient_CloseDocument(t *testing.T) {
	var gotMethod, gotPath string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Document closed successfully"})
	})

	if err := c.CloseDocument(context.Background(), "abc"); err != nil {
		t.Fatalf("CloseDocument failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/pdf/abc" {
		t.Errorf("Unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestClient_CloseDocument_NotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Document abc not found"})
	})

	err := c.CloseDocument(context.Background(), "abc")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if !errors.Is(err, pdftl.ErrDocumentNotFound) {
		t.Error("404 should match ErrDocumentNotFound")
	}
	if !strings.Contains(err.Error(), "DELETE /pdf/abc (404)") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New("")
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
	if c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v", c.httpClient.Timeout)
	}

	hc := &http.Client{}
	c = New("http://backend:9000/", WithHTTPClient(hc), WithUserAgent("test/1"))
	if c.BaseURL() != "http://backend:9000" || c.httpClient != hc || c.userAgent != "test/1" {
		t.Errorf("Options not applied: %+v", c)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", 150) // 300 bytes
	got := truncate(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected ellipsis, got %q", got)
	}
	if len(got) > maxMessageLen+3 {
		t.Errorf("Too long: %d", len(got))
	}
	if strings.ContainsRune(got, '�') {
		t.Error("Truncation split a rune")
	}
}
