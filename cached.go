package pdftl

import (
	"context"
	"encoding/json"
)

// CachedPageService wraps a PageService with a shared PageStore. Unlike the
// Navigator's own cache it survives Close, Open and language switches, so
// reopening a document or flipping back to a previous language pair can be
// served without the backend.
type CachedPageService struct {
	service PageService
	store   PageStore
}

// NewCachedPageService creates a PageService backed by store.
func NewCachedPageService(service PageService, store PageStore) *CachedPageService {
	return &CachedPageService{
		service: service,
		store:   store,
	}
}

// GetPage implements PageService. Store failures never fail the fetch.
func (s *CachedPageService) GetPage(ctx context.Context, docID string, page int, langs LanguagePair) (*PageContent, error) {
	key := NewCacheKey(page, langs).StoreKey(docID)

	if raw, ok := s.store.Get(key); ok {
		var content PageContent
		if err := json.Unmarshal([]byte(raw), &content); err == nil && content.PageNumber == page {
			return &content, nil
		}
		_ = s.store.Delete(key) // Corrupt entry
	}

	content, err := s.service.GetPage(ctx, docID, page, langs)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(content); err == nil {
		_ = s.store.Set(key, string(raw)) // Ignore cache set errors
	}

	return content, nil
}
