package pdftl

import "strconv"

// CacheKey identifies one cacheable page translation. Two pages are
// cache-equivalent iff page number, source and target language all match.
type CacheKey struct {
	Page       int
	SourceLang string
	TargetLang string
}

// NewCacheKey builds the key for page under the given language pair.
func NewCacheKey(page int, langs LanguagePair) CacheKey {
	return CacheKey{Page: page, SourceLang: langs.Source, TargetLang: langs.Target}
}

// String renders the key as "page-source-target".
func (k CacheKey) String() string {
	return strconv.Itoa(k.Page) + "-" + k.SourceLang + "-" + k.TargetLang
}

// StoreKey renders the key scoped to a document, for stores shared across
// sessions: "docID:page:source:target".
func (k CacheKey) StoreKey(docID string) string {
	return docID + ":" + strconv.Itoa(k.Page) + ":" + k.SourceLang + ":" + k.TargetLang
}
