// Package cache provides shared page stores that outlive a single navigator
// session. Values are opaque strings; the pdftl package stores JSON-encoded
// pages under keys of the form "doc:page:source:target".
package cache

// Store is the interface for a shared page store.
type Store interface {
	// Get retrieves a stored value. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a value, replacing any previous one.
	Set(key string, value string) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(key string) error
}
