package storage

import (
	"context"
	"crypto/sha1" //nolint:gosec // git object ids are SHA-1
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound reports that the object does not exist yet. Callers treat it as
// "create on next write", not as a failure.
var ErrNotFound = errors.New("object not found")

// ErrNotConfigured reports missing store credentials or coordinates.
var ErrNotConfigured = errors.New("store credentials not configured")

// Blob is a stored object together with its revision tag.
type Blob struct {
	Path    string
	Content []byte
	SHA     string
}

// PutRequest describes a conditional write. Content must already be base64.
// An empty SHA asks the store to create the object.
type PutRequest struct {
	Path    string
	Content string
	Message string
	SHA     string
}

// PutResult is the store's response to a successful write.
type PutResult struct {
	Status    int
	Body      json.RawMessage
	SHA       string
	CommitSHA string
}

// Store is a revisioned object store keyed by path.
type Store interface {
	Fetch(ctx context.Context, path string) (*Blob, error)
	Put(ctx context.Context, req PutRequest) (*PutResult, error)
	Delete(ctx context.Context, path, sha, message string) error
	Ready() error
}

// StoreError carries the remote status and body so callers can tell a
// conflict from an auth failure from a validation error.
type StoreError struct {
	Op     string
	Path   string
	Status int
	Body   []byte
	Err    error
}

func (e *StoreError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	case len(e.Body) > 0:
		return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.Path, e.Status, truncate(e.Body, 256))
	default:
		return fmt.Sprintf("%s %s: status %d", e.Op, e.Path, e.Status)
	}
}

func (e *StoreError) Unwrap() error { return e.Err }

// Conflict reports a stale or missing revision tag.
func (e *StoreError) Conflict() bool {
	if e.Status == http.StatusConflict {
		return true
	}
	// GitHub answers 422 when an existing file is written without its sha.
	return e.Status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(string(e.Body)), "sha")
}

// Unauthorized reports rejected or insufficient credentials.
func (e *StoreError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// TooLarge reports a payload rejected for size.
func (e *StoreError) TooLarge() bool {
	return e.Status == http.StatusRequestEntityTooLarge
}

// Transport reports a failure before any response was received.
func (e *StoreError) Transport() bool {
	return e.Status == 0
}

// AsStoreError extracts a *StoreError from the chain.
func AsStoreError(err error) (*StoreError, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// BlobSHA returns the git blob object id for content, which is the revision tag
// the GitHub contents API reports for a file.
func BlobSHA(content []byte) string {
	h := sha1.New() //nolint:gosec
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
