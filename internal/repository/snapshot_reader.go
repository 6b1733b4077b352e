package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/painel-aulas-api/internal/models"
	"github.com/noah-isme/painel-aulas-api/pkg/storage"
)

// SnapshotReader reads the current snapshot and the revision it was read at.
// An absent document yields an empty snapshot and an empty revision.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context) (models.Snapshot, string, error)
}

// StoreReader reads through the authenticated object store.
type StoreReader struct {
	store storage.Store
	path  string
}

// NewStoreReader constructs a reader for path.
func NewStoreReader(store storage.Store, path string) *StoreReader {
	return &StoreReader{store: store, path: path}
}

// ReadSnapshot implements SnapshotReader.
func (r *StoreReader) ReadSnapshot(ctx context.Context) (models.Snapshot, string, error) {
	blob, err := r.store.Fetch(ctx, r.path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.EmptySnapshot(), "", nil
		}
		return models.Snapshot{}, "", err
	}
	snapshot, err := DecodeSnapshot(blob.Content)
	if err != nil {
		return models.Snapshot{}, "", err
	}
	return snapshot, blob.SHA, nil
}

// RawReader reads the public raw file. The revision is computed locally as the
// git blob SHA, which is what the contents API would report.
type RawReader struct {
	url        string
	httpClient *http.Client
}

// NewRawReader builds a reader for {base}/{owner}/{repo}/{ref}/{path}.
func NewRawReader(baseURL, owner, repo, ref, path string, timeout time.Duration) *RawReader {
	if ref == "" {
		ref = "HEAD"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	url := fmt.Sprintf("%s/%s/%s/%s/%s", strings.TrimRight(baseURL, "/"), owner, repo, ref, strings.TrimLeft(path, "/"))
	return &RawReader{url: url, httpClient: &http.Client{Timeout: timeout}}
}

// ReadSnapshot implements SnapshotReader.
func (r *RawReader) ReadSnapshot(ctx context.Context) (models.Snapshot, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return models.Snapshot{}, "", fmt.Errorf("build raw request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return models.Snapshot{}, "", &storage.StoreError{Op: "fetch", Path: r.url, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Snapshot{}, "", &storage.StoreError{Op: "fetch", Path: r.url, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return models.EmptySnapshot(), "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return models.Snapshot{}, "", &storage.StoreError{Op: "fetch", Path: r.url, Status: resp.StatusCode, Body: body}
	}
	snapshot, err := DecodeSnapshot(body)
	if err != nil {
		return models.Snapshot{}, "", err
	}
	return snapshot, storage.BlobSHA(body), nil
}

// ProxyReader reads the snapshot from another instance's public dataset endpoint.
type ProxyReader struct {
	url        string
	httpClient *http.Client
}

type proxyDatasetEnvelope struct {
	Data models.Snapshot `json:"data"`
	Meta struct {
		Revision string `json:"revision"`
	} `json:"meta"`
}

// NewProxyReader builds a reader for the given dataset URL.
func NewProxyReader(url string, timeout time.Duration) *ProxyReader {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ProxyReader{url: url, httpClient: &http.Client{Timeout: timeout}}
}

// ReadSnapshot implements SnapshotReader.
func (r *ProxyReader) ReadSnapshot(ctx context.Context) (models.Snapshot, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return models.Snapshot{}, "", fmt.Errorf("build proxy read request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return models.Snapshot{}, "", &storage.StoreError{Op: "fetch", Path: r.url, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Snapshot{}, "", &storage.StoreError{Op: "fetch", Path: r.url, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return models.Snapshot{}, "", &storage.StoreError{Op: "fetch", Path: r.url, Status: resp.StatusCode, Body: body}
	}

	var envelope proxyDatasetEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return models.Snapshot{}, "", fmt.Errorf("decode proxy dataset: %w", err)
	}
	envelope.Data.Normalize()
	return envelope.Data, envelope.Meta.Revision, nil
}
