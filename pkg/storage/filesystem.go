package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalStore keeps objects on disk under a base directory and mimics the
// contents API revision rules: the revision tag is the git blob SHA and a
// write with a stale or missing tag fails with 409.
type LocalStore struct {
	baseDir string
	mu      sync.Mutex
	puts    int
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Ready always succeeds; the local store needs no credentials.
func (s *LocalStore) Ready() error { return nil }

// Fetch reads the object at path.
func (s *LocalStore) Fetch(ctx context.Context, path string) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StoreError{Op: "fetch", Path: path, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(path)
}

func (s *LocalStore) read(path string) (*Blob, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, &StoreError{Op: "fetch", Path: path, Status: http.StatusBadRequest, Err: err}
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("fetch %s: %w", path, ErrNotFound)
		}
		return nil, &StoreError{Op: "fetch", Path: path, Err: err}
	}
	return &Blob{Path: path, Content: data, SHA: BlobSHA(data)}, nil
}

// Put writes the object if req.SHA matches the current revision.
func (s *LocalStore) Put(ctx context.Context, req PutRequest) (*PutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StoreError{Op: "put", Path: req.Path, Err: err}
	}
	data, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		return nil, &StoreError{Op: "put", Path: req.Path, Status: http.StatusUnprocessableEntity,
			Body: errorBody("content is not valid Base64")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(req.Path)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	switch {
	case exists && req.SHA == "":
		return nil, &StoreError{Op: "put", Path: req.Path, Status: http.StatusUnprocessableEntity,
			Body: errorBody(`Invalid request. "sha" wasn't supplied.`)}
	case exists && req.SHA != current.SHA:
		return nil, &StoreError{Op: "put", Path: req.Path, Status: http.StatusConflict,
			Body: errorBody(fmt.Sprintf("%s is at %s but expected %s", req.Path, current.SHA, req.SHA))}
	case !exists && req.SHA != "":
		return nil, &StoreError{Op: "put", Path: req.Path, Status: http.StatusConflict,
			Body: errorBody(fmt.Sprintf("%s does not exist but sha %s was supplied", req.Path, req.SHA))}
	}

	full, err := s.resolve(req.Path)
	if err != nil {
		return nil, &StoreError{Op: "put", Path: req.Path, Status: http.StatusBadRequest, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, &StoreError{Op: "put", Path: req.Path, Err: fmt.Errorf("prepare directory: %w", err)}
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return nil, &StoreError{Op: "put", Path: req.Path, Err: fmt.Errorf("write file: %w", err)}
	}

	s.puts++
	sha := BlobSHA(data)
	status := http.StatusOK
	if !exists {
		status = http.StatusCreated
	}
	body, _ := json.Marshal(map[string]interface{}{
		"content": map[string]string{"path": req.Path, "sha": sha},
		"commit":  map[string]string{"sha": fmt.Sprintf("local-%d", s.puts), "message": req.Message},
	})
	return &PutResult{Status: status, Body: body, SHA: sha, CommitSHA: fmt.Sprintf("local-%d", s.puts)}, nil
}

// Delete removes the object if sha matches its current revision.
func (s *LocalStore) Delete(ctx context.Context, path, sha, message string) error {
	if err := ctx.Err(); err != nil {
		return &StoreError{Op: "delete", Path: path, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(path)
	if err != nil {
		return err
	}
	if current.SHA != sha {
		return &StoreError{Op: "delete", Path: path, Status: http.StatusConflict,
			Body: errorBody(fmt.Sprintf("%s is at %s but expected %s", path, current.SHA, sha))}
	}
	full, err := s.resolve(path)
	if err != nil {
		return &StoreError{Op: "delete", Path: path, Status: http.StatusBadRequest, Err: err}
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return &StoreError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

// Path exposes the on-disk location (useful for debugging).
func (s *LocalStore) Path(path string) string {
	full, _ := s.resolve(path)
	return full
}

func (s *LocalStore) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimLeft(path, "/"))
	if clean == "/" {
		return "", fmt.Errorf("empty path")
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}

func errorBody(message string) []byte {
	body, _ := json.Marshal(map[string]string{"message": message})
	return body
}
