package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/noah-isme/painel-aulas-api/pkg/config"
)

const (
	githubAcceptJSON  = "application/vnd.github+json"
	githubAcceptRaw   = "application/vnd.github.raw"
	githubAPIVersion  = "2022-11-28"
	maxErrorBodyBytes = 64 * 1024
)

// GitHubStore talks to the repository contents endpoint.
type GitHubStore struct {
	cfg        config.GitHubConfig
	httpClient *http.Client
}

type githubContent struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type githubPutBody struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type githubDeleteBody struct {
	Message string `json:"message"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch,omitempty"`
}

type githubPutResponse struct {
	Content struct {
		SHA  string `json:"sha"`
		Path string `json:"path"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// NewGitHubStore builds a store authenticated with the configured token.
func NewGitHubStore(cfg config.GitHubConfig) *GitHubStore {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.github.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	var client *http.Client
	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
		client = oauth2.NewClient(context.Background(), src)
	} else {
		client = &http.Client{}
	}
	client.Timeout = cfg.Timeout

	return &GitHubStore{cfg: cfg, httpClient: client}
}

// WithHTTPClient replaces the HTTP client. Used by tests.
func (s *GitHubStore) WithHTTPClient(client *http.Client) *GitHubStore {
	s.httpClient = client
	return s
}

// Ready reports whether the owner, repo and token are configured.
func (s *GitHubStore) Ready() error {
	if !s.cfg.Configured() {
		return ErrNotConfigured
	}
	return nil
}

// Fetch reads the object at path. A 404 yields ErrNotFound.
func (s *GitHubStore) Fetch(ctx context.Context, path string) (*Blob, error) {
	endpoint := s.contentsURL(path)
	if s.cfg.Branch != "" {
		endpoint += "?ref=" + url.QueryEscape(s.cfg.Branch)
	}

	status, body, err := s.do(ctx, http.MethodGet, endpoint, githubAcceptJSON, nil)
	if err != nil {
		return nil, &StoreError{Op: "fetch", Path: path, Err: err}
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("fetch %s: %w", path, ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, &StoreError{Op: "fetch", Path: path, Status: status, Body: body}
	}

	var meta githubContent
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, &StoreError{Op: "fetch", Path: path, Status: status, Body: body, Err: fmt.Errorf("decode contents: %w", err)}
	}
	if meta.Type != "" && meta.Type != "file" {
		return nil, &StoreError{Op: "fetch", Path: path, Status: status, Err: fmt.Errorf("path is a %s, not a file", meta.Type)}
	}

	blob := &Blob{Path: path, SHA: meta.SHA}
	switch {
	case meta.Encoding == "base64":
		// the API wraps base64 at 60 columns
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(meta.Content, "\n", ""))
		if err != nil {
			return nil, &StoreError{Op: "fetch", Path: path, Status: status, Err: fmt.Errorf("decode content: %w", err)}
		}
		blob.Content = decoded
	case meta.Size == 0:
		blob.Content = []byte{}
	default:
		// files over 1MB come back with encoding "none"
		raw, err := s.fetchRaw(ctx, path)
		if err != nil {
			return nil, err
		}
		blob.Content = raw
	}
	return blob, nil
}

func (s *GitHubStore) fetchRaw(ctx context.Context, path string) ([]byte, error) {
	endpoint := s.contentsURL(path)
	if s.cfg.Branch != "" {
		endpoint += "?ref=" + url.QueryEscape(s.cfg.Branch)
	}
	status, body, err := s.do(ctx, http.MethodGet, endpoint, githubAcceptRaw, nil)
	if err != nil {
		return nil, &StoreError{Op: "fetch", Path: path, Err: err}
	}
	if status != http.StatusOK {
		return nil, &StoreError{Op: "fetch", Path: path, Status: status, Body: body}
	}
	return body, nil
}

// Put creates or updates the object. The remote rejects stale or missing SHAs.
func (s *GitHubStore) Put(ctx context.Context, req PutRequest) (*PutResult, error) {
	payload, err := json.Marshal(githubPutBody{
		Message: req.Message,
		Content: req.Content,
		SHA:     req.SHA,
		Branch:  s.cfg.Branch,
	})
	if err != nil {
		return nil, fmt.Errorf("encode put body: %w", err)
	}

	status, body, err := s.do(ctx, http.MethodPut, s.contentsURL(req.Path), githubAcceptJSON, payload)
	if err != nil {
		return nil, &StoreError{Op: "put", Path: req.Path, Err: err}
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, &StoreError{Op: "put", Path: req.Path, Status: status, Body: body}
	}

	result := &PutResult{Status: status, Body: json.RawMessage(body)}
	var parsed githubPutResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		result.SHA = parsed.Content.SHA
		result.CommitSHA = parsed.Commit.SHA
	}
	return result, nil
}

// Delete removes the object at the given revision.
func (s *GitHubStore) Delete(ctx context.Context, path, sha, message string) error {
	payload, err := json.Marshal(githubDeleteBody{Message: message, SHA: sha, Branch: s.cfg.Branch})
	if err != nil {
		return fmt.Errorf("encode delete body: %w", err)
	}
	status, body, err := s.do(ctx, http.MethodDelete, s.contentsURL(path), githubAcceptJSON, payload)
	if err != nil {
		return &StoreError{Op: "delete", Path: path, Err: err}
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("delete %s: %w", path, ErrNotFound)
	}
	if status != http.StatusOK {
		return &StoreError{Op: "delete", Path: path, Status: status, Body: body}
	}
	return nil
}

func (s *GitHubStore) do(ctx context.Context, method, endpoint, accept string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	var src io.Reader = resp.Body
	if resp.StatusCode >= 300 {
		src = io.LimitReader(resp.Body, maxErrorBodyBytes)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (s *GitHubStore) contentsURL(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		s.cfg.APIBaseURL, url.PathEscape(s.cfg.Owner), url.PathEscape(s.cfg.Repo), strings.Join(segments, "/"))
}
