package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/pkg/storage"
)

// ProxyClient commits through a remote synchronization proxy so this process
// never holds the repository write credential.
type ProxyClient struct {
	url        string
	httpClient *http.Client
}

// NewProxyClient builds a client for the proxy endpoint at url. A non-empty token
// is sent as a bearer credential.
func NewProxyClient(url, token string, timeout time.Duration) *ProxyClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var client *http.Client
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		client = oauth2.NewClient(context.Background(), src)
	} else {
		client = &http.Client{}
	}
	client.Timeout = timeout
	return &ProxyClient{url: url, httpClient: client}
}

// Commit posts the sync request. Non-200 answers come back as *storage.StoreError
// carrying the relayed status and body.
func (c *ProxyClient) Commit(ctx context.Context, req dto.SyncRequest) (*dto.SyncResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode sync request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build sync request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &storage.StoreError{Op: "sync", Path: req.Path, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &storage.StoreError{Op: "sync", Path: req.Path, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &storage.StoreError{Op: "sync", Path: req.Path, Status: resp.StatusCode, Body: body}
	}

	var parsed dto.SyncResponse
	if err := json.Unmarshal(body, &parsed); err != nil || !parsed.Success {
		return nil, &storage.StoreError{Op: "sync", Path: req.Path, Status: resp.StatusCode, Body: body,
			Err: fmt.Errorf("unexpected proxy response")}
	}

	result := &dto.SyncResult{Status: resp.StatusCode, Data: parsed.Data}
	var content struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	if err := json.Unmarshal(parsed.Data, &content); err == nil {
		result.SHA = content.Content.SHA
		result.CommitSHA = content.Commit.SHA
	}
	return result, nil
}
