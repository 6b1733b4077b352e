package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/pkg/storage"
)

const sampleDocument = `{"aulas":[{"id":"1","data":"10/03/2024","sala":"Lab","turma":"T1","instrutor":"Ana","unidade_curricular":"Redes","inicio":"08:00","fim":"12:00","turno":"Matutino"}],"anuncios":[]}`

func TestStoreReaderMissingDocument(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	snapshot, revision, err := NewStoreReader(store, "public/db.json").ReadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, revision)
	assert.Empty(t, snapshot.ScheduleEntries)
	assert.NotNil(t, snapshot.Advertisements)
}

func TestStoreReaderReturnsRevision(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	res, err := store.Put(context.Background(), storage.PutRequest{
		Path: "public/db.json", Content: base64.StdEncoding.EncodeToString([]byte(sampleDocument)),
	})
	require.NoError(t, err)

	snapshot, revision, err := NewStoreReader(store, "public/db.json").ReadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.SHA, revision)
	require.Len(t, snapshot.ScheduleEntries, 1)
	assert.Equal(t, "Redes", snapshot.ScheduleEntries[0].Subject)
}

func TestRawReader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/acme/site/main/public/db.json":
			_, _ = w.Write([]byte(sampleDocument))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	snapshot, revision, err := NewRawReader(srv.URL, "acme", "site", "main", "/public/db.json", time.Second).ReadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storage.BlobSHA([]byte(sampleDocument)), revision)
	assert.Len(t, snapshot.ScheduleEntries, 1)

	empty, revision, err := NewRawReader(srv.URL, "acme", "site", "dev", "public/db.json", time.Second).ReadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, revision)
	assert.Empty(t, empty.ScheduleEntries)
}

func TestRawReaderSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, _, err := NewRawReader(srv.URL, "acme", "site", "", "db.json", time.Second).ReadSnapshot(context.Background())
	storeErr, ok := storage.AsStoreError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, storeErr.Status)
}

func TestProxyReader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":` + sampleDocument + `,"meta":{"revision":"abc123"}}`))
	}))
	defer srv.Close()

	snapshot, revision, err := NewProxyReader(srv.URL, time.Second).ReadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", revision)
	assert.Len(t, snapshot.ScheduleEntries, 1)
}

func TestProxyClientCommit(t *testing.T) {
	var received dto.SyncRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"success":true,"data":{"content":{"sha":"new-sha"},"commit":{"sha":"c1"}}}`))
	}))
	defer srv.Close()

	res, err := NewProxyClient(srv.URL, "token", time.Second).Commit(context.Background(), dto.SyncRequest{
		Path: "public/db.json", Content: "{}", BaseSHA: "old-sha",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-sha", res.SHA)
	assert.Equal(t, "c1", res.CommitSHA)
	assert.Equal(t, "old-sha", received.BaseSHA)
	assert.False(t, received.IsBase64)
}

func TestProxyClientForwardsExpectAbsent(t *testing.T) {
	var received dto.SyncRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"success":true,"data":{"content":{"sha":"first"}}}`))
	}))
	defer srv.Close()

	_, err := NewProxyClient(srv.URL, "token", time.Second).Commit(context.Background(), dto.SyncRequest{
		Path: "public/db.json", Content: "{}", ExpectAbsent: true,
	})
	require.NoError(t, err)
	assert.True(t, received.ExpectAbsent)
	assert.Empty(t, received.BaseSHA)
}

func TestProxyClientRelaysFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"public/db.json does not match"}`))
	}))
	defer srv.Close()

	_, err := NewProxyClient(srv.URL, "", time.Second).Commit(context.Background(), dto.SyncRequest{Path: "public/db.json"})
	storeErr, ok := storage.AsStoreError(err)
	require.True(t, ok)
	assert.True(t, storeErr.Conflict())
	assert.Contains(t, string(storeErr.Body), "does not match")
}
