package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/internal/models"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
)

type committerStub struct {
	calls []dto.SyncRequest
	err   error
}

func (c *committerStub) Commit(_ context.Context, req dto.SyncRequest) (*dto.SyncResult, error) {
	c.calls = append(c.calls, req)
	if c.err != nil {
		return nil, c.err
	}
	return &dto.SyncResult{Status: 201}, nil
}

func TestDecodeDataURI(t *testing.T) {
	payload, mime, err := DecodeDataURI("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), payload)
	assert.Equal(t, "image/png", mime)

	for _, bad := range []string{
		"https://example.com/a.png",
		"data:image/png;base64",
		"data:text/plain,hello",
		"data:image/png;base64,%%%",
		"data:image/png;base64,",
	} {
		_, _, err := DecodeDataURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestMediaIngestCommitsBase64(t *testing.T) {
	committer := &committerStub{}
	svc := NewMediaService(committer, MediaConfig{Dir: "/public/media/", PublicPrefix: "./media/"}, nil)

	stored, err := svc.Ingest(context.Background(), models.MediaTypeImage, pngDataURI(), time.UnixMilli(1700000000000))
	require.NoError(t, err)
	assert.Equal(t, "public/media/ad_1700000000000.png", stored.Path)
	assert.Equal(t, "./media/ad_1700000000000.png", stored.Src)
	assert.Equal(t, "image/png", stored.MIME)

	require.Len(t, committer.calls, 1)
	assert.True(t, committer.calls[0].IsBase64)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), committer.calls[0].Content)
}

func TestMediaIngestEnforcesSizeLimit(t *testing.T) {
	committer := &committerStub{}
	svc := NewMediaService(committer, MediaConfig{Dir: "public/media", MaxBytes: 4}, nil)

	_, err := svc.Ingest(context.Background(), models.MediaTypeImage, pngDataURI(), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPayloadTooLarge))
	assert.Empty(t, committer.calls)
}

func TestMediaIngestPropagatesCommitFailure(t *testing.T) {
	committer := &committerStub{err: errors.New("offline")}
	svc := NewMediaService(committer, MediaConfig{Dir: "public/media"}, nil)

	_, err := svc.Ingest(context.Background(), models.MediaTypeImage, pngDataURI(), time.Now())
	assert.EqualError(t, err, "offline")
}

func TestMediaFilenameUsesExtension(t *testing.T) {
	svc := NewMediaService(&committerStub{}, MediaConfig{Dir: "public/media"}, nil)
	ts := time.UnixMilli(5)
	assert.Equal(t, "ad_5.mp4", svc.Filename(models.MediaTypeVideo, ts))
	assert.Equal(t, "ad_5.png", svc.Filename(models.MediaTypeImage, ts))
}

func TestMediaPathForSrc(t *testing.T) {
	svc := NewMediaService(&committerStub{}, MediaConfig{Dir: "public/media", PublicPrefix: "./media"}, nil)

	p, ok := svc.PathForSrc("./media/ad_1.png")
	assert.True(t, ok)
	assert.Equal(t, "public/media/ad_1.png", p)

	for _, src := range []string{"https://cdn/ad.png", "./media/", "./media/../db.json", "data:image/png;base64,AAAA"} {
		_, ok := svc.PathForSrc(src)
		assert.False(t, ok, src)
	}
}
