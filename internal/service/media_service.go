package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/internal/models"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
)

// MediaConfig locates media files in the repository and in the published site.
type MediaConfig struct {
	Dir          string
	PublicPrefix string
	MaxBytes     int64
}

// StoredMedia describes a committed media file.
type StoredMedia struct {
	Path     string
	Filename string
	Src      string
	Bytes    int
	MIME     string
}

// MediaService decodes uploaded creatives and commits them under the media directory.
type MediaService struct {
	committer Committer
	config    MediaConfig
	logger    *zap.Logger
}

// NewMediaService constructs the media ingestion service.
func NewMediaService(committer Committer, config MediaConfig, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.Dir = strings.Trim(config.Dir, "/")
	config.PublicPrefix = strings.TrimRight(config.PublicPrefix, "/")
	if config.PublicPrefix == "" {
		config.PublicPrefix = "./media"
	}
	return &MediaService{committer: committer, config: config, logger: logger}
}

// DecodeDataURI returns the payload of a base64 data URI along with its declared MIME type.
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("media must be a data URI")
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, "", fmt.Errorf("data URI has no payload")
	}
	header := uri[len("data:"):comma]
	if !strings.HasSuffix(header, ";base64") {
		return nil, "", fmt.Errorf("data URI must be base64 encoded")
	}
	payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(uri[comma+1:]))
	if err != nil {
		return nil, "", fmt.Errorf("decode data URI: %w", err)
	}
	if len(payload) == 0 {
		return nil, "", fmt.Errorf("data URI payload is empty")
	}
	return payload, strings.TrimSuffix(header, ";base64"), nil
}

// Filename returns ad_<unixMillis>.<ext> for the given creation time.
func (s *MediaService) Filename(mediaType models.MediaType, createdAt time.Time) string {
	return fmt.Sprintf("ad_%d.%s", createdAt.UnixMilli(), mediaType.Extension())
}

// Ingest commits the decoded creative. Nothing is written when validation fails.
func (s *MediaService) Ingest(ctx context.Context, mediaType models.MediaType, dataURI string, createdAt time.Time) (*StoredMedia, error) {
	payload, _, err := DecodeDataURI(dataURI)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if s.config.MaxBytes > 0 && int64(len(payload)) > s.config.MaxBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("media exceeds %d bytes", s.config.MaxBytes))
	}

	detected := mimetype.Detect(payload)
	if !strings.HasPrefix(detected.String(), string(mediaType)+"/") {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("uploaded file is %s, expected %s", detected.String(), mediaType))
	}

	filename := s.Filename(mediaType, createdAt)
	target := path.Join(s.config.Dir, filename)
	_, err = s.committer.Commit(ctx, dto.SyncRequest{
		Path:     target,
		Content:  base64.StdEncoding.EncodeToString(payload),
		IsBase64: true,
		Message:  "Add ad: " + filename,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("media committed", zap.String("path", target), zap.String("mime", detected.String()), zap.Int("bytes", len(payload)))
	return &StoredMedia{
		Path:     target,
		Filename: filename,
		Src:      s.config.PublicPrefix + "/" + filename,
		Bytes:    len(payload),
		MIME:     detected.String(),
	}, nil
}

// PathForSrc maps a persisted src back to its repository path. Sources outside the
// media prefix, such as external URLs, are not ours to delete.
func (s *MediaService) PathForSrc(src string) (string, bool) {
	prefix := s.config.PublicPrefix + "/"
	if !strings.HasPrefix(src, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(src, prefix)
	if name == "" || strings.Contains(name, "/") || name == "." || name == ".." {
		return "", false
	}
	return path.Join(s.config.Dir, name), true
}
