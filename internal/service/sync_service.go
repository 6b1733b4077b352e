package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
	"github.com/noah-isme/painel-aulas-api/pkg/storage"
)

// SyncPolicy restricts which paths the proxy may write.
type SyncPolicy struct {
	DatasetPath string
	MediaDir    string
}

// SyncService is the synchronization proxy: revision lookup, encode, conditional put.
// It never retries; conflicts and transport failures go back to the caller.
type SyncService struct {
	store     storage.Store
	policy    SyncPolicy
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSyncService constructs the proxy service.
func NewSyncService(store storage.Store, policy SyncPolicy, validate *validator.Validate, logger *zap.Logger) *SyncService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	policy.DatasetPath = strings.Trim(policy.DatasetPath, "/")
	policy.MediaDir = strings.Trim(policy.MediaDir, "/")
	return &SyncService{store: store, policy: policy, validator: validate, logger: logger, now: time.Now}
}

// Sync performs exactly one fetch and at most one put.
//
// Store failures are returned as *storage.StoreError so the HTTP layer can relay
// the remote status and body; configuration and validation failures are *errors.Error.
func (s *SyncService) Sync(ctx context.Context, req dto.SyncRequest) (*dto.SyncResult, error) {
	if err := s.store.Ready(); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrConfiguration, err, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sync payload")
	}
	target, err := s.allowedPath(req.Path)
	if err != nil {
		return nil, err
	}

	var currentSHA string
	blob, err := s.store.Fetch(ctx, target)
	switch {
	case err == nil:
		currentSHA = blob.SHA
	case errors.Is(err, storage.ErrNotFound):
		// first write creates the object
	default:
		s.logger.Error("sync revision lookup failed", zap.String("path", target), zap.Error(err))
		return nil, err
	}

	stale := req.BaseSHA != "" && req.BaseSHA != currentSHA
	if req.ExpectAbsent && currentSHA != "" {
		stale = true
	}
	if stale {
		s.logger.Warn("sync rejected stale base revision",
			zap.String("path", target), zap.String("base_sha", req.BaseSHA),
			zap.Bool("expect_absent", req.ExpectAbsent), zap.String("current_sha", currentSHA))
		return nil, staleBaseError(target, req.BaseSHA, currentSHA)
	}

	content := req.Content
	if !req.IsBase64 {
		content = base64.StdEncoding.EncodeToString([]byte(req.Content))
	}

	message := req.Message
	if message == "" {
		message = fmt.Sprintf("Update via Painel Admin: %s", s.now().UTC().Format(time.RFC3339))
	}

	res, err := s.store.Put(ctx, storage.PutRequest{Path: target, Content: content, Message: message, SHA: currentSHA})
	if err != nil {
		s.logger.Error("sync commit failed", zap.String("path", target), zap.Bool("create", currentSHA == ""), zap.Error(err))
		return nil, err
	}

	s.logger.Info("sync committed",
		zap.String("path", target), zap.Bool("created", currentSHA == ""), zap.String("sha", res.SHA), zap.String("commit", res.CommitSHA))
	return &dto.SyncResult{Status: res.Status, Data: res.Body, SHA: res.SHA, CommitSHA: res.CommitSHA}, nil
}

// Commit lets the in-process proxy stand in wherever a remote one could.
func (s *SyncService) Commit(ctx context.Context, req dto.SyncRequest) (*dto.SyncResult, error) {
	return s.Sync(ctx, req)
}

func (s *SyncService) allowedPath(raw string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(raw))[1:]
	if cleaned == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "path is required")
	}
	if cleaned == s.policy.DatasetPath {
		return cleaned, nil
	}
	if s.policy.MediaDir != "" && path.Dir(cleaned) == s.policy.MediaDir {
		return cleaned, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("path %q is outside the dataset and media locations", raw))
}

func staleBaseError(target, base, current string) error {
	if current == "" {
		current = "absent"
	}
	if base == "" {
		base = "absent"
	}
	body, _ := json.Marshal(map[string]string{
		"message": fmt.Sprintf("%s is at %s but the change was based on %s", target, current, base),
	})
	return &storage.StoreError{Op: "sync", Path: target, Status: http.StatusConflict, Body: body}
}
