package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/painel-aulas-api/pkg/jobs"
	"github.com/noah-isme/painel-aulas-api/pkg/storage"
)

// JobKindMediaDelete removes a media file no advertisement references anymore.
const JobKindMediaDelete = "media.delete"

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// MediaCleanupService schedules and performs deletion of unreferenced media files.
type MediaCleanupService struct {
	store    storage.Store
	queue    jobQueue
	mediaDir string
	logger   *zap.Logger
}

// NewMediaCleanupService constructs the cleanup service. The queue is attached
// separately because it needs Handle as its handler.
func NewMediaCleanupService(store storage.Store, mediaDir string, logger *zap.Logger) *MediaCleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaCleanupService{store: store, mediaDir: strings.Trim(mediaDir, "/"), logger: logger}
}

// AttachQueue sets the queue used by Schedule.
func (s *MediaCleanupService) AttachQueue(queue jobQueue) {
	s.queue = queue
}

// Schedule enqueues deletion of path. Failures are logged; the caller's commit already succeeded.
func (s *MediaCleanupService) Schedule(path string) {
	if s == nil || s.queue == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Kind: JobKindMediaDelete, Target: path}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("media cleanup not scheduled, file will remain", zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Debug("media cleanup scheduled", zap.String("path", path), zap.String("job_id", job.ID))
}

// Handle is the queue handler: fetch the file's own revision, then delete with it.
func (s *MediaCleanupService) Handle(ctx context.Context, job jobs.Job) error {
	if job.Kind != JobKindMediaDelete {
		return nil
	}
	if s.mediaDir == "" || !strings.HasPrefix(job.Target, s.mediaDir+"/") {
		s.logger.Error("refusing to delete outside the media directory", zap.String("path", job.Target))
		return nil
	}

	blob, err := s.store.Fetch(ctx, job.Target)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup media revision: %w", err)
	}

	message := "Remove ad media: " + strings.TrimPrefix(job.Target, s.mediaDir+"/")
	if err := s.store.Delete(ctx, job.Target, blob.SHA, message); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete media: %w", err)
	}
	s.logger.Info("media deleted", zap.String("path", job.Target), zap.Int("attempt", job.Attempt))
	return nil
}
