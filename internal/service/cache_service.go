package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/painel-aulas-api/internal/models"
	"github.com/noah-isme/painel-aulas-api/internal/repository"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
)

// SnapshotCacheKey is where the public snapshot is cached.
const SnapshotCacheKey = "painel:dataset:snapshot"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type cachedSnapshot struct {
	Snapshot models.Snapshot `json:"snapshot"`
	Revision string          `json:"revision"`
}

// CachedReader fronts a SnapshotReader with a cache. Cache failures fall through
// to the underlying reader.
type CachedReader struct {
	reader  repository.SnapshotReader
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewCachedReader constructs a cached reader.
func NewCachedReader(reader repository.SnapshotReader, repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CachedReader {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedReader{reader: reader, repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (r *CachedReader) Enabled() bool {
	return r != nil && r.enabled && r.repo != nil
}

// ReadSnapshot implements repository.SnapshotReader.
func (r *CachedReader) ReadSnapshot(ctx context.Context) (models.Snapshot, string, error) {
	if !r.Enabled() {
		return r.reader.ReadSnapshot(ctx)
	}

	var cached cachedSnapshot
	err := r.repo.Get(ctx, SnapshotCacheKey, &cached)
	switch {
	case err == nil:
		r.metrics.RecordCacheLookup(true)
		cached.Snapshot.Normalize()
		return cached.Snapshot, cached.Revision, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		r.metrics.RecordCacheLookup(false)
	default:
		r.metrics.RecordCacheLookup(false)
		r.logger.Warn("cache get failed", zap.String("key", SnapshotCacheKey), zap.Error(err))
	}

	snapshot, revision, err := r.reader.ReadSnapshot(ctx)
	if err != nil {
		return models.Snapshot{}, "", err
	}
	if err := r.repo.Set(ctx, SnapshotCacheKey, cachedSnapshot{Snapshot: snapshot, Revision: revision}, r.ttl); err != nil {
		r.logger.Warn("cache set failed", zap.String("key", SnapshotCacheKey), zap.Error(err))
	}
	return snapshot, revision, nil
}

// Invalidate drops the cached snapshot so the next read goes to the store.
func (r *CachedReader) Invalidate(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	return r.repo.Delete(ctx, SnapshotCacheKey)
}
