package service

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/internal/models"
	"github.com/noah-isme/painel-aulas-api/internal/repository"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
	"github.com/noah-isme/painel-aulas-api/pkg/storage"
)

// Committer writes one object through the synchronization proxy, in process or remote.
type Committer interface {
	Commit(ctx context.Context, req dto.SyncRequest) (*dto.SyncResult, error)
}

type mediaIngester interface {
	Ingest(ctx context.Context, mediaType models.MediaType, dataURI string, createdAt time.Time) (*StoredMedia, error)
	PathForSrc(src string) (string, bool)
}

type mediaCleaner interface {
	Schedule(path string)
}

type snapshotInvalidator interface {
	Invalidate(ctx context.Context) error
}

// DatasetConfig configures the dataset repository.
type DatasetConfig struct {
	Path              string
	MaxAdvertisements int
	Location          *time.Location
}

// DatasetService owns the in-memory snapshot and persists every mutation as a full
// document commit. The snapshot only changes after a commit succeeds.
type DatasetService struct {
	mu sync.Mutex

	reader    repository.SnapshotReader
	committer Committer
	media     mediaIngester
	cleanup   mediaCleaner
	cache     snapshotInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    DatasetConfig
	now       func() time.Time
	newID     func() string

	snapshot models.Snapshot
	revision string
	loaded   bool
}

// NewDatasetService constructs the dataset repository.
func NewDatasetService(reader repository.SnapshotReader, committer Committer, media mediaIngester, validate *validator.Validate, logger *zap.Logger, config DatasetConfig) *DatasetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	RegisterScheduleValidations(validate)
	return &DatasetService{
		reader:    reader,
		committer: committer,
		media:     media,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
		newID:     uuid.NewString,
		snapshot:  models.EmptySnapshot(),
	}
}

// WithCleanup enables deletion of media files whose advertisement was removed.
func (s *DatasetService) WithCleanup(cleanup mediaCleaner) *DatasetService {
	s.cleanup = cleanup
	return s
}

// WithCache registers a cache invalidated after every commit.
func (s *DatasetService) WithCache(cache snapshotInvalidator) *DatasetService {
	s.cache = cache
	return s
}

// WithMetrics records commit outcomes.
func (s *DatasetService) WithMetrics(metrics *MetricsService) *DatasetService {
	s.metrics = metrics
	return s
}

// Load replaces the in-memory snapshot with the stored one. A missing document is empty.
func (s *DatasetService) Load(ctx context.Context) (*dto.DatasetView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, revision, err := s.reader.ReadSnapshot(ctx)
	if err != nil {
		s.logger.Error("dataset load failed", zap.Error(err))
		return nil, translateStoreError(err, "failed to load dataset")
	}
	s.snapshot = snapshot
	s.revision = revision
	s.loaded = true
	s.logger.Info("dataset loaded",
		zap.String("revision", revision),
		zap.Int("aulas", len(snapshot.ScheduleEntries)),
		zap.Int("anuncios", len(snapshot.Advertisements)))
	return &dto.DatasetView{Snapshot: snapshot.Clone(), Revision: revision}, nil
}

// View returns a copy of the current snapshot and its revision.
func (s *DatasetService) View() (*dto.DatasetView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, appErrors.ErrNotLoaded
	}
	return &dto.DatasetView{Snapshot: s.snapshot.Clone(), Revision: s.revision}, nil
}

// ListSchedule returns the filtered schedule ordered by start time.
func (s *DatasetService) ListSchedule(filter models.ScheduleFilter) ([]models.ScheduleEntry, error) {
	view, err := s.View()
	if err != nil {
		return nil, err
	}
	entries, err := FilterSchedule(view.Snapshot.ScheduleEntries, filter, s.now().In(s.config.Location))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return entries, nil
}

// AddScheduleEntry appends a new class with a fresh id.
func (s *DatasetService) AddScheduleEntry(ctx context.Context, input dto.ScheduleEntryInput) (*models.ScheduleEntry, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, appErrors.ErrNotLoaded
	}

	entry := s.buildEntry(input)
	candidate := s.snapshot.Clone()
	candidate.ScheduleEntries = append(candidate.ScheduleEntries, entry)
	if err := s.commit(ctx, candidate, "add schedule entry"); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ReplaceScheduleEntries swaps the whole schedule for the given rows. Spreadsheet
// dates and times are normalized first; rows still invalid after that are dropped.
// An import with no valid row is rejected rather than clearing the schedule.
func (s *DatasetService) ReplaceScheduleEntries(ctx context.Context, inputs []dto.ScheduleEntryInput) (*dto.ImportResult, error) {
	entries := make([]models.ScheduleEntry, 0, len(inputs))
	dropped := 0
	for _, input := range inputs {
		input.Date = normalizeDate(input.Date)
		input.StartTime = normalizeClock(input.StartTime)
		input.EndTime = normalizeClock(input.EndTime)
		if err := s.validator.Struct(input); err != nil {
			dropped++
			continue
		}
		entries = append(entries, s.buildEntry(input))
	}
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "import contains no valid rows")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, appErrors.ErrNotLoaded
	}

	candidate := s.snapshot.Clone()
	candidate.ScheduleEntries = entries
	if err := s.commit(ctx, candidate, "import schedule"); err != nil {
		return nil, err
	}
	return &dto.ImportResult{Imported: len(entries), Dropped: dropped, Entries: entries}, nil
}

// ImportScheduleCSV parses a spreadsheet export and replaces the schedule with it.
func (s *DatasetService) ImportScheduleCSV(ctx context.Context, r io.Reader) (*dto.ImportResult, error) {
	rows, dropped, err := ParseScheduleCSV(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read csv")
	}
	result, err := s.ReplaceScheduleEntries(ctx, rows)
	if err != nil {
		return nil, err
	}
	result.Dropped += dropped
	return result, nil
}

// UpdateScheduleEntry merges the present fields into the entry with id. An unknown
// id is a no-op and reports changed=false.
func (s *DatasetService) UpdateScheduleEntry(ctx context.Context, id string, req dto.UpdateScheduleEntryRequest) (*models.ScheduleEntry, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule entry update")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, false, appErrors.ErrNotLoaded
	}

	candidate := s.snapshot.Clone()
	idx := indexOfEntry(candidate.ScheduleEntries, id)
	if idx < 0 {
		return nil, false, nil
	}
	entry := candidate.ScheduleEntries[idx]
	applyEntryUpdate(&entry, req)
	entry.Shift = DeriveShift(entry.StartTime)
	candidate.ScheduleEntries[idx] = entry

	if err := s.commit(ctx, candidate, "update schedule entry"); err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

// DeleteScheduleEntry removes the entry with id. An unknown id is a no-op.
func (s *DatasetService) DeleteScheduleEntry(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return false, appErrors.ErrNotLoaded
	}

	idx := indexOfEntry(s.snapshot.ScheduleEntries, id)
	if idx < 0 {
		return false, nil
	}
	candidate := s.snapshot.Clone()
	candidate.ScheduleEntries = append(candidate.ScheduleEntries[:idx], candidate.ScheduleEntries[idx+1:]...)
	if err := s.commit(ctx, candidate, "delete schedule entry"); err != nil {
		return false, err
	}
	return true, nil
}

// ClearScheduleEntries empties the schedule. Confirmation is the caller's job.
func (s *DatasetService) ClearScheduleEntries(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return false, appErrors.ErrNotLoaded
	}
	if len(s.snapshot.ScheduleEntries) == 0 {
		return false, nil
	}
	candidate := s.snapshot.Clone()
	candidate.ScheduleEntries = []models.ScheduleEntry{}
	if err := s.commit(ctx, candidate, "clear schedule"); err != nil {
		return false, err
	}
	return true, nil
}

// ListAdvertisements returns the current advertisements in display order.
func (s *DatasetService) ListAdvertisements() ([]models.Advertisement, error) {
	view, err := s.View()
	if err != nil {
		return nil, err
	}
	return view.Snapshot.Advertisements, nil
}

// AddAdvertisement commits the media file, then the snapshot that references it.
// When the second commit fails the file stays behind and the list is unchanged.
func (s *DatasetService) AddAdvertisement(ctx context.Context, req dto.CreateAdvertisementRequest) (*models.Advertisement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid advertisement")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, appErrors.ErrNotLoaded
	}
	if limit := s.config.MaxAdvertisements; limit > 0 && len(s.snapshot.Advertisements) >= limit {
		return nil, appErrors.Clone(appErrors.ErrQuotaExceeded, "advertisement limit of "+strconv.Itoa(limit)+" reached")
	}

	createdAt := s.now()
	mediaType := models.MediaType(req.Type)
	stored, err := s.media.Ingest(ctx, mediaType, req.Src, createdAt)
	if err != nil {
		s.metrics.RecordCommit("media", commitOutcome(err))
		return nil, translateStoreError(err, "failed to upload media")
	}
	s.metrics.RecordCommit("media", CommitOutcomeSuccess)

	ad := models.Advertisement{
		ID:        strconv.FormatInt(createdAt.UnixMilli(), 10),
		MediaType: mediaType,
		Src:       stored.Src,
	}
	candidate := s.snapshot.Clone()
	candidate.Advertisements = append(candidate.Advertisements, ad)
	if err := s.commit(ctx, candidate, "add advertisement"); err != nil {
		s.metrics.RecordOrphanedMedia()
		s.logger.Warn("media committed but snapshot commit failed, file is orphaned",
			zap.String("media_path", stored.Path), zap.String("ad_id", ad.ID), zap.Error(err))
		return nil, err
	}
	return &ad, nil
}

// DeleteAdvertisement removes the record and, when cleanup is enabled, schedules
// removal of its media file once no other record points at it.
func (s *DatasetService) DeleteAdvertisement(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return false, appErrors.ErrNotLoaded
	}

	idx := -1
	for i, ad := range s.snapshot.Advertisements {
		if ad.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	removed := s.snapshot.Advertisements[idx]
	candidate := s.snapshot.Clone()
	candidate.Advertisements = append(candidate.Advertisements[:idx], candidate.Advertisements[idx+1:]...)
	if err := s.commit(ctx, candidate, "delete advertisement"); err != nil {
		return false, err
	}

	if s.cleanup != nil && s.media != nil && !referencesSrc(candidate.Advertisements, removed.Src) {
		if mediaPath, ok := s.media.PathForSrc(removed.Src); ok {
			s.cleanup.Schedule(mediaPath)
		}
	}
	return true, nil
}

// commit persists candidate against the revision the snapshot was read at and
// adopts it on success. Callers hold s.mu.
func (s *DatasetService) commit(ctx context.Context, candidate models.Snapshot, action string) error {
	payload, err := repository.EncodeSnapshot(candidate)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode dataset")
	}

	res, err := s.committer.Commit(ctx, dto.SyncRequest{
		Path:         s.config.Path,
		Content:      string(payload),
		BaseSHA:      s.revision,
		ExpectAbsent: s.revision == "",
	})
	if err != nil {
		outcome := commitOutcome(err)
		s.metrics.RecordCommit("snapshot", outcome)
		s.logger.Error("dataset commit failed", zap.String("action", action), zap.String("outcome", outcome),
			zap.String("base_revision", s.revision), zap.Error(err))
		return translateStoreError(err, "failed to save")
	}

	revision := res.SHA
	if revision == "" {
		revision = storage.BlobSHA(payload)
	}
	candidate.Normalize()
	s.snapshot = candidate
	s.revision = revision
	s.metrics.RecordCommit("snapshot", CommitOutcomeSuccess)
	s.logger.Info("dataset committed", zap.String("action", action), zap.String("revision", revision), zap.String("commit", res.CommitSHA))

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("snapshot cache invalidation failed", zap.String("action", action), zap.Error(err))
		}
	}
	return nil
}

func (s *DatasetService) buildEntry(input dto.ScheduleEntryInput) models.ScheduleEntry {
	start := normalizeClock(input.StartTime)
	return models.ScheduleEntry{
		ID:         s.newID(),
		Date:       normalizeDate(input.Date),
		Room:       input.Room,
		Group:      input.Group,
		Instructor: input.Instructor,
		Subject:    input.Subject,
		StartTime:  start,
		EndTime:    normalizeClock(input.EndTime),
		Shift:      DeriveShift(start),
	}
}

func applyEntryUpdate(entry *models.ScheduleEntry, req dto.UpdateScheduleEntryRequest) {
	if req.Date != nil {
		entry.Date = normalizeDate(*req.Date)
	}
	if req.Room != nil {
		entry.Room = *req.Room
	}
	if req.Group != nil {
		entry.Group = *req.Group
	}
	if req.Instructor != nil {
		entry.Instructor = *req.Instructor
	}
	if req.Subject != nil {
		entry.Subject = *req.Subject
	}
	if req.StartTime != nil {
		entry.StartTime = normalizeClock(*req.StartTime)
	}
	if req.EndTime != nil {
		entry.EndTime = normalizeClock(*req.EndTime)
	}
}

func indexOfEntry(entries []models.ScheduleEntry, id string) int {
	for i, entry := range entries {
		if entry.ID == id {
			return i
		}
	}
	return -1
}

func referencesSrc(ads []models.Advertisement, src string) bool {
	for _, ad := range ads {
		if ad.Src == src {
			return true
		}
	}
	return false
}

func commitOutcome(err error) string {
	if isConflict(err) {
		return CommitOutcomeConflict
	}
	return CommitOutcomeFailure
}
