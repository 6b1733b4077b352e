package service

import (
	"context"
	"time"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/internal/models"
	"github.com/noah-isme/painel-aulas-api/internal/repository"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
)

// PublicService serves the read-only views used by the display screen.
type PublicService struct {
	reader   repository.SnapshotReader
	location *time.Location
	now      func() time.Time
}

// NewPublicService constructs a PublicService reading through reader.
func NewPublicService(reader repository.SnapshotReader, location *time.Location) *PublicService {
	if location == nil {
		location = time.Local
	}
	return &PublicService{reader: reader, location: location, now: time.Now}
}

// Dataset returns the current snapshot and its revision.
func (s *PublicService) Dataset(ctx context.Context) (*dto.DatasetView, error) {
	snapshot, revision, err := s.reader.ReadSnapshot(ctx)
	if err != nil {
		return nil, translateStoreError(err, "failed to read dataset")
	}
	return &dto.DatasetView{Snapshot: snapshot, Revision: revision}, nil
}

// Schedule returns the filtered schedule, today's classes when filter is empty.
func (s *PublicService) Schedule(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, error) {
	view, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := FilterSchedule(view.Snapshot.ScheduleEntries, filter, s.now().In(s.location))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return entries, nil
}
