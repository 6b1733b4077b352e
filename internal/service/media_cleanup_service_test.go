package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/painel-aulas-api/pkg/jobs"
	"github.com/noah-isme/painel-aulas-api/pkg/storage"
)

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestMediaCleanupSchedule(t *testing.T) {
	svc := NewMediaCleanupService(nil, "public/media", nil)
	svc.Schedule("public/media/ad_1.png")

	queue := &queueStub{}
	svc.AttachQueue(queue)
	svc.Schedule("public/media/ad_1.png")
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobKindMediaDelete, queue.jobs[0].Kind)
	assert.Equal(t, "public/media/ad_1.png", queue.jobs[0].Target)
	assert.NotEmpty(t, queue.jobs[0].ID)

	queue.err = errors.New("full")
	svc.Schedule("public/media/ad_2.png")
	assert.Len(t, queue.jobs, 1)
}

func TestMediaCleanupHandleDeletesFile(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	_, err = store.Put(ctx, storage.PutRequest{Path: "public/media/ad_1.png", Content: base64.StdEncoding.EncodeToString(pngHeader)})
	require.NoError(t, err)

	svc := NewMediaCleanupService(store, "public/media", nil)
	require.NoError(t, svc.Handle(ctx, jobs.Job{Kind: JobKindMediaDelete, Target: "public/media/ad_1.png"}))

	_, err = store.Fetch(ctx, "public/media/ad_1.png")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	// already gone
	assert.NoError(t, svc.Handle(ctx, jobs.Job{Kind: JobKindMediaDelete, Target: "public/media/ad_1.png"}))
}

func TestMediaCleanupRefusesOutsideMediaDir(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	_, err = store.Put(ctx, storage.PutRequest{Path: "public/db.json", Content: base64.StdEncoding.EncodeToString([]byte("{}"))})
	require.NoError(t, err)

	svc := NewMediaCleanupService(store, "public/media", nil)
	require.NoError(t, svc.Handle(ctx, jobs.Job{Kind: JobKindMediaDelete, Target: "public/db.json"}))

	_, err = store.Fetch(ctx, "public/db.json")
	assert.NoError(t, err)
}
