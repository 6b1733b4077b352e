package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/internal/handler"
	"github.com/noah-isme/painel-aulas-api/internal/models"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
)

type tokenStub struct{ role string }

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "valid" {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.JWTClaims{Username: "admin", Role: s.role}, nil
}

type publicStub struct{}

func (publicStub) Dataset(context.Context) (*dto.DatasetView, error) {
	snapshot := models.EmptySnapshot()
	snapshot.ScheduleEntries = append(snapshot.ScheduleEntries, models.ScheduleEntry{ID: "a1", Date: "15/03/2024"})
	return &dto.DatasetView{Snapshot: snapshot, Revision: "rev-1"}, nil
}

func (publicStub) Schedule(context.Context, models.ScheduleFilter) ([]models.ScheduleEntry, error) {
	return []models.ScheduleEntry{}, nil
}

type scheduleStub struct{ listed int }

func (s *scheduleStub) ListSchedule(models.ScheduleFilter) ([]models.ScheduleEntry, error) {
	s.listed++
	return []models.ScheduleEntry{{ID: "a1"}}, nil
}

func (s *scheduleStub) AddScheduleEntry(context.Context, dto.ScheduleEntryInput) (*models.ScheduleEntry, error) {
	return &models.ScheduleEntry{ID: "new"}, nil
}

func (s *scheduleStub) UpdateScheduleEntry(context.Context, string, dto.UpdateScheduleEntryRequest) (*models.ScheduleEntry, bool, error) {
	return nil, false, nil
}

func (s *scheduleStub) DeleteScheduleEntry(context.Context, string) (bool, error) { return false, nil }

func (s *scheduleStub) ClearScheduleEntries(context.Context) (bool, error) { return false, nil }

func (s *scheduleStub) ReplaceScheduleEntries(context.Context, []dto.ScheduleEntryInput) (*dto.ImportResult, error) {
	return &dto.ImportResult{}, nil
}

func (s *scheduleStub) ImportScheduleCSV(context.Context, io.Reader) (*dto.ImportResult, error) {
	return &dto.ImportResult{}, nil
}

type syncStub struct{ calls int }

func (s *syncStub) Sync(context.Context, dto.SyncRequest) (*dto.SyncResult, error) {
	s.calls++
	return &dto.SyncResult{Data: json.RawMessage(`{"content":{}}`)}, nil
}

type routerFixture struct {
	engine   *gin.Engine
	schedule *scheduleStub
	sync     *syncStub
}

func newRouterFixture(role string, docs bool) routerFixture {
	gin.SetMode(gin.TestMode)
	schedule := &scheduleStub{}
	sync := &syncStub{}
	engine := New(Handlers{
		Auth:           handler.NewAuthHandler(nil),
		Dataset:        handler.NewDatasetHandler(publicStub{}, nil),
		Schedule:       handler.NewScheduleHandler(schedule, nil),
		Advertisements: handler.NewAdvertisementHandler(nil, 1024),
		Sync:           handler.NewSyncHandler(sync, nil),
		Metrics:        handler.NewMetricsHandler(nil, nil),
	}, Options{Prefix: "/api/v1", EnableDocs: docs, Tokens: tokenStub{role: role}})
	return routerFixture{engine: engine, schedule: schedule, sync: sync}
}

func (f routerFixture) do(method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestRouterServesHealthAndPublicWithoutToken(t *testing.T) {
	f := newRouterFixture(models.RoleAdmin, false)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "").Code)

	w := f.do(http.MethodGet, "/api/v1/public/dataset", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.Snapshot        `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data.ScheduleEntries, 1)
	assert.Equal(t, "rev-1", body.Meta["revision"])
}

func TestRouterProtectsAdminRoutes(t *testing.T) {
	f := newRouterFixture(models.RoleAdmin, false)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/admin/aulas", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/admin/aulas", "forged").Code)
	assert.Zero(t, f.schedule.listed)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/admin/aulas", "valid").Code)
	assert.Equal(t, 1, f.schedule.listed)
}

func TestRouterRejectsOtherRoles(t *testing.T) {
	f := newRouterFixture("viewer", false)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/v1/admin/aulas", "valid").Code)
	assert.Zero(t, f.schedule.listed)
}

func TestRouterSyncProxyChecksMethodBeforeAuth(t *testing.T) {
	f := newRouterFixture(models.RoleAdmin, false)

	w := f.do(http.MethodGet, LegacySyncPath, "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, LegacySyncPath, "").Code)
	assert.Zero(t, f.sync.calls)
}

func TestRouterMountsDocsOnlyWhenEnabled(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, newRouterFixture(models.RoleAdmin, false).do(http.MethodGet, "/docs/index.html", "").Code)
	assert.Equal(t, http.StatusOK, newRouterFixture(models.RoleAdmin, true).do(http.MethodGet, "/docs/index.html", "").Code)
}
