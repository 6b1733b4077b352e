package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/internal/models"
	"github.com/noah-isme/painel-aulas-api/internal/service"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
)

type scheduleServiceMock struct {
	cleared   bool
	csvBody   string
	replaced  []dto.ScheduleEntryInput
	filter    models.ScheduleFilter
	addErr    error
	deleteHit bool
}

func (m *scheduleServiceMock) ListSchedule(filter models.ScheduleFilter) ([]models.ScheduleEntry, error) {
	m.filter = filter
	return []models.ScheduleEntry{{ID: "1"}}, nil
}

func (m *scheduleServiceMock) AddScheduleEntry(_ context.Context, input dto.ScheduleEntryInput) (*models.ScheduleEntry, error) {
	if m.addErr != nil {
		return nil, m.addErr
	}
	return &models.ScheduleEntry{ID: "new", Date: input.Date}, nil
}

func (m *scheduleServiceMock) UpdateScheduleEntry(_ context.Context, id string, _ dto.UpdateScheduleEntryRequest) (*models.ScheduleEntry, bool, error) {
	return nil, false, nil
}

func (m *scheduleServiceMock) DeleteScheduleEntry(_ context.Context, id string) (bool, error) {
	return m.deleteHit, nil
}

func (m *scheduleServiceMock) ClearScheduleEntries(context.Context) (bool, error) {
	m.cleared = true
	return true, nil
}

func (m *scheduleServiceMock) ReplaceScheduleEntries(_ context.Context, inputs []dto.ScheduleEntryInput) (*dto.ImportResult, error) {
	m.replaced = inputs
	return &dto.ImportResult{Imported: len(inputs)}, nil
}

func (m *scheduleServiceMock) ImportScheduleCSV(_ context.Context, r io.Reader) (*dto.ImportResult, error) {
	body, _ := io.ReadAll(r)
	m.csvBody = string(body)
	return &dto.ImportResult{Imported: 1}, nil
}

type exporterMock struct {
	format string
}

func (m *exporterMock) ExportSchedule(_ models.ScheduleFilter, format string) (*service.ExportResult, error) {
	m.format = format
	return &service.ExportResult{Filename: "aulas.csv", ContentType: "text/csv; charset=utf-8", Payload: []byte("data\n"), Rows: 0}, nil
}

func newScheduleContext(method, target string, body io.Reader, contentType string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.Request = req
	return c, w
}

func TestScheduleHandlerClearRequiresConfirmation(t *testing.T) {
	svc := &scheduleServiceMock{}
	handler := NewScheduleHandler(svc, &exporterMock{})

	c, w := newScheduleContext(http.MethodDelete, "/admin/aulas", nil, "")
	handler.Clear(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, svc.cleared)

	c, w = newScheduleContext(http.MethodDelete, "/admin/aulas?confirm=true", nil, "")
	handler.Clear(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.cleared)
}

func TestScheduleHandlerListPassesFilter(t *testing.T) {
	svc := &scheduleServiceMock{}
	handler := NewScheduleHandler(svc, &exporterMock{})

	c, w := newScheduleContext(http.MethodGet, "/admin/aulas?start=2024-01-01&end=2024-01-31", nil, "")
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ScheduleFilter{Start: "2024-01-01", End: "2024-01-31"}, svc.filter)

	var body struct {
		Data []models.ScheduleEntry `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.EqualValues(t, 1, body.Meta["total"])
}

func TestScheduleHandlerCreateMapsConflict(t *testing.T) {
	svc := &scheduleServiceMock{addErr: appErrors.Clone(appErrors.ErrConflict, "the dataset changed remotely")}
	handler := NewScheduleHandler(svc, &exporterMock{})

	c, w := newScheduleContext(http.MethodPost, "/admin/aulas", bytes.NewBufferString(`{"data":"10/03/2024"}`), "application/json")
	handler.Create(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CONFLICT")
}

func TestScheduleHandlerImportMultipart(t *testing.T) {
	svc := &scheduleServiceMock{}
	handler := NewScheduleHandler(svc, &exporterMock{})

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", "aulas.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("h\n10/03/2024,a,b,c,d\n"))
	require.NoError(t, writer.Close())

	c, w := newScheduleContext(http.MethodPost, "/admin/aulas/import", buf, writer.FormDataContentType())
	handler.Import(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "h\n10/03/2024,a,b,c,d\n", svc.csvBody)
}

func TestScheduleHandlerImportJSON(t *testing.T) {
	svc := &scheduleServiceMock{}
	handler := NewScheduleHandler(svc, &exporterMock{})

	c, w := newScheduleContext(http.MethodPost, "/admin/aulas/import", bytes.NewBufferString(`{"aulas":[{"data":"10/03/2024","sala":"A"}]}`), "application/json")
	handler.Import(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.replaced, 1)
	assert.Equal(t, "A", svc.replaced[0].Room)
}

func TestScheduleHandlerExport(t *testing.T) {
	exporter := &exporterMock{}
	handler := NewScheduleHandler(&scheduleServiceMock{}, exporter)

	c, w := newScheduleContext(http.MethodGet, "/admin/aulas/export", nil, "")
	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "aulas.csv")
	assert.Equal(t, "data\n", w.Body.String())
}
