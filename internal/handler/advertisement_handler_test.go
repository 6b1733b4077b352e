package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/internal/models"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
)

type advertisementServiceMock struct {
	received *dto.CreateAdvertisementRequest
	addErr   error
	removed  string
}

func (m *advertisementServiceMock) ListAdvertisements() ([]models.Advertisement, error) {
	return []models.Advertisement{{ID: "1", MediaType: models.MediaTypeImage, Src: "./media/ad_1.png"}}, nil
}

func (m *advertisementServiceMock) AddAdvertisement(_ context.Context, req dto.CreateAdvertisementRequest) (*models.Advertisement, error) {
	m.received = &req
	if m.addErr != nil {
		return nil, m.addErr
	}
	return &models.Advertisement{ID: "2", MediaType: models.MediaType(req.Type), Src: "./media/ad_2.png"}, nil
}

func (m *advertisementServiceMock) DeleteAdvertisement(_ context.Context, id string) (bool, error) {
	m.removed = id
	return id == "1", nil
}

func TestAdvertisementHandlerCreate(t *testing.T) {
	svc := &advertisementServiceMock{}
	handler := NewAdvertisementHandler(svc, 1024)

	c, w := newScheduleContext(http.MethodPost, "/api/v1/admin/anuncios", strings.NewReader(`{"type":"image","src":"data:image/png;base64,iVBORw0KGgo="}`), "application/json")
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.received)
	assert.Equal(t, "image", svc.received.Type)
	assert.Contains(t, w.Body.String(), "./media/ad_2.png")
}

func TestAdvertisementHandlerRejectsOversizedBody(t *testing.T) {
	svc := &advertisementServiceMock{}
	handler := NewAdvertisementHandler(svc, 16)

	payload := `{"type":"image","src":"data:image/png;base64,` + strings.Repeat("A", 8192) + `"}`
	c, w := newScheduleContext(http.MethodPost, "/api/v1/admin/anuncios", strings.NewReader(payload), "application/json")
	handler.Create(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Nil(t, svc.received)
}

func TestAdvertisementHandlerRelaysQuota(t *testing.T) {
	svc := &advertisementServiceMock{addErr: appErrors.ErrQuotaExceeded}
	handler := NewAdvertisementHandler(svc, 0)

	c, w := newScheduleContext(http.MethodPost, "/api/v1/admin/anuncios", strings.NewReader(`{"type":"video","src":"data:video/mp4;base64,AAAA"}`), "application/json")
	handler.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "AD_QUOTA_EXCEEDED")
}

func TestAdvertisementHandlerDeleteReportsChange(t *testing.T) {
	svc := &advertisementServiceMock{}
	handler := NewAdvertisementHandler(svc, 0)

	c, w := newScheduleContext(http.MethodDelete, "/api/v1/admin/anuncios/missing", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Delete(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "missing", svc.removed)
	var body struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body.Meta["changed"])
}
