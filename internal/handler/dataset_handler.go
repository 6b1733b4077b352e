package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/internal/models"
	"github.com/noah-isme/painel-aulas-api/pkg/response"
)

type publicReader interface {
	Dataset(ctx context.Context) (*dto.DatasetView, error)
	Schedule(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, error)
}

type datasetAdmin interface {
	Load(ctx context.Context) (*dto.DatasetView, error)
	View() (*dto.DatasetView, error)
}

// DatasetHandler serves whole-snapshot reads.
type DatasetHandler struct {
	public publicReader
	admin  datasetAdmin
}

// NewDatasetHandler constructs a dataset handler.
func NewDatasetHandler(public publicReader, admin datasetAdmin) *DatasetHandler {
	return &DatasetHandler{public: public, admin: admin}
}

// Public godoc
// @Summary Read the published dataset
// @Tags Public
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /public/dataset [get]
func (h *DatasetHandler) Public(c *gin.Context) {
	view, err := h.public.Dataset(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view.Snapshot, revisionMeta(view.Revision))
}

// PublicSchedule godoc
// @Summary List classes for the display screen
// @Description Without start/end only today's classes are returned, ordered by start time
// @Tags Public
// @Produce json
// @Param start query string false "YYYY-MM-DD or DD/MM/YYYY"
// @Param end query string false "YYYY-MM-DD or DD/MM/YYYY"
// @Success 200 {object} response.Envelope
// @Router /public/aulas [get]
func (h *DatasetHandler) PublicSchedule(c *gin.Context) {
	entries, err := h.public.Schedule(c.Request.Context(), scheduleFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

// Get godoc
// @Summary Read the in-memory dataset
// @Tags Dataset
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /admin/dataset [get]
func (h *DatasetHandler) Get(c *gin.Context) {
	view, err := h.admin.View()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view.Snapshot, revisionMeta(view.Revision))
}

// Reload godoc
// @Summary Reload the dataset from the store
// @Description Discards the in-memory snapshot, used after a conflict
// @Tags Dataset
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /admin/dataset/reload [post]
func (h *DatasetHandler) Reload(c *gin.Context) {
	view, err := h.admin.Load(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view.Snapshot, revisionMeta(view.Revision))
}
