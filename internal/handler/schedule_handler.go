package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/internal/models"
	"github.com/noah-isme/painel-aulas-api/internal/service"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
	"github.com/noah-isme/painel-aulas-api/pkg/response"
)

const maxImportBytes = 5 << 20

type scheduleService interface {
	ListSchedule(filter models.ScheduleFilter) ([]models.ScheduleEntry, error)
	AddScheduleEntry(ctx context.Context, input dto.ScheduleEntryInput) (*models.ScheduleEntry, error)
	UpdateScheduleEntry(ctx context.Context, id string, req dto.UpdateScheduleEntryRequest) (*models.ScheduleEntry, bool, error)
	DeleteScheduleEntry(ctx context.Context, id string) (bool, error)
	ClearScheduleEntries(ctx context.Context) (bool, error)
	ReplaceScheduleEntries(ctx context.Context, inputs []dto.ScheduleEntryInput) (*dto.ImportResult, error)
	ImportScheduleCSV(ctx context.Context, r io.Reader) (*dto.ImportResult, error)
}

type scheduleExporter interface {
	ExportSchedule(filter models.ScheduleFilter, format string) (*service.ExportResult, error)
}

// ScheduleHandler manages the class schedule.
type ScheduleHandler struct {
	service  scheduleService
	exporter scheduleExporter
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(svc scheduleService, exporter scheduleExporter) *ScheduleHandler {
	return &ScheduleHandler{service: svc, exporter: exporter}
}

// List godoc
// @Summary List classes
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param start query string false "YYYY-MM-DD or DD/MM/YYYY"
// @Param end query string false "YYYY-MM-DD or DD/MM/YYYY"
// @Success 200 {object} response.Envelope
// @Router /admin/aulas [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	entries, err := h.service.ListSchedule(scheduleFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"total": len(entries)})
}

// Create godoc
// @Summary Add a class
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ScheduleEntryInput true "Class"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/aulas [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.ScheduleEntryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class payload"))
		return
	}
	entry, err := h.service.AddScheduleEntry(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Update a class
// @Description Unknown ids are accepted and change nothing
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param payload body dto.UpdateScheduleEntryRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /admin/aulas/{id} [patch]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req dto.UpdateScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class payload"))
		return
	}
	entry, changed, err := h.service.UpdateScheduleEntry(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, map[string]interface{}{"changed": changed})
}

// Delete godoc
// @Summary Delete a class
// @Description Unknown ids are accepted and change nothing
// @Tags Schedule
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /admin/aulas/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	changed, err := h.service.DeleteScheduleEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": c.Param("id")}, map[string]interface{}{"changed": changed})
}

// Clear godoc
// @Summary Remove every class
// @Tags Schedule
// @Security BearerAuth
// @Param confirm query bool true "Must be true"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/aulas [delete]
func (h *ScheduleHandler) Clear(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	if !confirmed {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "clearing the schedule requires confirm=true"))
		return
	}
	changed, err := h.service.ClearScheduleEntries(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"cleared": changed}, map[string]interface{}{"changed": changed})
}

// Import godoc
// @Summary Replace the schedule from a spreadsheet export
// @Description Multipart field "file" with CSV, or a JSON body {"aulas": [...]}
// @Tags Schedule
// @Accept mpfd
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param file formData file false "CSV file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/aulas/import [post]
func (h *ScheduleHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	var (
		result *dto.ImportResult
		err    error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, ferr := c.FormFile("file")
		if ferr != nil {
			response.Error(c, appErrors.Wrap(ferr, appErrors.ErrValidation.Code, http.StatusBadRequest, "multipart field \"file\" is required"))
			return
		}
		reader, ferr := file.Open()
		if ferr != nil {
			response.Error(c, appErrors.Wrap(ferr, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open uploaded file"))
			return
		}
		defer reader.Close() //nolint:errcheck
		result, err = h.service.ImportScheduleCSV(c.Request.Context(), reader)
	} else {
		var req dto.ImportScheduleRequest
		if berr := c.ShouldBindJSON(&req); berr != nil {
			response.Error(c, appErrors.Wrap(berr, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
			return
		}
		result, err = h.service.ReplaceScheduleEntries(c.Request.Context(), req.Entries)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Export godoc
// @Summary Download the schedule
// @Tags Schedule
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Param start query string false "YYYY-MM-DD or DD/MM/YYYY"
// @Param end query string false "YYYY-MM-DD or DD/MM/YYYY"
// @Success 200 {file} file
// @Router /admin/aulas/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	result, err := h.exporter.ExportSchedule(scheduleFilterFromQuery(c), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	c.Header("X-Total-Rows", strconv.Itoa(result.Rows))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
