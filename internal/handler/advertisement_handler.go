package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/internal/models"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
	"github.com/noah-isme/painel-aulas-api/pkg/response"
)

type advertisementService interface {
	ListAdvertisements() ([]models.Advertisement, error)
	AddAdvertisement(ctx context.Context, req dto.CreateAdvertisementRequest) (*models.Advertisement, error)
	DeleteAdvertisement(ctx context.Context, id string) (bool, error)
}

// AdvertisementHandler manages the rotating banners.
type AdvertisementHandler struct {
	service  advertisementService
	maxBytes int64
}

// NewAdvertisementHandler constructs the handler. maxBytes bounds the request body.
func NewAdvertisementHandler(svc advertisementService, maxBytes int64) *AdvertisementHandler {
	return &AdvertisementHandler{service: svc, maxBytes: maxBytes}
}

// List godoc
// @Summary List advertisements
// @Tags Advertisements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/anuncios [get]
func (h *AdvertisementHandler) List(c *gin.Context) {
	ads, err := h.service.ListAdvertisements()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ads)
}

// Create godoc
// @Summary Upload an advertisement
// @Description src is a base64 data URI; the file is committed before the dataset
// @Tags Advertisements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateAdvertisementRequest true "Advertisement"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /admin/anuncios [post]
func (h *AdvertisementHandler) Create(c *gin.Context) {
	if h.maxBytes > 0 {
		// base64 inflates by 4/3, plus room for the JSON envelope
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes*4/3+4096)
	}
	var req dto.CreateAdvertisementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, "media exceeds the upload limit"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid advertisement payload"))
		return
	}
	ad, err := h.service.AddAdvertisement(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ad)
}

// Delete godoc
// @Summary Delete an advertisement
// @Description Unknown ids are accepted and change nothing
// @Tags Advertisements
// @Security BearerAuth
// @Param id path string true "Advertisement ID"
// @Success 200 {object} response.Envelope
// @Router /admin/anuncios/{id} [delete]
func (h *AdvertisementHandler) Delete(c *gin.Context) {
	changed, err := h.service.DeleteAdvertisement(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": c.Param("id")}, map[string]interface{}{"changed": changed})
}
