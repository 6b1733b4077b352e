package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
	"github.com/noah-isme/painel-aulas-api/pkg/response"
	"github.com/noah-isme/painel-aulas-api/pkg/storage"
)

type syncService interface {
	Sync(ctx context.Context, req dto.SyncRequest) (*dto.SyncResult, error)
}

// SyncHandler is the write proxy. Its bodies are plain {error} / {success, data}
// objects rather than the envelope, so existing clients keep working.
type SyncHandler struct {
	service syncService
	logger  *zap.Logger
}

// NewSyncHandler constructs the proxy handler.
func NewSyncHandler(svc syncService, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{service: svc, logger: logger}
}

// Handle godoc
// @Summary Commit a file through the synchronization proxy
// @Description Looks up the current revision, encodes the content and writes it. Store failures relay the remote status and body.
// @Tags Sync
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SyncRequest true "File to commit"
// @Success 200 {object} dto.SyncResponse
// @Failure 405 {object} map[string]string
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /github-sync [post]
func (h *SyncHandler) Handle(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		c.JSON(appErrors.ErrMethodNotAllowed.Status, gin.H{"error": appErrors.ErrMethodNotAllowed.Message})
		return
	}

	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sync payload"})
		return
	}

	res, err := h.service.Sync(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, dto.SyncResponse{Success: true, Data: res.Data})
}

func (h *SyncHandler) writeError(c *gin.Context, err error) {
	if storeErr, ok := storage.AsStoreError(err); ok && storeErr.Status > 0 {
		h.logger.Warn("sync relayed store failure", zap.Int("status", storeErr.Status), zap.String("path", storeErr.Path))
		response.Raw(c, storeErr.Status, storeErr.Body)
		return
	}

	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError {
		c.JSON(appErr.Status, gin.H{"error": appErr.Message})
		return
	}
	if errors.Is(err, appErrors.ErrConfiguration) {
		h.logger.Error("sync misconfigured", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": appErr.Message})
		return
	}

	h.logger.Error("sync failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
