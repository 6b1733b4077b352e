package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/painel-aulas-api/internal/models"
)

func scheduleFilterFromQuery(c *gin.Context) models.ScheduleFilter {
	return models.ScheduleFilter{
		Start: strings.TrimSpace(c.Query("start")),
		End:   strings.TrimSpace(c.Query("end")),
	}
}

func revisionMeta(revision string) map[string]interface{} {
	return map[string]interface{}{"revision": revision}
}
