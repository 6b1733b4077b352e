package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/painel-aulas-api/pkg/middleware/requestid"
)

// Audit logs one line per successful dataset mutation: who changed what, and when.
func Audit(log *zap.Logger, action string) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("audit")
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		actor := ""
		if claims := ClaimsFromContext(c); claims != nil {
			actor = claims.Username
		}
		fields := []zap.Field{
			zap.String("action", action),
			zap.String("actor", actor),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Time("at", start),
			zap.String("request_id", requestid.Value(c)),
			zap.String("ip", c.ClientIP()),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("resource_id", id))
		}
		log.Info("dataset mutation", fields...)
	}
}
