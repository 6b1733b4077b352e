package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/painel-aulas-api/internal/handler"
	"github.com/noah-isme/painel-aulas-api/internal/middleware"
	"github.com/noah-isme/painel-aulas-api/internal/models"
	"github.com/noah-isme/painel-aulas-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/painel-aulas-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/painel-aulas-api/pkg/middleware/requestid"
)

// LegacySyncPath is where deployed admin panels expect the write proxy.
const LegacySyncPath = "/api/github-sync"

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth           *handler.AuthHandler
	Dataset        *handler.DatasetHandler
	Schedule       *handler.ScheduleHandler
	Advertisements *handler.AdvertisementHandler
	Sync           *handler.SyncHandler
	Metrics        *handler.MetricsHandler
}

// Options carries the cross-cutting pieces of the HTTP stack.
type Options struct {
	Prefix         string
	AllowedOrigins []string
	EnableDocs     bool
	Tokens         middleware.TokenValidator
	Observer       middleware.RequestObserver
	Logger         *zap.Logger
}

// New builds the engine with the public, admin and proxy surfaces.
func New(h Handlers, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Observer))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.Prefix)
	api.POST("/auth/login", h.Auth.Login)

	public := api.Group("/public")
	{
		public.GET("/dataset", h.Dataset.Public)
		public.GET("/aulas", h.Dataset.PublicSchedule)
	}

	auth := middleware.JWT(opts.Tokens)
	admin := api.Group("/admin", auth, middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/dataset", h.Dataset.Get)
		admin.POST("/dataset/reload", middleware.Audit(log, "dataset.reload"), h.Dataset.Reload)

		admin.GET("/aulas", h.Schedule.List)
		admin.GET("/aulas/export", h.Schedule.Export)
		admin.POST("/aulas", middleware.Audit(log, "schedule.create"), h.Schedule.Create)
		admin.POST("/aulas/import", middleware.Audit(log, "schedule.import"), h.Schedule.Import)
		admin.PATCH("/aulas/:id", middleware.Audit(log, "schedule.update"), h.Schedule.Update)
		admin.DELETE("/aulas/:id", middleware.Audit(log, "schedule.delete"), h.Schedule.Delete)
		admin.DELETE("/aulas", middleware.Audit(log, "schedule.clear"), h.Schedule.Clear)

		admin.GET("/anuncios", h.Advertisements.List)
		admin.POST("/anuncios", middleware.Audit(log, "advertisement.create"), h.Advertisements.Create)
		admin.DELETE("/anuncios/:id", middleware.Audit(log, "advertisement.delete"), h.Advertisements.Delete)
	}

	sync := []gin.HandlerFunc{postOnly(h.Sync.Handle), auth, middleware.RequireRoles(models.RoleAdmin), middleware.Audit(log, "sync.commit"), h.Sync.Handle}
	r.Any(LegacySyncPath, sync...)
	api.Any("/github-sync", sync...)

	return r
}

// postOnly answers non-POST requests with reject before authentication runs.
func postOnly(reject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			reject(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
