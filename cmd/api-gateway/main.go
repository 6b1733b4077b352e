package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/painel-aulas-api/api/swagger"
	"github.com/noah-isme/painel-aulas-api/internal/handler"
	"github.com/noah-isme/painel-aulas-api/internal/repository"
	"github.com/noah-isme/painel-aulas-api/internal/routes"
	"github.com/noah-isme/painel-aulas-api/internal/service"
	"github.com/noah-isme/painel-aulas-api/pkg/cache"
	"github.com/noah-isme/painel-aulas-api/pkg/config"
	"github.com/noah-isme/painel-aulas-api/pkg/jobs"
	"github.com/noah-isme/painel-aulas-api/pkg/logger"
	"github.com/noah-isme/painel-aulas-api/pkg/storage"
)

// @title Painel Aulas API
// @version 1.0.0
// @description Admin backend for the class schedule and advertisement display
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logr.Warn("unknown timezone, falling back to local time", zap.String("timezone", cfg.Timezone), zap.Error(err))
		location = time.Local
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metrics := service.NewMetricsService()

	store, err := newStore(cfg)
	if err != nil {
		logr.Fatal("failed to init store", zap.Error(err))
	}
	store = storage.Instrument(store, metrics)

	var reader repository.SnapshotReader
	switch cfg.Dataset.ReadStrategy {
	case config.ReadStrategyRaw:
		reader = repository.NewRawReader(cfg.GitHub.RawBaseURL, cfg.GitHub.Owner, cfg.GitHub.Repo, cfg.GitHub.Branch, cfg.Dataset.Path, cfg.GitHub.Timeout)
	case config.ReadStrategyProxy:
		reader = repository.NewProxyReader(cfg.Sync.ProxyURL+"/api/v1/public/dataset", cfg.GitHub.Timeout)
	default:
		reader = repository.NewStoreReader(store, cfg.Dataset.Path)
	}

	syncService := service.NewSyncService(store, service.SyncPolicy{
		DatasetPath: cfg.Dataset.Path,
		MediaDir:    cfg.Dataset.MediaDir,
	}, validate, logr.Named("sync"))

	var committer service.Committer = syncService
	if cfg.Sync.Mode == config.SyncModeProxy {
		committer = repository.NewProxyClient(cfg.Sync.ProxyURL+routes.LegacySyncPath, cfg.Sync.ProxyToken, cfg.GitHub.Timeout)
	}

	mediaService := service.NewMediaService(committer, service.MediaConfig{
		Dir:          cfg.Dataset.MediaDir,
		PublicPrefix: cfg.Dataset.MediaPublicPrefix,
		MaxBytes:     cfg.Dataset.MediaMaxBytes,
	}, logr.Named("media"))

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cfg.Cache)
	if err != nil {
		logr.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
	}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		repo := repository.NewCacheRepository(redisClient, logr.Named("cache"))
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
	}
	cachedReader := service.NewCachedReader(reader, cacheRepo, metrics, cfg.Cache.TTL, logr.Named("cache"), redisClient != nil)

	datasetService := service.NewDatasetService(reader, committer, mediaService, validate, logr.Named("dataset"), service.DatasetConfig{
		Path:              cfg.Dataset.Path,
		MaxAdvertisements: cfg.Dataset.MaxAdvertisements,
		Location:          location,
	}).WithCache(cachedReader).WithMetrics(metrics)

	var cleanupQueue *jobs.Queue
	if cfg.Dataset.DeleteMediaOnRemove && cfg.Sync.Mode != config.SyncModeProxy {
		cleanup := service.NewMediaCleanupService(store, cfg.Dataset.MediaDir, logr.Named("cleanup"))
		cleanupQueue = jobs.NewQueue("media-cleanup", cleanup.Handle, jobs.QueueConfig{
			Workers:    cfg.Cleanup.Workers,
			MaxRetries: cfg.Cleanup.Retries,
			Logger:     logr.Named("jobs"),
		})
		cleanup.AttachQueue(cleanupQueue)
		cleanupQueue.Start(ctx)
		datasetService.WithCleanup(cleanup)
	}

	publicService := service.NewPublicService(cachedReader, location)

	authenticator, err := service.NewStaticAuthenticator(cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		logr.Fatal("admin credentials are required", zap.Error(err))
	}
	authService := service.NewAuthService(authenticator, validate, logr.Named("auth"), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})

	exportService := service.NewExportService(datasetService, logr.Named("export"), nil, nil)

	if _, err := datasetService.Load(ctx); err != nil {
		logr.Error("initial dataset load failed, admin writes stay unavailable until reload", zap.Error(err))
	}

	engine := routes.New(routes.Handlers{
		Auth:           handler.NewAuthHandler(authService),
		Dataset:        handler.NewDatasetHandler(publicService, datasetService),
		Schedule:       handler.NewScheduleHandler(datasetService, exportService),
		Advertisements: handler.NewAdvertisementHandler(datasetService, cfg.Dataset.MediaMaxBytes),
		Sync:           handler.NewSyncHandler(syncService, logr.Named("sync")),
		Metrics: handler.NewMetricsHandler(metrics.Handler(), map[string]handler.ReadinessCheck{
			"store": store.Ready,
			"dataset": func() error {
				_, err := datasetService.View()
				return err
			},
		}),
	}, routes.Options{
		Prefix:         cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Tokens:         authService,
		Observer:       metrics,
		Logger:         logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env,
			"read_strategy", cfg.Dataset.ReadStrategy, "sync_mode", cfg.Sync.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if cleanupQueue != nil {
		cleanupQueue.Stop()
	}
}

func newStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Store.Driver == config.StoreDriverLocal {
		return storage.NewLocalStore(cfg.Store.LocalDir)
	}
	return storage.NewGitHubStore(cfg.GitHub), nil
}
