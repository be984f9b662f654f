package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"iot-monitor/audit"
	"iot-monitor/cache"
	"iot-monitor/confs"
	"iot-monitor/db"
	"iot-monitor/handlers"
	httpHandler "iot-monitor/handlers/http"
	"iot-monitor/handlers/middleware"
	"iot-monitor/metrics"
	"iot-monitor/repositories"
	"iot-monitor/services"
	"iot-monitor/storage"
	"iot-monitor/usecases"
	"iot-monitor/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

type Server struct {
	app       *gin.Engine
	cfg       *confs.Config
	logger    *zap.Logger
	audit     *audit.Logger
	processor *services.ExportProcessor
	sweeper   *services.ExpirySweeper
}

// NewServer wires repositories, usecases and handlers over the given
// infrastructure and registers every route.
func NewServer(cfg *confs.Config, database db.Database, presence cache.PresenceTracker, store *storage.ArtifactStore, logger *zap.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize repositories
	sessionRepo := repositories.NewSessionPgRepository(database)
	exportRepo := repositories.NewExportJobPgRepository(database)
	deviceRepo := repositories.NewDevicePgRepository(database)
	auditRepo := repositories.NewAuditLogPgRepository(database)

	auditLogger := audit.NewLogger(auditRepo, logger)

	// WebSocket managers, one per audience
	deviceSockets := ws.NewManager()
	userSockets := ws.NewManager()

	processor := services.NewExportProcessor(exportRepo, sessionRepo, deviceRepo, store, auditLogger,
		ws.NewExportNotifier(userSockets, logger), m, logger,
		services.ExportProcessorConfig{Workers: cfg.ExportWorkers, TTL: cfg.ExportTTL()})
	sweeper := services.NewExpirySweeper(exportRepo, store, cfg.ExportSweepSchedule, logger)

	// Initialize use cases
	ingestion := usecases.NewIngestionUseCase(sessionRepo, deviceRepo, auditLogger, presence, m, logger)
	sessionQuery := usecases.NewSessionQueryUseCase(sessionRepo)
	analytics := usecases.NewAnalyticsUseCase(sessionRepo, deviceRepo, cfg.Location())
	exports := usecases.NewExportUseCase(sessionRepo, exportRepo, deviceRepo, processor, store,
		auditLogger, cfg.ExportMaxRecords, logger)

	// Initialize handlers
	sessionHandler := httpHandler.NewSessionHandler(ingestion, sessionQuery, logger)
	analyticsHandler := httpHandler.NewAnalyticsHandler(analytics, logger)
	exportHandler := httpHandler.NewExportHandler(exports, store, logger)
	wsHandler := handlers.NewWSHandler(deviceSockets, userSockets, ingestion, logger)
	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)

	app := gin.New()
	app.Use(middleware.RequestLogger(logger), middleware.Recovery(logger))

	corsConfig := cors.DefaultConfig()
	if cfg.CORSOrigin == "" || cfg.CORSOrigin == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.CORSOrigin}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	app.Use(cors.New(corsConfig))

	// Setup healthcheck route
	app.GET("/health", func(c *gin.Context) {
		if err := pingDB(c.Request.Context(), database); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	app.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	// Setup API routes
	api := app.Group("/api/v1", auth.Require())
	{
		api.POST("/device/session", sessionHandler.IngestSession)

		devices := api.Group("/devices")
		{
			devices.GET("/connected", wsHandler.GetConnectedDevices)
			devices.GET("/:deviceId/sessions", sessionHandler.ListSessions)
			devices.POST("/:deviceId/sessions/export", exportHandler.CreateExport)
			devices.GET("/:deviceId/presence", sessionHandler.GetPresence)

			analyticsGroup := devices.Group("/:deviceId/analytics")
			{
				analyticsGroup.GET("/daily", analyticsHandler.Daily())
				analyticsGroup.GET("/weekly", analyticsHandler.Weekly())
				analyticsGroup.GET("/monthly", analyticsHandler.Monthly())
				analyticsGroup.GET("/summary", analyticsHandler.Summary)
				analyticsGroup.GET("/period", analyticsHandler.Period)
			}
		}

		exportsGroup := api.Group("/exports")
		{
			exportsGroup.GET("", exportHandler.ListExports)
			exportsGroup.GET("/:exportId", exportHandler.GetExport)
			exportsGroup.GET("/:exportId/download", exportHandler.DownloadExport)
		}
	}

	sockets := app.Group("/ws", auth.Require())
	{
		sockets.GET("/devices", wsHandler.HandleDeviceWS)
		sockets.GET("/exports", wsHandler.HandleExportsWS)
	}

	return &Server{
		app:       app,
		cfg:       cfg,
		logger:    logger,
		audit:     auditLogger,
		processor: processor,
		sweeper:   sweeper,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Start serves until ctx is cancelled, then drains background work.
func (s *Server) Start(ctx context.Context) error {
	if err := s.sweeper.Start(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		<-s.sweeper.Stop().Done()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	<-s.sweeper.Stop().Done()
	if werr := s.processor.Wait(shutdownCtx); werr != nil {
		s.logger.Warn("export jobs still running at shutdown", zap.Error(werr))
	}
	s.audit.Wait()
	return err
}

func pingDB(ctx context.Context, database db.Database) error {
	sqlDB, err := database.GetDB().DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
