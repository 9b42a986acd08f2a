package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusops/timetable-api/api/swagger"
	"github.com/campusops/timetable-api/internal/dto"
	"github.com/campusops/timetable-api/internal/engine"
	"github.com/campusops/timetable-api/internal/handler"
	"github.com/campusops/timetable-api/internal/middleware"
	"github.com/campusops/timetable-api/internal/repository"
	"github.com/campusops/timetable-api/internal/service"
	"github.com/campusops/timetable-api/pkg/cache"
	"github.com/campusops/timetable-api/pkg/config"
	"github.com/campusops/timetable-api/pkg/database"
	"github.com/campusops/timetable-api/pkg/jobs"
	"github.com/campusops/timetable-api/pkg/logger"
	corsmiddleware "github.com/campusops/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusops/timetable-api/pkg/middleware/requestid"
	"github.com/campusops/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Automatic course timetabling service: constraint-checked schedule generation, optimization and reporting.
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, statistics caching disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metrics, cfg.Statistics.CacheTTL, logr, false)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Statistics.CacheTTL, logr, true)
	}

	sectionRepo := repository.NewSectionRepository(db)
	timeSlotRepo := repository.NewTimeSlotRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	termRepo := repository.NewTermRepository(db)
	reportRepo := repository.NewReportRepository(db)

	eng := engine.New(logr)

	statsSvc := service.NewStatisticsService(
		sectionRepo, timeSlotRepo, classroomRepo, assignmentRepo, termRepo,
		cacheSvc, logr, cfg.Statistics.CacheTTL,
	)

	scheduleSvc := service.NewScheduleService(
		sectionRepo, timeSlotRepo, classroomRepo, assignmentRepo, termRepo,
		eng, statsSvc, metrics, nil, logr,
		service.ScheduleServiceConfig{
			ProposalTTL: cfg.Scheduler.ProposalTTL,
			RunTimeout:  cfg.Scheduler.RunTimeout,
			Defaults: dto.AlgorithmConfig{
				MaxIterations:    cfg.Scheduler.MaxIterations,
				NeighborhoodSize: cfg.Scheduler.NeighborhoodSize,
				Seed:             cfg.Scheduler.Seed,
			},
		},
	)

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)

	reportHandler := handler.NewReportHandler(statsSvc, nil)
	if cfg.Reports.Enabled {
		exportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(statsSvc, exportStorage, signer,
			service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
			logr, nil, nil,
		)

		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("timetable_exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		reportSvc := service.NewReportService(reportRepo, termRepo, queue, exportSvc, logr,
			service.ReportServiceConfig{
				ResultTTL:       cfg.Reports.SignedURLTTL,
				CleanupInterval: cfg.Reports.CleanupInterval,
				MaxRetries:      cfg.Reports.WorkerRetries,
			},
		)
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)

		reportHandler = handler.NewReportHandler(statsSvc, reportSvc)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	registerScheduleRoutes(api, cfg, scheduleHandler, reportHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logr.Sugar().Warnw("shutdown incomplete", "error", err)
	}
}

func registerScheduleRoutes(api *gin.RouterGroup, cfg *config.Config, schedules *handler.ScheduleHandler, reports *handler.ReportHandler) {
	group := api.Group("/schedule")

	// Read endpoints stay open; mutating endpoints require a scheduler or
	// admin token.
	group.GET("/available-slots", schedules.AvailableSlots)
	group.GET("/recommended-classrooms", schedules.RecommendedClassrooms)
	group.GET("/conflicts/teacher", schedules.TeacherConflicts)
	group.GET("/conflicts/classroom", schedules.ClassroomConflicts)
	group.POST("/conflicts/check", schedules.CheckConflicts)
	group.POST("/validate", schedules.Validate)

	guarded := group.Group("")
	guarded.Use(middleware.JWT(cfg.JWT.Secret), middleware.RequireRoles("scheduler", "admin"))
	guarded.POST("/auto", schedules.AutoSchedule)
	guarded.POST("/optimize", schedules.Optimize)
	guarded.POST("/proposals/:id/save", schedules.SaveProposal)
	guarded.POST("/import", schedules.Import)
	guarded.POST("/copy", schedules.Copy)
	guarded.DELETE("/:termId", schedules.Clear)

	group.GET("/:termId", schedules.Get)

	group.GET("/statistics/:termId", reports.Statistics)
	group.GET("/report/:termId", reports.Report)

	if cfg.Reports.Enabled {
		group.GET("/report/jobs/:id", reports.JobStatus)
		group.GET("/exports/:token", reports.Download)
		guarded.POST("/report/:termId/export", reports.Export)
	}
}
