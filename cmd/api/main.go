package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/thishan/cms-api/api/swagger"
	"github.com/thishan/cms-api/internal/handler"
	"github.com/thishan/cms-api/internal/middleware"
	"github.com/thishan/cms-api/internal/repository"
	"github.com/thishan/cms-api/internal/service"
	"github.com/thishan/cms-api/pkg/cache"
	"github.com/thishan/cms-api/pkg/config"
	"github.com/thishan/cms-api/pkg/database"
	"github.com/thishan/cms-api/pkg/logger"
	corsmiddleware "github.com/thishan/cms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/thishan/cms-api/pkg/middleware/requestid"
)

// @title CMS API
// @version 1.0.0
// @description Course management service: students, courses, enrollments and dashboard aggregates
// @BasePath /api
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional; the dashboard falls back to uncached reads.
	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, cacheSvc, validate, logr, cfg.Enrollments.StrictDuplicateCheck)
	statsSvc := service.NewStatsService(enrollmentRepo, studentRepo, courseRepo, cacheSvc, metricsSvc, cfg.Dashboard.CacheTTL, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(enrollmentRepo, logr)
	}

	studentHandler := handler.NewStudentHandler(studentSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, exportSvc)
	dashboardHandler := handler.NewDashboardHandler(statsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/snapshot", metricsHandler.Snapshot)

	api := r.Group(cfg.APIPrefix)

	students := api.Group("/students")
	{
		students.GET("", studentHandler.List)
		students.POST("", studentHandler.Create)
		students.GET("/by-student-id/:studentId", studentHandler.GetByStudentID)
		students.GET("/:id", studentHandler.Get)
		students.PUT("/:id", studentHandler.Update)
		students.DELETE("/:id", studentHandler.Delete)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.POST("", courseHandler.Create)
		courses.GET("/by-code/:code", courseHandler.GetByCode)
		courses.GET("/:id", courseHandler.Get)
		courses.PUT("/:id", courseHandler.Update)
		courses.DELETE("/:id", courseHandler.Delete)
	}

	enrollments := api.Group("/enrollments")
	{
		enrollments.GET("", enrollmentHandler.List)
		enrollments.POST("", enrollmentHandler.Create)
		enrollments.GET("/check", enrollmentHandler.Check)
		enrollments.GET("/export", enrollmentHandler.Export)
		enrollments.GET("/student/:studentId", enrollmentHandler.ListByStudent)
		enrollments.GET("/student/:studentId/courses", enrollmentHandler.CoursesForStudent)
		enrollments.GET("/course/:code", enrollmentHandler.ListByCourse)
		enrollments.GET("/course/:code/count", enrollmentHandler.CountByCourse)
		enrollments.GET("/course/:code/students", enrollmentHandler.StudentsInCourse)
		enrollments.GET("/:id", enrollmentHandler.Get)
		enrollments.PUT("/:id/grade", enrollmentHandler.UpdateGrade)
		enrollments.PUT("/:id/status", enrollmentHandler.UpdateStatus)
		enrollments.DELETE("/:id", enrollmentHandler.Delete)
	}

	if cfg.Dashboard.Enabled {
		api.GET("/dashboard", dashboardHandler.Overview)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
