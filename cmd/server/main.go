// Package main runs the consultation platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/config"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/auth"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/chat"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/consultations"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/middleware"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/recordings"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/sessions"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/worker"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/database"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/queue"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/redis"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/response"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Consultations (read-only: details and prescriptions)
	consultationRepo := consultations.NewRepository(pool)
	consultationHandler := consultations.NewHandler(consultationRepo)

	// Call sessions
	sessionRepo := sessions.NewRepository(pool)
	sessionHandler := sessions.NewHandler(sessionRepo, logger)

	// Chat
	chatRepo := chat.NewRepository(pool)
	chatHandler := chat.NewHandler(chatRepo, logger)

	// Recordings
	jobQueue := queue.NewQueue(rdb.Client, logger)
	recordingHandler := recordings.NewHandler(sessionRepo, s3Client, jobQueue, cfg.Recording.SpoolDir, logger)
	recordingProcessor := worker.NewRecordingProcessor(jobQueue, s3Client, sessionRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Consultations
		api.GET("/consultations/:id", consultationHandler.Get)
		api.GET("/consultations/:id/prescriptions", consultationHandler.ListPrescriptions)
		api.GET("/consultations/:id/session", sessionHandler.GetByConsultation)
		api.POST("/consultations/:id/session", sessionHandler.Create)

		// Call sessions
		api.GET("/sessions/:id", sessionHandler.Get)
		api.POST("/sessions/:id/start", sessionHandler.Start)
		api.POST("/sessions/:id/end", sessionHandler.End)

		// Chat
		api.GET("/sessions/:id/messages", chatHandler.ListBySession)
		api.POST("/sessions/:id/messages", chatHandler.Send)

		// Recordings
		api.POST("/sessions/:id/recording", recordingHandler.Upload)
		api.GET("/sessions/:id/recording-url", recordingHandler.DownloadURL)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (recording upload to S3)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil {
		go recordingProcessor.Run(workerCtx)
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
