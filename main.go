package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lunara-health/backend/internal/ai"
	"github.com/lunara-health/backend/internal/audit"
	"github.com/lunara-health/backend/internal/config"
	"github.com/lunara-health/backend/internal/handler"
	"github.com/lunara-health/backend/internal/middleware"
	"github.com/lunara-health/backend/internal/repository"
	"github.com/lunara-health/backend/internal/security"
	"github.com/lunara-health/backend/internal/service"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize Zap logger
	var logger *zap.Logger
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize database connection pool with pgx
	pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	// Initialize completion client
	aiClient, err := ai.NewClient(
		cfg.OpenAI.Endpoint,
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Deployment,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize completion client", zap.Error(err))
	}

	// Initialize chat history encryption
	encryptor, err := security.NewEncryptor([]byte(cfg.Security.EncryptionKey))
	if err != nil {
		logger.Fatal("Failed to initialize encryptor", zap.Error(err))
	}

	// Initialize repositories
	medicationRepo := repository.NewMedicationRepository(pool, logger)
	doseLogRepo := repository.NewDoseLogRepository(pool, logger)
	suggestionRepo := repository.NewSuggestionRepository(pool, logger)
	appointmentRepo := repository.NewAppointmentRepository(pool, logger)
	chatRepo := repository.NewChatRepository(pool, encryptor, logger)

	auditLogger := audit.NewLogger(pool, logger)

	// Initialize services
	adherenceService := service.NewAdherenceService(medicationRepo, doseLogRepo, cfg.Analytics.WindowDays, logger)
	medicationService := service.NewMedicationService(medicationRepo, doseLogRepo, auditLogger, logger)
	suggestionService := service.NewSuggestionService(
		medicationRepo,
		adherenceService,
		suggestionRepo,
		aiClient,
		auditLogger,
		cfg.Analytics.WindowDays,
		cfg.OpenAI.Timeout,
		logger,
	)
	insightService := service.NewInsightService(medicationRepo, adherenceService, cfg.Analytics.WindowDays, logger)
	appointmentService := service.NewAppointmentService(appointmentRepo, auditLogger, logger)
	chatService := service.NewChatService(chatRepo, aiClient, logger)
	riskService := service.NewRiskService(aiClient, logger)
	dashboardService := service.NewDashboardService(
		medicationRepo,
		adherenceService,
		suggestionRepo,
		appointmentRepo,
		cfg.Analytics.WindowDays,
		logger,
	)

	// Initialize handlers
	medicationHandler := handler.NewMedicationHandler(medicationService, adherenceService, logger)
	suggestionHandler := handler.NewSuggestionHandler(suggestionService, logger)
	insightHandler := handler.NewInsightHandler(insightService, logger)
	appointmentHandler := handler.NewAppointmentHandler(appointmentService, logger)
	chatHandler := handler.NewChatHandler(chatService, logger)
	riskHandler := handler.NewRiskHandler(riskService, logger)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, logger)
	systemHandler := handler.NewSystemHandler(pool, logger)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()

	// Recovery middleware must be first
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Configure appropriately for production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))

	// Register routes
	r.GET("/health", systemHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/medications", medicationHandler.CreateMedication)
		v1.GET("/medications", medicationHandler.ListMedications)
		v1.GET("/medications/:id", medicationHandler.GetMedication)
		v1.PUT("/medications/:id", medicationHandler.UpdateMedication)
		v1.DELETE("/medications/:id", medicationHandler.DeleteMedication)
		v1.GET("/medications/:id/dose-logs", medicationHandler.GetDoseHistory)
		v1.GET("/medications/:id/adherence", medicationHandler.GetAdherencePattern)
		v1.POST("/dose-logs/:id/taken", medicationHandler.LogDoseTaken)

		v1.POST("/suggestions/generate", suggestionHandler.GenerateSuggestions)
		v1.GET("/suggestions", suggestionHandler.ListPendingSuggestions)
		v1.POST("/suggestions/:id/accept", suggestionHandler.AcceptSuggestion)
		v1.POST("/suggestions/:id/dismiss", suggestionHandler.DismissSuggestion)

		v1.GET("/insights", insightHandler.GetInsights)
		v1.GET("/dashboard", dashboardHandler.GetDashboard)

		v1.POST("/appointments", appointmentHandler.CreateAppointment)
		v1.GET("/appointments", appointmentHandler.ListAppointments)
		v1.PUT("/appointments/:id", appointmentHandler.UpdateAppointment)
		v1.DELETE("/appointments/:id", appointmentHandler.DeleteAppointment)

		v1.POST("/chat", chatHandler.SendMessage)
		v1.GET("/chat", chatHandler.GetHistory)

		v1.POST("/risk-assessment", riskHandler.AssessRisk)
	}

	// Background sweep marking overdue doses missed
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runMissedDoseSweep(sweepCtx, medicationService, cfg.Analytics.SweepInterval, cfg.Analytics.SweepGrace, logger)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	pool.Close()

	logger.Info("Server exited")
}

// runMissedDoseSweep periodically flags scheduled doses past the grace
// period as missed
func runMissedDoseSweep(ctx context.Context, medications *service.MedicationService, interval, grace time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := medications.MarkOverdueDosesMissed(ctx, grace); err != nil {
				logger.Error("missed dose sweep failed", zap.Error(err))
			}
		}
	}
}
