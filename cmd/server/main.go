package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"lifeline/internal/config"
	"lifeline/internal/handlers"
	"lifeline/internal/middleware"
	"lifeline/internal/repositories/mongodb"
	"lifeline/internal/services"
	"lifeline/pkg/cache"
	"lifeline/pkg/classifier"
	"lifeline/pkg/database"
	"lifeline/pkg/logger"
	"lifeline/pkg/maps"
	"lifeline/pkg/websocket"
	"lifeline/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.App.LogLevel),
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
		Colors:     cfg.App.Debug,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// MongoDB
	mongoDB, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer mongoDB.Close()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureIndexes(indexCtx, mongoDB.Database); err != nil {
		cancelIndex()
		appLogger.WithError(err).Fatal("Failed to ensure indexes")
	}
	cancelIndex()

	// Redis
	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}
	cacheService := services.NewCacheService(redisCache)

	// WebSocket hub
	wsHandler := websocket.NewHandler()
	hub := wsHandler.GetHub()

	// Repositories
	hospitalRepo := mongodb.NewHospitalRepository(mongoDB.Database, cacheService)
	ambulanceRepo := mongodb.NewAmbulanceRepository(mongoDB.Database, cacheService)
	incidentRepo := mongodb.NewIncidentRepository(mongoDB.Database, cacheService)

	// Optional routing provider, matching falls back to straight-line
	// estimates when it is absent.
	var routing maps.Provider
	if cfg.Maps.APIKey != "" {
		provider, err := maps.NewGoogleMapsProvider(cfg.Maps.APIKey)
		if err != nil {
			appLogger.WithError(err).Warn("Routing provider unavailable, using straight-line estimates")
		} else {
			routing = provider
		}
	}

	// Optional image classifier, triage degrades to high severity
	// without it.
	var imageClassifier classifier.Classifier
	if cfg.Classifier.Enabled && cfg.Classifier.APIKey != "" {
		imageClassifier = classifier.NewOpenRouterClassifier(&classifier.OpenRouterConfig{
			APIKey:  cfg.Classifier.APIKey,
			Model:   cfg.Classifier.Model,
			BaseURL: cfg.Classifier.BaseURL,
			Timeout: cfg.Classifier.Timeout,
		})
	}

	// Services
	scoringService := services.NewScoringService(services.NewSpecialtyLookup())
	locatorService := services.NewLocatorService(ambulanceRepo, hospitalRepo, cacheService, appLogger)
	publisher := services.NewEventPublisher(hub, cacheService, appLogger)
	matchingService := services.NewMatchingService(hospitalRepo, scoringService, routing, appLogger)
	triageService := services.NewTriageService(imageClassifier, appLogger)
	dispatchService := services.NewDispatchService(incidentRepo, hospitalRepo, ambulanceRepo, triageService, matchingService, locatorService, publisher, cfg.Dispatch, appLogger)
	missionService := services.NewMissionService(ambulanceRepo, incidentRepo, hospitalRepo, matchingService, locatorService, publisher, cfg.Dispatch, appLogger)
	hospitalService := services.NewHospitalService(hospitalRepo, incidentRepo, locatorService, publisher, appLogger)
	ambulanceService := services.NewAmbulanceService(ambulanceRepo, locatorService, appLogger)
	analyticsService := services.NewAnalyticsService(incidentRepo, ambulanceRepo, hospitalRepo, hub, appLogger)

	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 15*time.Second)
	if err := locatorService.WarmUp(warmCtx); err != nil {
		appLogger.WithError(err).Warn("Locator warm-up incomplete, snapshots fill in as units report")
	}
	cancelWarm()

	// Handlers
	incidentHandler := handlers.NewIncidentHandler(dispatchService)
	matchHandler := handlers.NewMatchHandler(matchingService)
	ambulanceHandler := handlers.NewAmbulanceHandler(ambulanceService, missionService)
	hospitalHandler := handlers.NewHospitalHandler(hospitalService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Initialize Gin router
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(appLogger))

	// API routes
	v1 := router.Group("/api/v1")
	{
		routes.SetupIncidentRoutes(v1, incidentHandler, cfg.Security.JWTSecret)
		routes.SetupMatchRoutes(v1, matchHandler, cfg.Security.JWTSecret)
		routes.SetupAmbulanceRoutes(v1, ambulanceHandler, cfg.Security.JWTSecret)
		routes.SetupHospitalRoutes(v1, hospitalHandler, cfg.Security.JWTSecret)
		routes.SetupAnalyticsRoutes(v1, analyticsHandler, cfg.Security.JWTSecret)
	}

	// Real-time dispatch feed
	router.GET(cfg.WebSocket.Path, middleware.AuthRequired(cfg.Security.JWTSecret), wsHandler.HandleWebSocket)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		mongoState := "up"
		if err := mongoDB.Ping(); err != nil {
			status = http.StatusServiceUnavailable
			mongoState = "down"
		}
		c.JSON(status, gin.H{
			"status":  "healthy",
			"version": cfg.App.Version,
			"mongodb": mongoState,
		})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("port", cfg.App.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	appLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}
}
