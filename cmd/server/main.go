package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/plateful/api/internal/auth"
	"github.com/plateful/api/internal/cache"
	"github.com/plateful/api/internal/config"
	"github.com/plateful/api/internal/database"
	"github.com/plateful/api/internal/delivery"
	"github.com/plateful/api/internal/eventbus"
	"github.com/plateful/api/internal/handlers"
	"github.com/plateful/api/internal/llm"
	"github.com/plateful/api/internal/middleware"
	"github.com/plateful/api/internal/offer"
	"github.com/plateful/api/internal/telemetry"
	"github.com/plateful/api/internal/unsubscribe"

	_ "github.com/plateful/api/docs" // Swagger docs
)

// @title Plateful API
// @version 0.1.0
// @description Restaurant marketing backend: offer generation, audiences, and campaign delivery.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	ctx := context.Background()

	// Initialize logger with stdout sync
	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Plateful API starting...",
		zap.String("version", "0.1.0"),
		zap.String("environment", os.Getenv("GO_ENV")),
	)

	cfg := config.Load()

	// Telemetry is optional; the collector may be down in development.
	shutdownTelemetry, err := telemetry.Init(ctx, "plateful-api", cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Error("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTelemetry(ctx); err != nil {
				logger.Error("failed to shutdown telemetry", zap.Error(err))
			}
		}()
	}

	// Database
	if err := database.RunMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.UseDirectDB, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Offer cache (Redis)
	offerCache, err := cache.New(cfg.RedisURL, cfg.OfferCacheTTL, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer offerCache.Close()

	// Event bus (NATS). The API stays up if the broker is unavailable.
	bus, err := eventbus.Connect(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to connect to NATS, events disabled", zap.Error(err))
		bus = nil
	} else {
		defer bus.Close()
		if err := bus.EnsureStream(); err != nil {
			logger.Error("failed to ensure JetStream stream", zap.Error(err))
		}
	}

	// Optional RS256 verification via a JWKS endpoint.
	var jwksCache *auth.JWKSCache
	if cfg.JWKSURL != "" {
		jwksCache = auth.NewJWKSCache(cfg.JWKSURL, logger)
	}

	// Offer generation stack. Without an API key the writer serves
	// template content only.
	var generator offer.Generator
	if cfg.OpenAIAPIKey != "" {
		generator = llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
	}
	writer := offer.NewWriter(generator, logger,
		offer.WithHTMLRenderer(offer.NewHTMLFormatter(generator, logger)),
		offer.WithModel(cfg.OpenAIModel),
	)
	advisor := offer.NewAudienceAdvisor(generator, logger)

	// Campaign delivery
	var sender delivery.Sender
	if cfg.DeliverySimulate {
		sender = delivery.NewSimulatedSender(logger)
	} else {
		sender, err = delivery.NewAWSSender(ctx, cfg.AWSRegion, cfg.SESFromAddress, logger)
		if err != nil {
			logger.Fatal("failed to initialize AWS delivery", zap.Error(err))
		}
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RequestID())

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check handlers
	healthHandler := handlers.NewHealthHandler(db, offerCache)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/deep", healthHandler.DeepHealth)

	logger.Info("Router initialized, setting up handlers...")

	optOutTokens := unsubscribe.NewTokenService(cfg.JWTSecret)

	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret, cfg.JWTAudience, logger)
	meHandler := handlers.NewMeHandler(db, logger)
	restaurantHandler := handlers.NewRestaurantHandler(db, logger)
	dinerHandler := handlers.NewDinerHandler(db, logger)
	campaignHandler := handlers.NewCampaignHandler(db, sender, bus, optOutTokens, cfg.PublicBaseURL, logger)
	unsubscribeHandler := handlers.NewUnsubscribeHandler(db, optOutTokens, logger)
	aiHandler := handlers.NewAIHandler(db, writer, advisor, offerCache, bus, cfg.AIDemoMode, cfg.AITimeout, logger)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Auth routes (public)
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.GET("/status", middleware.OptionalAuth(cfg.JWTSecret, jwksCache, cfg.JWTAudience), authHandler.Status)
		}

		// Opt-out links are public; the signed token is the authorization.
		v1.GET("/unsubscribe", unsubscribeHandler.Unsubscribe)

		// Protected routes with default rate limiting
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret, jwksCache, cfg.JWTAudience))
		protected.Use(middleware.RateLimitMiddleware(middleware.DefaultRateLimiter)) // 100 req/min
		{
			protected.GET("/auth/me", authHandler.GetCurrentUser)

			// Current-user resources
			me := protected.Group("/me")
			{
				me.GET("/restaurant", meHandler.GetRestaurant)
				me.PUT("/restaurant", meHandler.UpsertRestaurant)
				me.DELETE("/account", meHandler.DeleteAccount)
			}

			// Restaurant routes
			restaurants := protected.Group("/restaurants")
			{
				restaurants.POST("", restaurantHandler.Create)
				restaurants.GET("", restaurantHandler.List)
				restaurants.GET("/:id", restaurantHandler.Get)
				restaurants.PUT("/:id", restaurantHandler.Update)
				restaurants.DELETE("/:id", restaurantHandler.Delete)
			}

			// Diner directory
			diners := protected.Group("/diners")
			{
				diners.GET("", dinerHandler.List)
				diners.GET("/filter-options", dinerHandler.FilterOptions)
			}

			// Campaign routes
			campaigns := protected.Group("/campaigns")
			{
				campaigns.POST("", campaignHandler.Create)
				campaigns.GET("", campaignHandler.List)
				campaigns.GET("/events", campaignHandler.Events)
				campaigns.GET("/:id", campaignHandler.Get)
				campaigns.PATCH("/:id/status", campaignHandler.UpdateStatus)
				campaigns.POST("/:id/send", campaignHandler.Send)
				campaigns.DELETE("/:id", campaignHandler.Delete)
			}

			// AI routes - stricter rate limit + circuit breaker
			ai := protected.Group("/ai")
			ai.Use(middleware.RateLimitMiddleware(middleware.StrictRateLimiter)) // 20 req/min
			ai.Use(middleware.CircuitBreakerMiddleware(middleware.LLMUpstreamBreaker))
			{
				ai.POST("/offer", aiHandler.GenerateOffer)
				ai.POST("/audience-advice", aiHandler.AudienceAdvice)
				ai.GET("/health", aiHandler.Health)
			}
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}
