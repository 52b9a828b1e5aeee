package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/ticket-storefront/internal/di"
	"github.com/prohmpiriya/ticket-storefront/internal/middleware"
	"github.com/prohmpiriya/ticket-storefront/pkg/config"
	"github.com/prohmpiriya/ticket-storefront/pkg/logger"
	pkgredis "github.com/prohmpiriya/ticket-storefront/pkg/redis"
	"github.com/prohmpiriya/ticket-storefront/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting ticket storefront...", zap.String("version", cfg.App.Version))

	ctx := context.Background()

	// Initialize telemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Warn("Telemetry disabled", zap.Error(err))
	}

	// Redis is optional; without it sessions, catalog cache and notifications stay in process
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, &pkgredis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			MaxRetries:    3,
			RetryInterval: time.Second,
			Tracing:       cfg.OTel.Enabled,
		})
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
		}
		defer redisClient.Close()
		appLog.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		appLog.Info("Redis disabled, using in-memory sessions")
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		Config: cfg,
		Redis:  redisClient,
		Logger: appLog,
	})
	defer container.Close()

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	container.Wizards.Start(workerCtx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins)))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	sessionMiddleware := middleware.Session(middleware.SessionConfig{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
		TTL:        cfg.Session.TTL,
	})

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(sessionMiddleware, middleware.Logger(appLog))
	{
		// Mutations are throttled per session
		throttled := []gin.HandlerFunc{}
		if container.RateLimiter != nil {
			throttled = append(throttled, middleware.RateLimit(container.RateLimiter))
		}
		mutate := func(h gin.HandlerFunc) []gin.HandlerFunc {
			return append(append([]gin.HandlerFunc{}, throttled...), h)
		}

		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/login", mutate(container.AuthHandler.Login)...)
			authRoutes.POST("/register", mutate(container.AuthHandler.Register)...)
			authRoutes.POST("/oauth/callback", mutate(container.AuthHandler.OAuthCallback)...)
			authRoutes.POST("/logout", container.AuthHandler.Logout)
			authRoutes.GET("/me", container.AuthHandler.Me)
		}

		events := v1.Group("/events")
		{
			events.GET("/:id/tickets", container.EventHandler.GetTickets)
			events.POST("/:id/booking", mutate(container.BookingHandler.Start)...)
		}

		booking := v1.Group("/booking")
		{
			booking.GET("", container.BookingHandler.Get)
			booking.POST("/ticket", mutate(container.BookingHandler.SelectTicket)...)
			booking.PUT("/quantity", mutate(container.BookingHandler.SetQuantity)...)
			booking.PUT("/payment-method", mutate(container.BookingHandler.SetPaymentMethod)...)
			booking.POST("/submit", mutate(container.BookingHandler.Submit)...)
			booking.POST("/retry", mutate(container.BookingHandler.Retry)...)
			booking.POST("/edit", container.BookingHandler.Edit)
			booking.POST("/back", container.BookingHandler.Back)
			booking.POST("/reset", container.BookingHandler.Reset)
			booking.GET("/summary", container.BookingHandler.Summary)
			booking.GET("/confirmation", container.BookingHandler.Confirmation)
			booking.POST("/confirmation/dismiss", container.BookingHandler.Dismiss)
			booking.GET("/confirmation/tickets/:number/download", container.BookingHandler.DownloadTicket)
			booking.GET("/history", container.AccountHandler.History)
		}

		v1.GET("/notifications", container.AccountHandler.Notifications)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Storefront listening on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}
	stopWorkers()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
