package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kardan-dev/kardan-api/config"
	"github.com/kardan-dev/kardan-api/internal/handlers"
	"github.com/kardan-dev/kardan-api/internal/middleware"
	"github.com/kardan-dev/kardan-api/internal/repository"
	"github.com/kardan-dev/kardan-api/internal/services"
	"github.com/kardan-dev/kardan-api/pkg/email"
	"github.com/kardan-dev/kardan-api/pkg/httpclient"
	"github.com/kardan-dev/kardan-api/pkg/logger"
	"github.com/kardan-dev/kardan-api/pkg/metrics"
	"github.com/kardan-dev/kardan-api/pkg/profiling"
	"github.com/kardan-dev/kardan-api/pkg/recaptcha"
	"github.com/kardan-dev/kardan-api/pkg/sheets"
	"github.com/kardan-dev/kardan-api/pkg/tracing"
)

const (
	leadBodyLimit    = 64 * 1024
	visitorIdleAfter = 10 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Kardan API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
		zap.String("leads_timezone", cfg.Sheets.TimeZone),
		zap.String("email_provider", cfg.Email.Provider),
	)

	// Initialize distributed tracing
	tracerShutdown, err := tracing.InitTracer(cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	stopProfiler, err := profiling.Start(cfg.Profiling, cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer stopProfiler()

	// Outbound HTTP for Google token/API calls and captcha verification
	httpClient := httpclient.NewStandardClient()

	sheetsClient, err := sheets.NewClient(context.Background(), sheets.Config{
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		ClientEmail:   cfg.Sheets.ClientEmail,
		PrivateKey:    cfg.Sheets.PrivateKey,
		HTTPClient:    httpClient.HTTPClient(),
	})
	if err != nil {
		logger.Fatal("Failed to initialize Google Sheets client", zap.Error(err))
	}

	sender, err := email.NewSender(cfg.Email)
	if err != nil {
		logger.Fatal("Failed to initialize email sender", zap.Error(err))
	}

	captcha := recaptcha.NewVerifier(cfg.ReCAPTCHA.SecretKey, httpClient)
	if !captcha.Enabled() {
		logger.Warn("ReCAPTCHA disabled: RECAPTCHA_SECRET_KEY not configured")
	}

	// Repositories and services
	leadLog := repository.NewLeadLogRepository(sheetsClient, cfg.Sheets.Location)
	notifier := services.NewLeadNotifier(sender, cfg)
	leadService := services.NewLeadService(leadLog, notifier, captcha)

	// Handlers
	leadHandler := handlers.NewLeadHandler(leadService)
	// unhealthy while the latest sheet write is failing; the next successful capture clears it
	healthHandler := handlers.NewHealthHandler(
		handlers.HealthCheck{Name: "lead log", Ready: leadLog.Healthy},
	)

	// Set up Gin router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoRoute(handlers.NoRoute)
	router.NoMethod(handlers.NoMethod)

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName)) // OpenTelemetry tracing
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(cfg.IsProduction()))

	// CORS configuration - only the marketing site may post leads
	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader, "traceparent", "tracestate"},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	generalRateLimiter := middleware.NewRateLimiter(50, 100, visitorIdleAfter)
	// 1 lead per 12s per IP with a burst of 5
	leadRateLimiter := middleware.NewRateLimiter(rate.Every(12*time.Second), 5, visitorIdleAfter)

	// Utility endpoints (not versioned - operational endpoints)
	api := router.Group("/api")
	api.GET("/healthcheck", generalRateLimiter.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", generalRateLimiter.Middleware(), gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.POST("/leads/capture", leadRateLimiter.Middleware(), middleware.BodySizeLimitMiddleware(leadBodyLimit), leadHandler.Capture)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A capture waits on Sheets plus both email sends
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// In-flight captures get time to finish their sheet write and emails
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
