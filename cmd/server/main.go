package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apocalipssi/docanalyzer/internal/activity"
	"github.com/apocalipssi/docanalyzer/internal/auth"
	"github.com/apocalipssi/docanalyzer/internal/config"
	"github.com/apocalipssi/docanalyzer/internal/database"
	"github.com/apocalipssi/docanalyzer/internal/handlers"
	"github.com/apocalipssi/docanalyzer/internal/logger"
	"github.com/apocalipssi/docanalyzer/internal/middleware"
	"github.com/apocalipssi/docanalyzer/internal/queue"
	"github.com/apocalipssi/docanalyzer/internal/services/ai"
	"github.com/apocalipssi/docanalyzer/internal/services/extract"
	"github.com/apocalipssi/docanalyzer/internal/session"
	"github.com/apocalipssi/docanalyzer/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "docanalyzer-api"

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database. A failed connection is not fatal: repositories
	// degrade to empty reads and no-op writes.
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Warn("database_unavailable_running_degraded", zap.Error(err))
	} else {
		zapLogger.Info("connected_to_database")
		if err := db.EnsureSchema(context.Background()); err != nil {
			zapLogger.Warn("failed_to_ensure_schema", zap.Error(err))
		}
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	// Connect to Redis for rate limiting
	redisLimiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisLimiter.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	sessionRepo := database.NewSessionRepository(db)
	activityRepo := database.NewActivityLogRepository(db)
	historyRepo := database.NewHistoryRepository(db)

	// Activity log transport: RabbitMQ when configured (drained by the
	// worker binary), otherwise straight into the store.
	var logQueue queue.LogQueue
	var sink activity.Sink
	if cfg.RabbitMQURL != "" {
		logQueue, err = connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Warn("rabbitmq_unavailable_using_store_sink", zap.Error(err))
			sink = activity.NewStoreSink(activityRepo, cfg.MaxLogEntries)
		} else {
			zapLogger.Info("connected_to_rabbitmq")
			defer func() {
				if err := logQueue.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
			sink = activity.NewQueueSink(logQueue)
		}
	} else {
		sink = activity.NewStoreSink(activityRepo, cfg.MaxLogEntries)
	}

	recorder := activity.NewAsyncRecorder(sink, activity.DefaultQueueSize, zapLogger)
	defer recorder.Close()

	// Initialize services
	credentials := auth.NewCredentialService(userRepo, cfg.MinPasswordLength, zapLogger)
	tokens := auth.NewTokenManager(cfg.TokenSecret, time.Duration(cfg.SessionTimeoutHours)*time.Hour)

	var aiProvider ai.Provider
	if cfg.InferenceAPIKey != "" {
		aiProvider = ai.NewClientWithLogger(cfg.InferenceAPIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
	} else {
		zapLogger.Warn("inference_api_key_not_configured_ai_features_disabled")
	}

	sessionManager := session.NewManager(
		sessionRepo,
		historyRepo,
		extract.NewPDFExtractor(),
		aiProvider,
		recorder,
		cfg.MaxTextLength,
		cfg.MaxQuestionLength,
		zapLogger,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(credentials, tokens, recorder)
	sessionHandler := handlers.NewSessionHandler(sessionManager, cfg.MaxQuestionLength)
	activityHandler := handlers.NewActivityHandler(activityRepo, cfg.LogDisplayLimit)
	historyHandler := handlers.NewHistoryHandler(historyRepo, cfg.LogDisplayLimit)
	healthChecker := handlers.NewHealthChecker(db, redisLimiter.Client(), logQueue)

	// Setup router
	r := mux.NewRouter()

	zapLogger.Info("setting_up_middleware")

	// Note: In gorilla/mux, middleware executes in registration order
	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware(serviceName))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.MaxRequestSize(handlers.MaxUploadSize + 1<<20))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Auth route brute-force protection
	rateLimitMW, err := middleware.AuthRateLimit(redisLimiter.Client(), "5-S")
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	authMW := middleware.Auth(tokens, userRepo, zapLogger)

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")

	// API v1 routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	// Auth routes
	authRouter := apiRouter.PathPrefix("/auth").Subrouter()
	authRouter.Use(rateLimitMW)
	authHandler.RegisterRoutes(authRouter)

	protectedAuthRouter := apiRouter.PathPrefix("/auth").Subrouter()
	protectedAuthRouter.Use(authMW)
	authHandler.RegisterProtectedRoutes(protectedAuthRouter)

	// Session routes (protected, general per-minute limit)
	sessionsRouter := apiRouter.PathPrefix("/sessions").Subrouter()
	sessionsRouter.Use(authMW)
	sessionsRouter.Use(middleware.RateLimitAuthenticated(redisLimiter))
	sessionHandler.RegisterRoutes(sessionsRouter)

	// Activity log routes (protected)
	activityRouter := apiRouter.PathPrefix("/activity").Subrouter()
	activityRouter.Use(authMW)
	activityRouter.Use(middleware.RateLimitAuthenticated(redisLimiter))
	activityHandler.RegisterRoutes(activityRouter)

	// History panel routes (protected)
	historyRouter := apiRouter.PathPrefix("/history").Subrouter()
	historyRouter.Use(authMW)
	historyRouter.Use(middleware.RateLimitAuthenticated(redisLimiter))
	historyHandler.RegisterRoutes(historyRouter)

	// CORS wraps the whole router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(r)

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        corsHandler,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   90 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRabbitMQ retries the connection with exponential backoff to
// handle broker startup delays.
func connectRabbitMQ(amqpURL string, zapLogger *zap.Logger) (queue.LogQueue, error) {
	const maxRetries = 5
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		logQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			return logQueue, nil
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	return nil, lastErr
}
