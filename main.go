package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	openai "github.com/sashabaranov/go-openai"

	database "github.com/FACorreiaa/go-travel-rag/app/db"
	appLogger "github.com/FACorreiaa/go-travel-rag/app/logger"
	appMiddleware "github.com/FACorreiaa/go-travel-rag/app/middleware"
	"github.com/FACorreiaa/go-travel-rag/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-rag/app/tracer"
	"github.com/FACorreiaa/go-travel-rag/config"
	"github.com/FACorreiaa/go-travel-rag/internal/api/embedding"
	generativeAI "github.com/FACorreiaa/go-travel-rag/internal/api/generative_ai"
	"github.com/FACorreiaa/go-travel-rag/internal/api/offering"
	"github.com/FACorreiaa/go-travel-rag/internal/api/orchestrator"
	"github.com/FACorreiaa/go-travel-rag/internal/api/rag"
	"github.com/FACorreiaa/go-travel-rag/internal/api/ratelimit"
	"github.com/FACorreiaa/go-travel-rag/internal/router"
	"github.com/redis/rueidis"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	tracer.InitTracingAndMetrics(":9090")
	metrics.InitAppMetrics()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	err = database.RunMigrations(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Dependency Injection ---
	openaiClient := openai.NewClient(os.Getenv("OPENAI_API_KEY"))
	embedder := embedding.NewServiceImpl(openaiClient, cfg.Embedding, logger)

	aiClient, err := generativeAI.NewAIClient(ctx, logger)
	if err != nil {
		logger.Error("Failed to initialize generative AI client", slog.Any("error", err))
		os.Exit(1)
	}

	offeringRepo := offering.NewRepositoryImpl(pool, logger)

	var responseCache rag.ResponseCache
	if cfg.Repositories.Redis.Enabled {
		redisClient, err := rueidis.NewClient(rueidis.ClientOption{
			InitAddress: []string{cfg.Repositories.Redis.Addr},
		})
		if err != nil {
			logger.Error("Failed to connect to Redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisClient.Close()
		responseCache = rag.NewRedisCache(redisClient, cfg.RAG.CacheTTL, logger)
		logger.Info("Using Redis response cache", slog.String("addr", cfg.Repositories.Redis.Addr))
	} else {
		responseCache = rag.NewMemoryCache(cfg.RAG.CacheTTL)
		logger.Info("Using in-process response cache")
	}

	ragService := rag.NewServiceImpl(embedder, offeringRepo, aiClient, responseCache, cfg.RAG, logger)
	ragHandler := rag.NewHandlerImpl(ragService, logger)

	agents := orchestrator.NewCategoryAgents(offeringRepo, cfg.Orchestrator, logger)
	chatService := orchestrator.NewServiceImpl(agents, embedder, aiClient, cfg.Orchestrator, logger)
	chatHandler := orchestrator.NewHandlerImpl(chatService, logger)

	ragLimiter := ratelimit.NewLimiter(ratelimit.Policy{
		MaxRequests: cfg.RateLimit.RAG.MaxRequests,
		Window:      cfg.RateLimit.RAG.Window,
	}, cfg.RateLimit.SweepInterval, logger)
	defer ragLimiter.Close()

	chatLimiter := ratelimit.NewLimiter(ratelimit.Policy{
		MaxRequests: cfg.RateLimit.Chat.MaxRequests,
		Window:      cfg.RateLimit.Chat.Window,
	}, cfg.RateLimit.SweepInterval, logger)
	defer chatLimiter.Close()

	// --- Router Setup ---
	mainRouter := router.SetupRouter(&router.Config{
		RAGHandler:  ragHandler,
		ChatHandler: chatHandler,
		RAGLimiter:  ragLimiter,
		ChatLimiter: chatLimiter,
	})

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(cfg.Server.Timeout))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Use(appMiddleware.CallerIdentity)
	mux.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
