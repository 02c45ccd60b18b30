package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-travel-rag/internal/api/orchestrator"
	"github.com/FACorreiaa/go-travel-rag/internal/api/rag"
	"github.com/FACorreiaa/go-travel-rag/internal/api/ratelimit"
)

// Config carries the handlers and limiters the router wires together.
// Server-wide middleware (request ID, logging, recoverer, caller identity)
// is applied before mounting this router in main.go.
type Config struct {
	RAGHandler  *rag.HandlerImpl
	ChatHandler *orchestrator.HandlerImpl
	RAGLimiter  *ratelimit.Limiter
	ChatLimiter *ratelimit.Limiter
}

// SetupRouter initializes and configures the main application router.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Question answering: lower limit since each request runs the full
		// pipeline.
		r.Group(func(r chi.Router) {
			r.Use(ratelimit.Middleware(cfg.RAGLimiter, "rag"))
			r.Post("/rag/query", cfg.RAGHandler.Query)
		})

		// Conversational orchestration.
		r.Group(func(r chi.Router) {
			r.Use(ratelimit.Middleware(cfg.ChatLimiter, "chat"))
			r.Post("/chat/query", cfg.ChatHandler.Run)
			r.Post("/chat/stream", cfg.ChatHandler.Stream)
		})
	})

	return r
}
