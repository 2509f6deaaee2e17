package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/chat-platform/internal/middleware"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
)

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSOrigins       []string

	Chat          ChatService
	Conversations ConversationService
	Accounts      AccountService
	Health        *HealthHandler

	Logger *logger.Logger
}

// NewRouter builds the API router.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	chatHandler := NewChatHandler(cfg.Chat, cfg.Conversations, log)
	conversationHandler := NewConversationHandler(cfg.Conversations, log)
	accountHandler := NewAccountHandler(cfg.Accounts, log)

	r := chi.NewRouter()
	r.MethodNotAllowed(middleware.MethodNotAllowed)

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth required)
	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Health)
		r.Get("/ready", cfg.Health.Ready)
	}

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.MethodNotAllowed(middleware.MethodNotAllowed)
		r.Use(middleware.Auth(cfg.JWTSecret))
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}
		r.Use(middleware.Provision(cfg.Accounts, log))

		r.Post("/chat", chatHandler.Send)
		r.Get("/messages", chatHandler.Messages)

		r.Route("/conversations", func(r chi.Router) {
			r.MethodNotAllowed(middleware.MethodNotAllowed)
			r.Post("/", conversationHandler.Create)
			r.Get("/history", conversationHandler.History)
			r.Get("/{id}", conversationHandler.Get)
			r.Delete("/{id}", conversationHandler.Delete)
		})

		r.Delete("/account", accountHandler.Delete)
	})

	return r
}
