// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-platform/internal/config"
	"github.com/capitalize-ai/chat-platform/internal/handler"
	"github.com/capitalize-ai/chat-platform/internal/llm"
	natsclient "github.com/capitalize-ai/chat-platform/internal/nats"
	"github.com/capitalize-ai/chat-platform/internal/service"
	"github.com/capitalize-ai/chat-platform/internal/storage"
	"github.com/capitalize-ai/chat-platform/internal/store"
	"github.com/capitalize-ai/chat-platform/internal/turnlock"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
	"github.com/capitalize-ai/chat-platform/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chat-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server", zap.String("port", cfg.ServerPort))

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chat-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Database
	db, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return err
	}

	conversations := store.NewConversationStore(db, nil)
	messages := store.NewMessageStore(db, conversations, nil)
	accounts := store.NewAccountStore(db, nil)

	checks := map[string]handler.Check{
		"database": db.PingContext,
	}

	// LLM provider
	provider, err := llm.NewProvider(llm.ProviderName(cfg.LLMProvider), llm.Options{
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
		Model:    cfg.LLMModel,
		Timeout:  cfg.LLMTimeout,
		Referer:  cfg.LLMReferer,
		AppTitle: cfg.LLMAppTitle,
	})
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Warn("LLM API key not configured, replies will report the missing key")
		provider = nil
	case err != nil:
		return fmt.Errorf("create llm provider: %w", err)
	}
	completer := llm.NewCompleter(provider, llm.CompleterConfig{
		Model:     cfg.LLMModel,
		MaxTokens: cfg.LLMMaxTokens,
		Timeout:   cfg.LLMTimeout,
	}, log)

	// Turn serialization
	var locker turnlock.Locker = turnlock.NewLocal()
	if cfg.RedisURL != "" {
		redisLocker, err := turnlock.NewRedis(ctx, cfg.RedisURL, cfg.TurnLockTTL, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisLocker.Close()
		locker = redisLocker
		checks["redis"] = redisLocker.Ping
		log.Info("using redis turn locks")
	}

	// Events
	var events service.EventPublisher = service.NopPublisher{}
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	switch {
	case errors.Is(err, natsclient.ErrNotConfigured):
		log.Info("NATS not configured, domain events disabled")
	case err != nil:
		return fmt.Errorf("connect nats: %w", err)
	default:
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient, log)
		if err := streamManager.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure stream: %w", err)
		}
		events = streamManager
		checks["nats"] = natsClient.Ping
	}

	// Initialize services
	conversationSvc := service.NewConversationService(conversations, messages, events, service.ConversationConfig{
		Location: cfg.Location(),
	}, log)
	chatSvc := service.NewChatService(conversations, messages, completer, locker, events, log)
	accountSvc := service.NewAccountService(accounts, conversations, events, log)

	if natsClient != nil {
		sub, err := natsclient.SubscribeAccounts(natsClient, accountSvc, log)
		if err != nil {
			return fmt.Errorf("subscribe accounts: %w", err)
		}
		defer sub.Unsubscribe()
	}

	router := handler.NewRouter(handler.RouterConfig{
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		Chat:              chatSvc,
		Conversations:     conversationSvc,
		Accounts:          accountSvc,
		Health:            handler.NewHealthHandler(checks),
		Logger:            log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
