package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/choice-engine/internal/config"
	"github.com/jwebster45206/choice-engine/internal/credentials"
	"github.com/jwebster45206/choice-engine/internal/events"
	"github.com/jwebster45206/choice-engine/internal/handlers"
	"github.com/jwebster45206/choice-engine/internal/logger"
	"github.com/jwebster45206/choice-engine/internal/metrics"
	"github.com/jwebster45206/choice-engine/internal/middleware"
	"github.com/jwebster45206/choice-engine/internal/services"
	"github.com/jwebster45206/choice-engine/internal/sessions"
	"github.com/jwebster45206/choice-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Choice Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	var llmService services.LLMService
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		llmService = services.NewOpenAIService(cfg.OpenAIBaseURL, cfg.ModelName, cfg.SpeechModel, cfg.RequestTimeout, log)
	case config.ProviderOllama:
		ollama, err := services.NewOllamaService(cfg.OllamaBaseURL, cfg.ModelName, cfg.RequestTimeout, log)
		if err != nil {
			log.Error("Failed to create Ollama client", "error", err, "base_url", cfg.OllamaBaseURL)
			os.Exit(1)
		}
		llmService = ollama
	case config.ProviderGemini:
		llmService = services.NewGeminiService(cfg.ModelName, log)
	case config.ProviderAnthropic:
		llmService = services.NewAnthropicService(cfg.AnthropicBaseURL, cfg.ModelName, cfg.RequestTimeout, log)
	case config.ProviderOffline:
		llmService = services.NewOfflineService(time.Second, log)
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider)
		os.Exit(1)
	}
	log.Info("Using LLM provider", "provider", llmService.Name())

	if initializer, ok := llmService.(services.ModelInitializer); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		if err := initializer.InitModel(ctx); err != nil {
			cancel()
			log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
			os.Exit(1)
		}
		cancel()
	}

	// Speech always goes to OpenAI; other providers fall back to the
	// server's OpenAI key for it.
	speech := services.NewOpenAIService(cfg.OpenAIBaseURL, cfg.ModelName, cfg.SpeechModel, cfg.RequestTimeout, log)
	gateway := services.NewGateway(llmService, credentials.Chain{Default: cfg.ProviderKey()}, log).
		WithSpeech(speech, credentials.Chain{Default: cfg.OpenAIAPIKey})
	if cfg.OfflineFallback && cfg.LLMProvider != config.ProviderOffline {
		gateway = gateway.WithFallback(services.NewOfflineService(0, log))
		log.Info("Offline fallback enabled")
	}
	if !gateway.Configured(context.Background()) {
		log.Warn("No server credential configured; clients must send one", "header", credentials.Header)
	}

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.SessionTTL, log)
	if err != nil {
		log.Error("Invalid Redis configuration", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	broadcaster := events.NewBroadcaster(store.Client(), log)
	manager := sessions.NewManager(gateway, store, broadcaster, sessions.Options{
		AudioCacheSize: cfg.AudioCacheSize,
		TurnTimeout:    cfg.RequestTimeout,
	}, log)

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(store, gateway, log))
	mux.Handle("/metrics", metrics.Handler())

	catalogHandler := handlers.NewCatalogHandler(log)
	mux.Handle("/v1/genres", catalogHandler)
	mux.Handle("/v1/languages", catalogHandler)

	sessionsHandler := handlers.NewSessionsHandler(manager, log)
	mux.Handle("/v1/sessions", sessionsHandler)
	mux.Handle("/v1/sessions/", sessionsHandler)

	mux.Handle("/v1/events/sessions/", handlers.NewEventsHandler(broadcaster, log))

	handler := middleware.Logger(log, credentials.Middleware(mux))
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: SSE streams stay open
		IdleTimeout: 60 * time.Second,
	}

	pruneCtx, stopPruning := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-pruneCtx.Done():
				return
			case <-ticker.C:
				if n := manager.PruneIdle(cfg.SessionIdleTimeout); n > 0 {
					log.Info("Pruned idle sessions from memory", "count", n)
				}
			}
		}
	}()

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")
	stopPruning()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
