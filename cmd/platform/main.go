// Package main boots the Serenia API server and wires application dependencies.
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

	"github.com/redis/go-redis/v9"

	"github.com/easeaico/serenia/internal/agent"
	"github.com/easeaico/serenia/internal/analytics"
	"github.com/easeaico/serenia/internal/cache"
	"github.com/easeaico/serenia/internal/chat"
	"github.com/easeaico/serenia/internal/config"
	"github.com/easeaico/serenia/internal/conversation"
	"github.com/easeaico/serenia/internal/emotion"
	"github.com/easeaico/serenia/internal/handler"
	"github.com/easeaico/serenia/internal/memory"
	"github.com/easeaico/serenia/internal/models"
	"github.com/easeaico/serenia/internal/prompt"
	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	slog.Info("configuration loaded", "provider", cfg.LLMProvider, "chat_model", cfg.ChatModel, "classifier_model", cfg.ClassifierModel, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	resources := severity.NewResources(cfg.CrisisHotline, cfg.CrisisTextNumber, cfg.CrisisChatURL)
	crisisScorer := severity.NewCrisisScorer(resources)
	anxietyScorer := severity.NewAnxietyScorer()
	tracker := conversation.NewTracker(conversation.WithWindowSize(cfg.ContextWindow))

	chatOpts := []chat.Option{
		chat.WithResources(resources),
		chat.WithScorers(crisisScorer, anxietyScorer),
	}
	engineOpts := []analytics.Option{}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()

		reports := cache.NewReportCache(redisClient, cfg.ReportCacheTTL)
		engineOpts = append(engineOpts, analytics.WithCache(reports))
		chatOpts = append(chatOpts, chat.WithCacheInvalidator(reports))
		slog.Info("report cache enabled", "ttl", cfg.ReportCacheTTL)
	}

	responder, classifier := buildModels(ctx, cfg)
	if classifier != nil {
		chatOpts = append(chatOpts, chat.WithClassifier(classifier))
	}

	if cfg.RecallEnabled && cfg.GoogleAPIKey != "" {
		embedder, err := memory.NewGenAIEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			log.Fatalf("failed to create embedder: %v", err)
		}
		chatOpts = append(chatOpts, chat.WithRecaller(memory.NewRetriever(embedder, store, cfg.TopK, cfg.SimilarityThreshold)))
		slog.Info("message recall enabled", "embedding_model", cfg.EmbeddingModel, "top_k", cfg.TopK)
	} else {
		slog.Warn("message recall disabled", "recall_enabled", cfg.RecallEnabled, "google_api_key_set", cfg.GoogleAPIKey != "")
	}

	service := chat.NewService(store, tracker, responder, chatOpts...)
	engine := analytics.NewEngine(store, engineOpts...)

	router := handler.NewRouter(&handler.Container{
		Chat:      service,
		History:   store,
		Tracker:   tracker,
		Analytics: engine,
		Resources: resources,
		Crisis:    crisisScorer,
		Anxiety:   anxietyScorer,
		Health:    healthCheck{store: store, redis: redisClient},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}

// buildModels creates the reply generator and emotion classifier. Without an
// API key the server runs degraded: template replies and no classifier.
func buildModels(ctx context.Context, cfg config.Config) (agent.Responder, emotion.Classifier) {
	if cfg.LLMAPIKey == "" {
		slog.Warn("no LLM API key configured, running with template replies and no emotion classifier", "provider", cfg.LLMProvider)
		return agent.Fallback{}, nil
	}

	chatModel, err := models.New(ctx, cfg.LLMProvider, cfg.ChatModel, cfg.LLMAPIKey)
	if err != nil {
		log.Fatalf("failed to create chat model: %v", err)
	}
	responder, err := agent.NewCompanion(chatModel, prompt.NewBuilder(cfg.ContextWindow), cfg.ReplyTimeout)
	if err != nil {
		log.Fatalf("failed to create responder: %v", err)
	}

	classifierModel := chatModel
	if cfg.ClassifierModel != cfg.ChatModel {
		classifierModel, err = models.New(ctx, cfg.LLMProvider, cfg.ClassifierModel, cfg.LLMAPIKey)
		if err != nil {
			log.Fatalf("failed to create classifier model: %v", err)
		}
	}
	classifier, err := emotion.NewLLMClassifier(classifierModel, emotion.WithTimeout(cfg.ClassifierTimeout))
	if err != nil {
		log.Fatalf("failed to create emotion classifier: %v", err)
	}
	return responder, classifier
}

type healthCheck struct {
	store *storage.Store
	redis *redis.Client
}

func (h healthCheck) Ping(ctx context.Context) error {
	if err := h.store.Ping(ctx); err != nil {
		return err
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
	}
	return nil
}
