package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jwebster45206/choice-engine/pkg/chat"
	"github.com/jwebster45206/choice-engine/pkg/story"
	"github.com/ollama/ollama/api"
)

// OllamaService implements the LLMService interface for a local Ollama server
type OllamaService struct {
	client    *api.Client
	modelName string
	logger    *slog.Logger
}

// NewOllamaService creates a new Ollama service instance
func NewOllamaService(baseURL string, modelName string, timeout time.Duration, logger *slog.Logger) (*OllamaService, error) {
	// The native API lives at the root, not under the OpenAI-compatible /v1.
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL %q: %w", baseURL, err)
	}
	return &OllamaService{
		client:    api.NewClient(u, &http.Client{Timeout: timeout}),
		modelName: modelName,
		logger:    logger,
	}, nil
}

func (s *OllamaService) Name() string { return "ollama" }

func (s *OllamaService) RequiresCredential() bool { return false }

// InitModel waits for the server and pulls the model if it is missing
func (s *OllamaService) InitModel(ctx context.Context) error {
	s.logger.Info("Initializing LLM model", "model", s.modelName)

	if err := s.waitForOllamaReady(ctx); err != nil {
		return fmt.Errorf("ollama service is not ready: %w", err)
	}

	list, err := s.client.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", classify(err))
	}
	for _, m := range list.Models {
		if m.Name == s.modelName || strings.TrimSuffix(m.Name, ":latest") == s.modelName {
			s.logger.Info("Model already available", "model", s.modelName)
			return nil
		}
	}

	s.logger.Info("Model not found, pulling it", "model", s.modelName)
	err = s.client.Pull(ctx, &api.PullRequest{Model: s.modelName}, func(p api.ProgressResponse) error {
		s.logger.Debug("Pull progress", "status", p.Status, "completed", p.Completed, "total", p.Total)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to pull model: %w", classify(err))
	}
	s.logger.Info("Model pulled successfully", "model", s.modelName)
	return nil
}

// Chat generates a non-streaming chat response
func (s *OllamaService) Chat(ctx context.Context, _ string, messages []chat.ChatMessage, opts chat.Options) (*chat.ChatResponse, error) {
	if err := chat.Validate(messages); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	msgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
	}
	stream := false
	req := &api.ChatRequest{
		Model:    s.modelName,
		Messages: msgs,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
			"num_predict": opts.MaxTokens,
		},
	}

	s.logger.Debug("Making Ollama chat request",
		"model", s.modelName,
		"message_count", len(messages))

	var resp api.ChatResponse
	err := s.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if resp.Message.Content == "" {
		return nil, &story.UpstreamError{Status: http.StatusBadGateway, Detail: "empty response from model"}
	}

	return &chat.ChatResponse{
		Message:          resp.Message.Content,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
	}, nil
}

// waitForOllamaReady waits for Ollama service to be ready with retries
func (s *OllamaService) waitForOllamaReady(ctx context.Context) error {
	maxRetries := 5
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		err := s.client.Heartbeat(ctx)
		if err == nil {
			s.logger.Info("Ollama service is ready")
			return nil
		}
		s.logger.Debug("Ollama not ready yet", "error", err, "attempt", i+1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return fmt.Errorf("ollama service did not become ready after %d attempts", maxRetries)
}
