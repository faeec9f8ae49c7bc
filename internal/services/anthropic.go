package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/choice-engine/pkg/chat"
	"github.com/jwebster45206/choice-engine/pkg/story"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// AnthropicService implements LLMService for Anthropic Claude over the
// Messages API.
type AnthropicService struct {
	baseURL    string
	modelName  string
	httpClient *http.Client
	logger     *slog.Logger
}

type AnthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
	Messages    []chat.ChatMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
}

type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *anthropicError `json:"error,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewAnthropicService creates an Anthropic service. An empty baseURL uses
// the public endpoint.
func NewAnthropicService(baseURL string, modelName string, timeout time.Duration, logger *slog.Logger) *AnthropicService {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicService{
		baseURL:   strings.TrimRight(baseURL, "/"),
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (a *AnthropicService) Name() string { return "anthropic" }

func (a *AnthropicService) RequiresCredential() bool { return true }

// splitChatMessages combines all system messages into a single system
// prompt and returns the remaining messages.
func splitChatMessages(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var systemParts []string
	var rest []chat.ChatMessage

	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			rest = append(rest, msg)
		}
	}
	return strings.Join(systemParts, "\n\n"), rest
}

// Chat sends one Messages API request.
func (a *AnthropicService) Chat(ctx context.Context, apiKey string, messages []chat.ChatMessage, opts chat.Options) (*chat.ChatResponse, error) {
	if err := chat.Validate(messages); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	systemPrompt, conversation := splitChatMessages(messages)
	temperature := opts.Temperature
	anthropicReq := AnthropicChatRequest{
		Model:       a.modelName,
		MaxTokens:   opts.MaxTokens,
		Temperature: &temperature,
		Messages:    conversation,
		System:      systemPrompt,
	}

	reqBody, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	a.logger.Debug("Making Anthropic chat request",
		"model", a.modelName,
		"message_count", len(conversation),
		"max_tokens", opts.MaxTokens)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &story.TransportError{Err: fmt.Errorf("read response body: %w", err)}
	}

	var anthropicResp AnthropicChatResponse
	decodeErr := json.Unmarshal(body, &anthropicResp)

	if resp.StatusCode != http.StatusOK {
		detail := string(body)
		if decodeErr == nil && anthropicResp.Error != nil {
			detail = anthropicResp.Error.Message
		}
		return nil, &story.UpstreamError{Status: resp.StatusCode, Detail: detail}
	}
	if decodeErr != nil {
		return nil, &story.UpstreamError{Status: http.StatusBadGateway, Detail: fmt.Sprintf("failed to parse response: %v", decodeErr)}
	}

	var text strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &story.UpstreamError{Status: http.StatusBadGateway, Detail: "response contained no text"}
	}

	return &chat.ChatResponse{
		Message:          text.String(),
		PromptTokens:     anthropicResp.Usage.InputTokens,
		CompletionTokens: anthropicResp.Usage.OutputTokens,
	}, nil
}
