package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/choice-engine/pkg/chat"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/story"
	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"
)

// SpeechSpeed is the fixed playback rate requested from the speech endpoint.
const SpeechSpeed = 1.0

// OpenAIService implements LLMService and SpeechService against the OpenAI
// API or any server speaking its protocol. The key is supplied per call, so
// one service serves every session.
type OpenAIService struct {
	baseURL     string
	modelName   string
	speechModel string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewOpenAIService creates a new OpenAI service. An empty baseURL uses the
// public endpoint.
func NewOpenAIService(baseURL, modelName, speechModel string, timeout time.Duration, logger *slog.Logger) *OpenAIService {
	return &OpenAIService{
		baseURL:     baseURL,
		modelName:   modelName,
		speechModel: speechModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (s *OpenAIService) Name() string { return "openai" }

func (s *OpenAIService) RequiresCredential() bool { return true }

func (s *OpenAIService) client(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if s.baseURL != "" {
		cfg.BaseURL = s.baseURL
	}
	cfg.HTTPClient = s.httpClient
	return openai.NewClientWithConfig(cfg)
}

// Chat sends a chat completion request.
func (s *OpenAIService) Chat(ctx context.Context, apiKey string, messages []chat.ChatMessage, opts chat.Options) (*chat.ChatResponse, error) {
	if err := chat.Validate(messages); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:       s.modelName,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	s.logger.Debug("Making OpenAI chat request",
		"model", s.modelName,
		"message_count", len(messages),
		"max_tokens", opts.MaxTokens)

	resp, err := s.client(apiKey).CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &story.UpstreamError{Status: http.StatusBadGateway, Detail: "response contained no choices"}
	}

	out := &chat.ChatResponse{
		Message:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if out.PromptTokens == 0 && out.CompletionTokens == 0 {
		out.PromptTokens, out.CompletionTokens = s.estimateUsage(messages, out.Message)
	}
	return out, nil
}

// estimateUsage counts tokens locally for servers that omit usage.
func (s *OpenAIService) estimateUsage(messages []chat.ChatMessage, reply string) (int, int) {
	tke, err := tiktoken.EncodingForModel(s.modelName)
	if err != nil {
		s.logger.Debug("No tokenizer for model, skipping usage estimate", "model", s.modelName, "error", err)
		return 0, 0
	}
	prompt := 0
	for _, m := range messages {
		prompt += len(tke.Encode(m.Content, nil, nil))
	}
	return prompt, len(tke.Encode(reply, nil, nil))
}

// Speech synthesizes mp3 audio for already-cleaned text.
func (s *OpenAIService) Speech(ctx context.Context, apiKey string, text string, voice lang.Voice) ([]byte, error) {
	resp, err := s.client(apiKey).CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.speechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          SpeechSpeed,
	})
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = resp.Close() }()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, &story.TransportError{Err: fmt.Errorf("failed to read audio: %w", err)}
	}
	s.logger.Debug("Speech synthesized", "voice", voice, "input_chars", len(text), "bytes", len(audio))
	return audio, nil
}
