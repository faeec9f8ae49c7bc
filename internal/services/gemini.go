package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/jwebster45206/choice-engine/pkg/chat"
	"github.com/jwebster45206/choice-engine/pkg/story"
	"google.golang.org/api/option"
)

// GeminiService implements LLMService against Google's Gemini API. A
// client is opened per call because the key can differ per request.
type GeminiService struct {
	modelName string
	opts      []option.ClientOption
	logger    *slog.Logger
}

// NewGeminiService creates a Gemini service. Extra client options are
// applied to every call after the API key.
func NewGeminiService(modelName string, logger *slog.Logger, opts ...option.ClientOption) *GeminiService {
	return &GeminiService{
		modelName: modelName,
		opts:      opts,
		logger:    logger,
	}
}

func (s *GeminiService) Name() string { return "gemini" }

func (s *GeminiService) RequiresCredential() bool { return true }

// Chat replays the conversation as chat history and sends the final user
// message.
func (s *GeminiService) Chat(ctx context.Context, apiKey string, messages []chat.ChatMessage, opts chat.Options) (*chat.ChatResponse, error) {
	if err := chat.Validate(messages); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	system, history, last, err := splitForGemini(messages)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, s.opts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = client.Close() }()

	model := client.GenerativeModel(s.modelName)
	model.SetTemperature(opts.Temperature)
	model.SetMaxOutputTokens(int32(opts.MaxTokens))
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	cs := model.StartChat()
	cs.History = history

	s.logger.Debug("Making Gemini chat request",
		"model", s.modelName,
		"history", len(history))

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, classify(err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, &story.UpstreamError{Status: http.StatusBadGateway, Detail: "response contained no text"}
	}
	out := &chat.ChatResponse{Message: text}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// splitForGemini separates the system instruction and the final user turn
// from the history Gemini expects on the chat session.
func splitForGemini(messages []chat.ChatMessage) (string, []*genai.Content, string, error) {
	system, rest := chat.SystemAndRest(messages)
	if len(rest) == 0 || rest[len(rest)-1].Role != chat.ChatRoleUser {
		return "", nil, "", fmt.Errorf("conversation must end with a user message")
	}

	history := make([]*genai.Content, 0, len(rest)-1)
	for _, m := range rest[:len(rest)-1] {
		role := "user"
		if m.Role == chat.ChatRoleAgent {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return system, history, rest[len(rest)-1].Content, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
