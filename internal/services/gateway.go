package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/choice-engine/internal/credentials"
	"github.com/jwebster45206/choice-engine/internal/metrics"
	"github.com/jwebster45206/choice-engine/pkg/chat"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/parser"
	"github.com/jwebster45206/choice-engine/pkg/prompts"
	"github.com/jwebster45206/choice-engine/pkg/story"
	"github.com/jwebster45206/choice-engine/pkg/textfilter"
)

const speechProvider = "openai"

// Gateway adapts an LLMService and a SpeechService to the turn engine. It
// resolves the credential before every call, builds prompts, parses
// replies, and records metrics. It never retries.
type Gateway struct {
	llm         LLMService
	creds       credentials.Resolver
	speech      SpeechService
	speechCreds credentials.Resolver
	fallback    LLMService
	logger      *slog.Logger
}

// NewGateway creates a gateway for llm using creds.
func NewGateway(llm LLMService, creds credentials.Resolver, logger *slog.Logger) *Gateway {
	return &Gateway{
		llm:    llm,
		creds:  creds,
		logger: logger,
	}
}

// WithSpeech enables SynthesizeSpeech using its own credential resolver.
func (g *Gateway) WithSpeech(speech SpeechService, creds credentials.Resolver) *Gateway {
	g.speech = speech
	g.speechCreds = creds
	return g
}

// WithFallback answers with fb when the primary backend fails upstream or
// in transport. Missing credentials are still reported.
func (g *Gateway) WithFallback(fb LLMService) *Gateway {
	g.fallback = fb
	return g
}

// Provider names the primary backend.
func (g *Gateway) Provider() string {
	return g.llm.Name()
}

// Configured reports whether a generation call could be made now.
func (g *Gateway) Configured(ctx context.Context) bool {
	_, err := g.credential(ctx)
	return err == nil
}

// SpeechConfigured reports whether SynthesizeSpeech could be called now.
func (g *Gateway) SpeechConfigured(ctx context.Context) bool {
	if g.speech == nil {
		return false
	}
	_, ok := g.speechCreds.Credential(ctx)
	return ok
}

func (g *Gateway) credential(ctx context.Context) (string, error) {
	if !g.llm.RequiresCredential() {
		return "", nil
	}
	key, ok := g.creds.Credential(ctx)
	if !ok {
		return "", story.ErrNotConfigured
	}
	return key, nil
}

// GenerateOpening requests the first scene of a new story.
func (g *Gateway) GenerateOpening(ctx context.Context, genres []string, customPrompt string, code lang.Code) (story.Result, error) {
	messages := prompts.New(code).
		WithGenres(genres).
		WithCustomPrompt(customPrompt).
		BuildOpening()
	return g.generate(ctx, metrics.KindOpening, messages, prompts.Sampling(code))
}

// GenerateContinuation requests the scene that follows option.
func (g *Gateway) GenerateContinuation(ctx context.Context, history []story.Segment, option string, code lang.Code) (story.Result, error) {
	messages := prompts.New(code).
		WithHistory(history).
		WithChoice(option).
		BuildContinuation()
	return g.generate(ctx, metrics.KindContinuation, messages, prompts.Sampling(code))
}

func (g *Gateway) generate(ctx context.Context, kind string, messages []chat.ChatMessage, opts chat.Options) (story.Result, error) {
	provider := g.llm.Name()

	key, err := g.credential(ctx)
	if err != nil {
		metrics.ObserveBackend(provider, kind, status(err), 0)
		return story.Result{}, err
	}

	start := time.Now()
	resp, err := g.llm.Chat(ctx, key, messages, opts)
	metrics.ObserveBackend(provider, kind, status(err), time.Since(start))

	if err != nil && g.fallback != nil && (story.IsUpstream(err) || story.IsTransport(err)) {
		g.logger.Warn("Generation failed, using fallback backend",
			"provider", provider,
			"fallback", g.fallback.Name(),
			"error", err)
		provider = g.fallback.Name()
		start = time.Now()
		resp, err = g.fallback.Chat(ctx, "", messages, opts)
		metrics.ObserveBackend(provider, kind, status(err), time.Since(start))
	}
	if err != nil {
		g.logger.Error("Generation request failed",
			"provider", provider,
			"kind", kind,
			"error", err)
		return story.Result{}, fmt.Errorf("%s request: %w", kind, err)
	}
	metrics.ObserveTokens(provider, resp.PromptTokens, resp.CompletionTokens)

	res := parser.Parse(resp.Message)
	if res.Degenerate() {
		metrics.ObserveDegenerate(kind)
		g.logger.Warn("Model reply parsed to an incomplete result",
			"provider", provider,
			"kind", kind,
			"options", len(res.Options),
			"story_chars", len(res.StoryText))
	}
	return res, nil
}

// SynthesizeSpeech returns mp3 audio for text in the voice mapped to code.
// The text is cleaned and bounded first; degenerate input is rejected
// without a backend call.
func (g *Gateway) SynthesizeSpeech(ctx context.Context, text string, code lang.Code) ([]byte, error) {
	if g.speech == nil {
		metrics.ObserveBackend("none", metrics.KindSpeech, metrics.StatusNotConfigured, 0)
		return nil, story.ErrNotConfigured
	}
	key, ok := g.speechCreds.Credential(ctx)
	if !ok {
		metrics.ObserveBackend(speechProvider, metrics.KindSpeech, metrics.StatusNotConfigured, 0)
		return nil, story.ErrNotConfigured
	}

	cleaned := textfilter.CleanForSpeech(text)
	if textfilter.TooShortForSpeech(cleaned) {
		metrics.ObserveBackend(speechProvider, metrics.KindSpeech, metrics.StatusInvalid, 0)
		return nil, story.ErrInputTooShort
	}

	voice := code.Voice()
	start := time.Now()
	audio, err := g.speech.Speech(ctx, key, cleaned, voice)
	metrics.ObserveBackend(speechProvider, metrics.KindSpeech, status(err), time.Since(start))
	if err != nil {
		g.logger.Error("Speech request failed", "voice", voice, "error", err)
		return nil, fmt.Errorf("speech request: %w", err)
	}
	return audio, nil
}
