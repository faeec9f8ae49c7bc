package services

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/jwebster45206/choice-engine/internal/metrics"
	"github.com/jwebster45206/choice-engine/pkg/story"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

// classify maps a client library error onto the story error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, story.ErrNotConfigured) || story.IsUpstream(err) || story.IsTransport(err) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &story.UpstreamError{Status: apiErr.HTTPStatusCode, Detail: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &story.UpstreamError{Status: reqErr.HTTPStatusCode, Detail: reqErr.Error()}
	}
	var ollamaErr api.StatusError
	if errors.As(err, &ollamaErr) {
		return &story.UpstreamError{Status: ollamaErr.StatusCode, Detail: ollamaErr.ErrorMessage}
	}
	var googleErr *googleapi.Error
	if errors.As(err, &googleErr) {
		return &story.UpstreamError{Status: googleErr.Code, Detail: googleErr.Message}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &story.TransportError{Err: err}
	}

	// Anything else came back from a reachable backend we could not decode.
	return &story.UpstreamError{Status: http.StatusBadGateway, Detail: err.Error()}
}

// status returns the metrics label for a classified error.
func status(err error) string {
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.Is(err, story.ErrNotConfigured):
		return metrics.StatusNotConfigured
	case errors.Is(err, story.ErrInputTooShort):
		return metrics.StatusInvalid
	case story.IsTransport(err):
		return metrics.StatusTransport
	default:
		return metrics.StatusUpstream
	}
}
