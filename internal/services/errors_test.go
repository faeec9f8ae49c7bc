package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/jwebster45206/choice-engine/internal/metrics"
	"github.com/jwebster45206/choice-engine/pkg/story"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		transport  bool
	}{
		{"openai api error", fmt.Errorf("error, %w", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}), 401, false},
		{"openai request error", &openai.RequestError{HTTPStatusCode: 503, Err: errors.New("unavailable")}, 503, false},
		{"ollama status error", api.StatusError{StatusCode: 404, ErrorMessage: "model not found"}, 404, false},
		{"google api error", &googleapi.Error{Code: 403, Message: "denied"}, 403, false},
		{"unknown decode failure", errors.New("invalid character"), http.StatusBadGateway, false},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("refused")}, 0, true},
		{"deadline", context.DeadlineExceeded, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.transport {
				assert.True(t, story.IsTransport(got))
				assert.Equal(t, metrics.StatusTransport, status(got))
				return
			}
			var up *story.UpstreamError
			if assert.True(t, errors.As(got, &up)) {
				assert.Equal(t, tt.wantStatus, up.Status)
			}
			assert.Equal(t, metrics.StatusUpstream, status(got))
		})
	}
}

func TestClassifyPassesThroughTaxonomy(t *testing.T) {
	assert.Nil(t, classify(nil))
	assert.Equal(t, story.ErrNotConfigured, classify(story.ErrNotConfigured))
	up := &story.UpstreamError{Status: 500}
	assert.Same(t, up, classify(up))
}
