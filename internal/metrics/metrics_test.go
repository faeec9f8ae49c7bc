package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBackend(t *testing.T) {
	before := testutil.ToFloat64(backendRequests.WithLabelValues("openai", KindOpening, StatusSuccess))
	ObserveBackend("openai", KindOpening, StatusSuccess, 120*time.Millisecond)
	after := testutil.ToFloat64(backendRequests.WithLabelValues("openai", KindOpening, StatusSuccess))
	assert.Equal(t, before+1, after)
}

func TestObserveSpeechCache(t *testing.T) {
	hits := testutil.ToFloat64(speechCache.WithLabelValues("hit"))
	misses := testutil.ToFloat64(speechCache.WithLabelValues("miss"))
	ObserveSpeechCache(true)
	ObserveSpeechCache(false)
	ObserveSpeechCache(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(speechCache.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(speechCache.WithLabelValues("miss")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveTurn("start", "ok")
	SetActiveSessions(3)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "choice_engine_turns_total")
	assert.Contains(t, string(body), "choice_engine_active_sessions 3")
	assert.Contains(t, string(body), "go_goroutines")
}
