package credentials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainCredential(t *testing.T) {
	tests := []struct {
		name      string
		requestKy string
		def       string
		wantKey   string
		wantOK    bool
	}{
		{"nothing set", "", "", "", false},
		{"placeholder default", "", Placeholder, "", false},
		{"placeholder request key falls back", Placeholder, "server", "server", true},
		{"request key wins", "client", "server", "client", true},
		{"default only", "", "server", "server", true},
		{"whitespace trimmed", "  client  ", "", "client", true},
		{"blank request key", "   ", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.requestKy != "" {
				ctx = WithKey(ctx, tt.requestKy)
			}
			key, ok := Chain{Default: tt.def}.Credential(ctx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestMiddleware(t *testing.T) {
	var got string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(Header, "sk-test")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "sk-test", got)

	got = "unchanged"
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, got)
}
