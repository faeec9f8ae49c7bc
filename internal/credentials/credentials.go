// Package credentials resolves the backend credential for a request.
package credentials

import (
	"context"
	"net/http"
	"strings"
)

// Placeholder is the sample value shipped in example configs. It counts
// as not configured.
const Placeholder = "your_openai_api_key_here"

// Header carries a per-request credential from the client.
const Header = "X-Provider-Key"

type ctxKey struct{}

// WithKey returns a context carrying a per-request credential.
func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ctxKey{}, key)
}

// FromContext returns the per-request credential, if any.
func FromContext(ctx context.Context) string {
	key, _ := ctx.Value(ctxKey{}).(string)
	return key
}

// Usable reports whether key is set and not the placeholder.
func Usable(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != Placeholder
}

// Resolver picks the credential for a backend call. It is consulted
// before every call so a key supplied mid-session takes effect at once.
type Resolver interface {
	Credential(ctx context.Context) (string, bool)
}

// Chain prefers the per-request credential and falls back to the server
// default.
type Chain struct {
	Default string
}

func (c Chain) Credential(ctx context.Context) (string, bool) {
	if key := strings.TrimSpace(FromContext(ctx)); Usable(key) {
		return key, true
	}
	if key := strings.TrimSpace(c.Default); Usable(key) {
		return key, true
	}
	return "", false
}

// Middleware copies the credential header onto the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(Header); key != "" {
			r = r.WithContext(WithKey(r.Context(), key))
		}
		next.ServeHTTP(w, r)
	})
}
