package handlers

import (
	"context"
	"net/http"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores the caller's resolved identity on the context
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Identity returns the caller's identity set by the identity middleware
func Identity(r *http.Request) string {
	if identity, ok := r.Context().Value(identityKey).(string); ok {
		return identity
	}
	return ""
}
