package middleware

import (
	"context"

	"github.com/google/uuid"
)

// SetRequestIDForTest is a helper to inject a request ID into the context for testing.
// It bypasses the HTTP middleware verification.
func SetRequestIDForTest(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

func SetBearerTokenForTest(ctx context.Context, token string) context.Context {
	return WithBearerToken(ctx, token)
}

// SetUserForTest injects an authenticated caller without a signed token.
func SetUserForTest(ctx context.Context, id uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id)
	return context.WithValue(ctx, RoleKey, role)
}
