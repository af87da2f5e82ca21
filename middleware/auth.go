package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey      contextKey = "user_id"
	BearerTokenKey contextKey = "bearer_token"
	RoleKey        contextKey = "role"
)

// Auth reads the bearer token when present and stores the caller identity in
// the context. Requests without a valid token pass through anonymous;
// RequireRole decides what they may reach.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				next.ServeHTTP(w, r)
				return
			}

			// auth-service issues 'uid', older tokens only 'sub'
			uidStr, _ := claims["uid"].(string)
			if uidStr == "" {
				uidStr, _ = claims["sub"].(string)
			}
			uid, err := uuid.Parse(uidStr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			role, _ := claims["role"].(string)
			ctx := context.WithValue(r.Context(), UserIDKey, uid)
			ctx = context.WithValue(ctx, RoleKey, strings.ToLower(role))
			ctx = WithBearerToken(ctx, authHeader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole answers 401 for anonymous callers and 403 for callers whose
// role is not listed.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUserID(r.Context()) == uuid.Nil {
				writeError(w, r, "unauthorized", "authentication required", http.StatusUnauthorized)
				return
			}
			if !slices.Contains(roles, GetRole(r.Context())) {
				writeError(w, r, "forbidden", "admin role required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetUserID(ctx context.Context) uuid.UUID {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}

func GetBearerToken(ctx context.Context) string {
	token, ok := ctx.Value(BearerTokenKey).(string)
	if !ok {
		return ""
	}
	return token
}

// WithBearerToken stores the Authorization header value forwarded to the backend.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, BearerTokenKey, token)
}

func writeError(w http.ResponseWriter, r *http.Request, code, message string, status int) {
	var body struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id,omitempty"`
		} `json:"error"`
	}
	body.Error.Code = code
	body.Error.Message = message
	body.Error.RequestID = GetRequestID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
