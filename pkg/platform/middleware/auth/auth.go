package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"carbonmint/pkg/domain"
	"carbonmint/pkg/platform/httputil"
	request "carbonmint/pkg/platform/middleware/request"
	"carbonmint/pkg/requestcontext"
)

// TokenValidator resolves a bearer token to the caller address it was issued to.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims are the identity facts extracted from a validated token.
type Claims struct {
	Caller domain.Address
	JTI    string
}

const bearerPrefix = "Bearer "

// RequireAuth rejects requests without a valid bearer token and places the
// caller address in the context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteUnauthenticated(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteUnauthenticated(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(ctx, claims)))
		})
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok {
				if claims, err := validator.ValidateToken(token); err == nil {
					r = r.WithContext(withClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withClaims(ctx context.Context, claims *Claims) context.Context {
	return requestcontext.WithCaller(ctx, claims.Caller)
}
