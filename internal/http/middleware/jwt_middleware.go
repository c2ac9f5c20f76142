package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/diagnosis/consult-sessions/internal/http/response"
	"github.com/diagnosis/consult-sessions/pkg/auth"
	"github.com/diagnosis/consult-sessions/pkg/logger"
)

type contextKey string

const claimsKey contextKey = "claims"

// RequireJWT authenticates the request and enforces a role. Admins pass
// any role check.
func RequireJWT(secret, requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := auth.Parse(token, secret)
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			if requiredRole != "" && claims.Role != requiredRole && claims.Role != auth.RoleAdmin {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom returns the authenticated claims, or nil outside RequireJWT.
func ClaimsFrom(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
