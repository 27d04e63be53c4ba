package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/duohub-io/duohub/internal/auth"
)

type contextKey string

const (
	claimsContextKey contextKey = "claims"
	tokenContextKey  contextKey = "token"
)

// AuthMiddleware validates the bearer token and rejects denylisted tokens.
func (api *Api) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}
		tokenStr := parts[1]

		claims, err := api.tokens.ValidateToken(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		denied, err := api.revoked.IsDenylisted(r.Context(), tokenStr)
		if err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if denied {
			http.Error(w, "token revoked", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		ctx = context.WithValue(ctx, tokenContextKey, tokenStr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFromContext returns the validated claims set by AuthMiddleware.
func claimsFromContext(ctx context.Context) *auth.TokenClaims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.TokenClaims)
	return claims
}

// tokenFromContext returns the raw bearer token set by AuthMiddleware.
func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}
