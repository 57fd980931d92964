package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/veloro/possync/internal/services"
)

type contextKey string

const identityKey contextKey = "identity"

// Authenticator validates the bearer token and stores the caller's identity
// in the request context.
func Authenticator(authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "Missing or invalid authorization header.", nil)
				return
			}

			claims, err := authService.VerifyToken(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid or expired token.", nil)
				return
			}

			identity := &services.Identity{
				UserID:   claims.UserID,
				BranchID: claims.BranchID,
				Role:     claims.Role,
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// identityFrom returns the authenticated identity stored by Authenticator.
func identityFrom(ctx context.Context) *services.Identity {
	identity, _ := ctx.Value(identityKey).(*services.Identity)
	return identity
}
