package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dstanic/civium/internal/session"
	"github.com/google/uuid"
)

type contextKey string

const IdentityKey contextKey = "identity"

// Auth authenticates REST requests with the same tokens the WebSocket
// handshake uses: an Authorization bearer token if present, otherwise the
// session cookie (fragment-aware).
func Auth(resolver *session.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var identity *session.Identity
			var err error

			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				identity, err = resolver.VerifyToken(strings.TrimPrefix(header, "Bearer "))
			} else {
				identity, err = resolver.Resolve(r.Header.Get("Cookie"))
			}
			if err != nil {
				http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"Missing or invalid token"}}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, *identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity extracts the authenticated identity from request context.
func GetIdentity(ctx context.Context) session.Identity {
	return ctx.Value(IdentityKey).(session.Identity)
}

// GetUserID extracts the authenticated user ID from request context.
func GetUserID(ctx context.Context) uuid.UUID {
	return GetIdentity(ctx).ID
}
