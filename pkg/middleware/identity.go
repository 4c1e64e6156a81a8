package middleware

import (
	"context"
	"net/http"
	"strings"
)

// UserIDHeader carries the user id authenticated by the gateway in front of
// the engine. Requests without it are guests.
const UserIDHeader = "X-User-ID"

const userIDKey contextKey = "user_id"

// UserIdentity attaches the authenticated user id to the request context.
func UserIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := strings.TrimSpace(r.Header.Get(UserIDHeader)); id != "" {
				r = r.WithContext(context.WithValue(r.Context(), userIDKey, id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserID returns the id UserIdentity attached to ctx, or "" for a guest.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
