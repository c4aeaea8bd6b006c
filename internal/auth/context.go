package auth

import (
	"context"
	"net/http"
)

type contextKey string

const userIDContextKey contextKey = "inkwell-user-id"

func SetUserIDToContext(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext returns the id of the logged in user, as resolved by the
// auth middleware. The bool is false on unauthenticated requests.
func UserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int)
	return userID, ok
}

// TokenFromRequest reads the session token from the token header, falling
// back to the session cookie for browser clients.
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get(TokenHeader); token != "" {
		return token
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
