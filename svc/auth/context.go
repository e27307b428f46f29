package auth

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/paygate/pkg/subscription"
)

type userContextKey struct{}

// SetUserToContext stores the authenticated user for the rest of the chain.
func SetUserToContext(ctx context.Context, user *subscription.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUserFromContext returns nil when no user was stored.
func GetUserFromContext(ctx context.Context) *subscription.User {
	user, _ := ctx.Value(userContextKey{}).(*subscription.User)
	return user
}

// LoggerExtractor adds "user_id" to records logged with an authenticated context.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if u := GetUserFromContext(ctx); u != nil {
			return slog.String("user_id", u.ID), true
		}
		return slog.Attr{}, false
	}
}
