// Package auth reads the caller identity that the upstream authentication
// proxy attaches to every request. The service never authenticates users
// itself; it trusts X-User-ID, X-User-Email and X-User-Name, so the listener
// must only be reachable through that proxy.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/paygate/pkg/logger"
	"github.com/dmitrymomot/paygate/pkg/subscription"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
)

// UserSyncer records users seen in requests so subscriptions can reference them.
type UserSyncer interface {
	EnsureUser(ctx context.Context, u subscription.User) error
}

type middlewareOptions struct {
	syncer UserSyncer
	log    *slog.Logger
}

type MiddlewareOption func(*middlewareOptions)

func WithUserSyncer(s UserSyncer) MiddlewareOption {
	return func(o *middlewareOptions) { o.syncer = s }
}

func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(o *middlewareOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// Middleware stores the proxy-supplied user in the request context. Requests
// without X-User-ID pass through anonymously.
func Middleware(opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := middlewareOptions{log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			user := &subscription.User{
				ID:    id,
				Email: strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
				Name:  strings.TrimSpace(r.Header.Get(HeaderUserName)),
			}
			if o.syncer != nil && user.Email != "" {
				if err := o.syncer.EnsureUser(r.Context(), *user); err != nil {
					o.log.WarnContext(r.Context(), "failed to sync user", logger.UserID(id), logger.Error(err))
				}
			}
			next.ServeHTTP(w, r.WithContext(SetUserToContext(r.Context(), user)))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserFromContext(r.Context()) == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
