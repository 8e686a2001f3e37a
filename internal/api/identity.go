package api

import (
	"context"
	"net/http"
	"strings"

	"beachbookings/internal/config"
	"beachbookings/internal/domain"
	"beachbookings/internal/models"

	"github.com/rs/zerolog"
)

// AuthStatus is the state of the caller's session as seen by the auth proxy.
type AuthStatus string

const (
	AuthLoading         AuthStatus = "loading"
	AuthAuthenticated   AuthStatus = "authenticated"
	AuthUnauthenticated AuthStatus = "unauthenticated"
)

// IdentityProvider tells who is calling. The identity is nil unless the status is authenticated.
type IdentityProvider interface {
	Identify(r *http.Request) (*models.Identity, AuthStatus)
}

// HeaderIdentity trusts the identity headers set by the auth proxy in front of the API.
// A user id without an email means the proxy has not finished resolving the session.
type HeaderIdentity struct {
	userIDHeader string
	emailHeader  string
	nameHeader   string
}

func NewHeaderIdentity(cfg config.APIIdentityConfig) *HeaderIdentity {
	return &HeaderIdentity{
		userIDHeader: cfg.HeaderUserID,
		emailHeader:  cfg.HeaderEmail,
		nameHeader:   cfg.HeaderName,
	}
}

func (h *HeaderIdentity) Identify(r *http.Request) (*models.Identity, AuthStatus) {
	userID := strings.TrimSpace(r.Header.Get(h.userIDHeader))
	if userID == "" {
		return nil, AuthUnauthenticated
	}
	email := strings.TrimSpace(r.Header.Get(h.emailHeader))
	if email == "" {
		return nil, AuthLoading
	}
	return &models.Identity{
		UserID: userID,
		Email:  email,
		Name:   strings.TrimSpace(r.Header.Get(h.nameHeader)),
	}, AuthAuthenticated
}

type ctxKey int

const (
	userCtxKey ctxKey = iota
	authStatusCtxKey
	routeCtxKey
)

// withUser resolves the caller into a stored user before the handlers run.
// Anonymous and loading callers pass through without a user.
func withUser(provider IdentityProvider, users domain.UserService, logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if provider == nil || users == nil {
			next.ServeHTTP(w, r)
			return
		}

		identity, authStatus := provider.Identify(r)
		ctx := context.WithValue(r.Context(), authStatusCtxKey, authStatus)

		if authStatus == AuthAuthenticated {
			user, err := users.Resolve(ctx, identity)
			if err != nil {
				logger.Error().Err(err).Str("user_id", identity.UserID).Msg("resolve user")
				writeError(w, http.StatusInternalServerError, "failed to resolve user")
				return
			}
			ctx = context.WithValue(ctx, userCtxKey, user)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userCtxKey).(*models.User)
	return user
}

func authStatusFrom(ctx context.Context) AuthStatus {
	if s, ok := ctx.Value(authStatusCtxKey).(AuthStatus); ok {
		return s
	}
	return AuthUnauthenticated
}
