package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/secureauthx/secureauthx"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by Guard or RequireAdmin.
func IdentityFromContext(ctx context.Context) (*secureauthx.IdentityView, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*secureauthx.IdentityView)
	return id, ok
}

// Validator is the subset of *secureauthx.Engine used by the guards.
type Validator interface {
	ValidateAccess(ctx context.Context, token string) (*secureauthx.IdentityView, error)
	RequireAdmin(ctx context.Context, token string) (*secureauthx.IdentityView, error)
}

// Guard rejects requests without a valid bearer access token with 401.
func Guard(v Validator) func(http.Handler) http.Handler {
	return guard(v, false)
}

// RequireAdmin is Guard plus a 403 for non-admin identities.
func RequireAdmin(v Validator) func(http.Handler) http.Handler {
	return guard(v, true)
}

func guard(v Validator, admin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			check := v.ValidateAccess
			if admin {
				check = v.RequireAdmin
			}
			id, err := check(r.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, secureauthx.ErrAdminRequired):
				http.Error(w, "admin only", http.StatusForbidden)
				return
			default:
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) <= len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
