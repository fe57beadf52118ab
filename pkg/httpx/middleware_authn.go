package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/medrec/pkg/cryptox"
	"github.com/aussiebroadwan/medrec/pkg/slogx"
)

// AuthenticateFunc resolves a bearer token and returns a context carrying
// whatever the caller needs downstream (usually the resolved principal).
type AuthenticateFunc func(ctx context.Context, token string) (context.Context, error)

// AuthorizeFunc decides whether the authenticated request may proceed.
type AuthorizeFunc func(ctx context.Context) error

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthnMiddleware authenticates the bearer token. Every failure produces the
// same 401 so callers cannot tell an unknown user from a bad signature; the
// reason is logged against the token fingerprint instead.
func AuthnMiddleware(authenticate AuthenticateFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			authCtx, err := authenticate(ctx, raw)
			if err != nil {
				log.Warn("authentication failed",
					"token_fp", cryptox.FingerprintToken(raw),
					"err", err,
				)
				writeBearerError(w, "Could not validate credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(authCtx))
		})
	}
}

// AuthzMiddleware runs check after authentication and answers 403 when it
// fails.
func AuthzMiddleware(check AuthorizeFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := check(r.Context()); err != nil {
				slogx.FromContext(r.Context()).Info("authorization denied", "err", err)
				WriteError(w, http.StatusForbidden, "forbidden", "Not enough permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}
