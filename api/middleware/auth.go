package middleware

import (
	"net/http"
	"strings"

	"github.com/flintflours/storefront-backend/api/responses"
	"github.com/flintflours/storefront-backend/pkg/auth"
	"github.com/flintflours/storefront-backend/pkg/config"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/flintflours/storefront-backend/pkg/logger"
)

// Auth validates the identity provider's bearer token and seeds the request
// context with the shopper identity. Requests without credentials are rejected.
func Auth(cfg config.AuthConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, true)
}

// OptionalAuth attaches the identity when a token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func OptionalAuth(cfg config.AuthConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, false)
}

func authenticate(cfg config.AuthConfig, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if required {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			identity, err := auth.ParseIdentity(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			if logg != nil {
				ctx = logg.WithUserID(ctx, identity.UserID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
