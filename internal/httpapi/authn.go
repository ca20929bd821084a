package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tunewave.org/internal/auth"
	"tunewave.org/internal/obs"
)

const (
	serviceName = "tunewave-api"

	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

// withAuth is the authorization gate's authentication half: it verifies
// the access token on every non-public request and attaches the claims to
// the request context. Permission checks happen per handler via
// ensurePermissions. The decision is re-made for every request; nothing
// is cached beyond what the token itself encodes.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := bearerOrCookieToken(r)
		if err != nil {
			obs.CountAuthFailure("missing_token")
			unauthorized(w, r, err.Error())
			return
		}

		claims, err := a.auth.Authenticate(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				obs.CountAuthFailure("expired")
				unauthorized(w, r, "token expired")
			case errors.Is(err, auth.ErrInvalidToken):
				obs.CountAuthFailure("invalid_token")
				unauthorized(w, r, "invalid token")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithClaims(r.Context(), claims)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// permissionMode selects how a list of required permissions combines.
type permissionMode int

const (
	anyOf permissionMode = iota
	allOf
)

// ensurePermissions is the authorization gate's permission half. It reads
// the verified claims from context and consults the static role mapping.
// Returns false after writing 401/403 when the request must not proceed.
func (a *API) ensurePermissions(w http.ResponseWriter, r *http.Request, mode permissionMode, perms ...string) bool {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		obs.CountAuthFailure("missing_token")
		unauthorized(w, r, "missing bearer token")
		return false
	}
	var allowed bool
	switch mode {
	case anyOf:
		allowed = auth.RoleHasAny(claims.Role, perms...)
	case allOf:
		allowed = auth.RoleHasAll(claims.Role, perms...)
	}
	if !allowed {
		obs.CountAuthFailure("forbidden")
		forbidden(w, r, "insufficient permissions")
		return false
	}
	return true
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="`+serviceName+`"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}

func forbidden(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="`+serviceName+`" error="insufficient_scope"`)
	writeError(w, r, http.StatusForbidden, msg)
}

// bearerOrCookieToken extracts the access token from the Authorization
// header, falling back to the admin cookie the dashboard rides on.
func bearerOrCookieToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header != "" {
		if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
			return "", errors.New("invalid authorization scheme")
		}
		token := strings.TrimSpace(header[len(bearer):])
		if token == "" {
			return "", errors.New("missing bearer token")
		}
		return token, nil
	}
	if cookie, err := r.Cookie(accessCookieName); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token, nil
		}
	}
	return "", errors.New("missing bearer token")
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
