package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"tunewave.org/internal/audit"
	"tunewave.org/internal/auth"
	"tunewave.org/internal/obs"
)

const (
	accessCookieName  = "admin_token"
	refreshCookieName = "refresh_token"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitzero"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	pair, account, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			obs.CountAuthFailure("bad_credentials")
			audit.LogEvent(r.Context(), "auth.login.failure", map[string]any{
				"username": strings.ToLower(strings.TrimSpace(req.Username)),
			})
			unauthorized(w, r, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}

	audit.LogEvent(r.Context(), "auth.login.success", map[string]any{
		"username": account.Username,
		"role":     account.Role,
	})
	a.setAccessCookie(w, pair.AccessToken)
	a.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresAt:        pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token := refreshTokenFromRequest(w, r)
	if token == "" {
		unauthorized(w, r, "missing refresh token")
		return
	}

	pair, account, err := a.auth.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			obs.CountAuthFailure("refresh_expired")
			unauthorized(w, r, "token expired")
		case errors.Is(err, auth.ErrInvalidToken):
			obs.CountAuthFailure("refresh_invalid")
			unauthorized(w, r, "invalid token")
		default:
			writeError(w, r, http.StatusInternalServerError, "refresh failed")
		}
		return
	}

	audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"username": account.Username,
	})
	a.setAccessCookie(w, pair.AccessToken)
	resp := tokenResponse{
		AccessToken: pair.AccessToken,
		ExpiresAt:   pair.AccessExpiresAt,
	}
	if pair.RefreshToken != "" {
		a.setRefreshCookie(w, pair.RefreshToken)
		resp.RefreshToken = pair.RefreshToken
		resp.RefreshExpiresAt = pair.RefreshExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "missing bearer token")
		return
	}
	if err := a.auth.Logout(r.Context(), claims.UserID); err != nil && !errors.Is(err, auth.ErrNotFound) {
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}
	audit.LogEvent(r.Context(), "auth.logout", nil)
	a.clearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "missing bearer token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          claims.UserID,
		"username":    claims.Username,
		"role":        claims.Role,
		"permissions": auth.RolePermissions(claims.Role),
	})
}

func refreshTokenFromRequest(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token
		}
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err == nil {
		return strings.TrimSpace(req.RefreshToken)
	}
	return ""
}

func (a *API) setAccessCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.auth.Tokens().AccessTTL() / time.Second),
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/v1/auth",
		MaxAge:   int(a.auth.Tokens().RefreshTTL() / time.Second),
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
