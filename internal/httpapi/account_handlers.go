package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tunewave.org/internal/audit"
	"tunewave.org/internal/auth"
)

type createAccountRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

func (a *API) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, allOf, auth.PermAccountsManage) {
		return
	}
	switch r.Method {
	case http.MethodPost:
		a.createAccount(w, r)
	case http.MethodGet:
		a.listAccounts(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	account, err := a.auth.CreateAccount(r.Context(), req.Username, req.DisplayName, req.Password, req.Role)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "accounts.create", map[string]any{
		"account_id":   account.ID,
		"username":     account.Username,
		"account_role": account.Role,
	})
	w.Header().Set("Location", "/v1/accounts/"+account.ID)
	writeJSON(w, http.StatusCreated, account)
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.auth.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

// handleAccountScoped serves /v1/accounts/{id} and its role/password
// sub-resources.
func (a *API) handleAccountScoped(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, allOf, auth.PermAccountsManage) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getAccount(w, r, id)
	case len(parts) == 2 && parts[1] == "role":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.updateRole(w, r, id)
	case len(parts) == 2 && parts[1] == "password":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.updatePassword(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "not found")
	}
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request, id string) {
	account, err := a.auth.Account(r.Context(), id)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) updateRole(w http.ResponseWriter, r *http.Request, id string) {
	var req updateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.UpdateRole(r.Context(), id, req.Role); err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "accounts.role.update", map[string]any{
		"account_id": id,
		"new_role":   strings.ToLower(strings.TrimSpace(req.Role)),
	})
	w.WriteHeader(http.StatusNoContent)
}

type updatePasswordRequest struct {
	Password string `json:"password"`
}

func (a *API) updatePassword(w http.ResponseWriter, r *http.Request, id string) {
	var req updatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.UpdatePassword(r.Context(), id, req.Password); err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "accounts.password.update", map[string]any{
		"account_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleAuthError maps domain errors to HTTP status codes.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "account not found")
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "username already taken")
	case errors.Is(err, auth.ErrPermissionDenied):
		forbidden(w, r, "insufficient permissions")
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired):
		unauthorized(w, r, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
