package httpapi

import (
	"net/http"
	"testing"

	"tunewave.org/internal/auth"
)

func TestCreateAccountLifecycle(t *testing.T) {
	env := newTestAPI(t)
	admin := env.login("root", "secret-admin")

	created := env.post("/v1/accounts", createAccountRequest{
		Username:    "NewHire",
		DisplayName: "New Hire",
		Password:    "first-pass",
		Role:        auth.RoleEditor,
	}, bearerHeader(admin.AccessToken))
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", created.StatusCode)
	}
	var account struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	location := created.Header.Get("Location")
	decodeBody(t, created, &account)
	if account.Username != "newhire" {
		t.Fatalf("expected lowercased username, got %q", account.Username)
	}
	if location != "/v1/accounts/"+account.ID {
		t.Fatalf("unexpected Location header: %q", location)
	}

	fetched := env.get("/v1/accounts/"+account.ID, bearerHeader(admin.AccessToken))
	if fetched.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", fetched.StatusCode)
	}
	var got struct {
		Role string `json:"role"`
	}
	decodeBody(t, fetched, &got)
	if got.Role != auth.RoleEditor {
		t.Fatalf("expected editor role, got %q", got.Role)
	}

	// The new account can sign in right away.
	env.login("newhire", "first-pass")
}

func TestCreateAccountRejectsDuplicateUsername(t *testing.T) {
	env := newTestAPI(t)
	admin := env.login("root", "secret-admin")

	resp := env.post("/v1/accounts", createAccountRequest{
		Username: "root",
		Password: "whatever",
		Role:     auth.RoleViewer,
	}, bearerHeader(admin.AccessToken))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCreateAccountRejectsUnknownRole(t *testing.T) {
	env := newTestAPI(t)
	admin := env.login("root", "secret-admin")

	resp := env.post("/v1/accounts", createAccountRequest{
		Username: "odd",
		Password: "whatever",
		Role:     "superuser",
	}, bearerHeader(admin.AccessToken))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUpdateRoleTakesEffectOnNextLogin(t *testing.T) {
	env := newTestAPI(t)
	admin := env.login("root", "secret-admin")

	viewer, err := env.store.FindByUsername(t.Context(), "watcher")
	if err != nil {
		t.Fatalf("find watcher: %v", err)
	}

	resp := env.put("/v1/accounts/"+viewer.ID+"/role", updateRoleRequest{Role: auth.RoleEditor}, bearerHeader(admin.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	promoted := env.login("watcher", "secret-viewer")
	me := env.get("/v1/auth/me", bearerHeader(promoted.AccessToken))
	var body struct {
		Role string `json:"role"`
	}
	decodeBody(t, me, &body)
	if body.Role != auth.RoleEditor {
		t.Fatalf("expected promoted role on fresh token, got %q", body.Role)
	}
}

func TestUpdateRoleUnknownAccount(t *testing.T) {
	env := newTestAPI(t)
	admin := env.login("root", "secret-admin")

	resp := env.put("/v1/accounts/missing/role", updateRoleRequest{Role: auth.RoleViewer}, bearerHeader(admin.AccessToken))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdatePasswordRevokesRefreshToken(t *testing.T) {
	env := newTestAPI(t)
	admin := env.login("root", "secret-admin")
	victim := env.login("curator", "secret-editor")

	editor, err := env.store.FindByUsername(t.Context(), "curator")
	if err != nil {
		t.Fatalf("find curator: %v", err)
	}

	resp := env.put("/v1/accounts/"+editor.ID+"/password", updatePasswordRequest{Password: "rotated-pass"}, bearerHeader(admin.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	refreshed := env.post("/v1/auth/refresh", refreshRequest{RefreshToken: victim.RefreshToken}, nil)
	defer refreshed.Body.Close()
	if refreshed.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after password change, got %d", refreshed.StatusCode)
	}

	env.login("curator", "rotated-pass")
}
