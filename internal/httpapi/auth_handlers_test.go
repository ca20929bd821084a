package httpapi

import (
	"io"
	"net/http"
	"testing"
	"time"

	"tunewave.org/internal/auth"
)

func TestLoginSetsTokensAndCookies(t *testing.T) {
	env := newTestAPI(t)

	resp := env.post("/v1/auth/login", loginRequest{Username: "root", Password: "secret-admin"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var access, refresh *http.Cookie
	for _, c := range resp.Cookies() {
		switch c.Name {
		case accessCookieName:
			access = c
		case refreshCookieName:
			refresh = c
		}
	}
	if access == nil || refresh == nil {
		t.Fatalf("expected both auth cookies, got %v", resp.Cookies())
	}
	if !access.HttpOnly || access.SameSite != http.SameSiteLaxMode || access.Path != "/" {
		t.Fatalf("unexpected access cookie attributes: %+v", access)
	}
	if access.MaxAge != int(15*time.Minute/time.Second) {
		t.Fatalf("unexpected access cookie max-age: %d", access.MaxAge)
	}
	if !refresh.HttpOnly || refresh.Path != "/v1/auth" {
		t.Fatalf("unexpected refresh cookie attributes: %+v", refresh)
	}
	if refresh.MaxAge != int(720*time.Hour/time.Second) {
		t.Fatalf("unexpected refresh cookie max-age: %d", refresh.MaxAge)
	}

	var tokens tokenResponse
	decodeBody(t, resp, &tokens)
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected both tokens in body: %+v", tokens)
	}
	if tokens.AccessToken != access.Value || tokens.RefreshToken != refresh.Value {
		t.Fatal("cookie values must match body tokens")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestAPI(t)

	wrongPassword := env.post("/v1/auth/login", loginRequest{Username: "root", Password: "nope"}, nil)
	unknownUser := env.post("/v1/auth/login", loginRequest{Username: "ghost", Password: "nope"}, nil)

	if wrongPassword.StatusCode != http.StatusUnauthorized || unknownUser.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPassword.StatusCode, unknownUser.StatusCode)
	}

	var a, b map[string]any
	decodeBody(t, wrongPassword, &a)
	decodeBody(t, unknownUser, &b)
	if a["error"] != b["error"] {
		t.Fatalf("failure bodies differ: %v vs %v", a["error"], b["error"])
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	env := newTestAPI(t)

	resp := env.post("/v1/auth/login", loginRequest{Username: "root"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMeReturnsClaimsAndPermissions(t *testing.T) {
	env := newTestAPI(t)
	tokens := env.login("curator", "secret-editor")

	resp := env.get("/v1/auth/me", bearerHeader(tokens.AccessToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		ID          string   `json:"id"`
		Username    string   `json:"username"`
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	decodeBody(t, resp, &body)
	if body.Username != "curator" || body.Role != auth.RoleEditor {
		t.Fatalf("unexpected identity: %+v", body)
	}
	if len(body.Permissions) == 0 {
		t.Fatal("expected permissions in response")
	}
	for _, p := range body.Permissions {
		if p == auth.PermAccountsManage {
			t.Fatal("editor must not hold accounts.manage")
		}
	}
}

func TestRefreshAfterAccessExpiry(t *testing.T) {
	env := newTestAPI(t)
	tokens := env.login("root", "secret-admin")

	*env.clock = env.clock.Add(16 * time.Minute)

	resp := env.get("/v1/auth/me", bearerHeader(tokens.AccessToken))
	var body map[string]any
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after expiry, got %d", resp.StatusCode)
	}
	if body["error"] != "token expired" {
		t.Fatalf("expected expired message, got %v", body["error"])
	}

	refreshed := env.post("/v1/auth/refresh", refreshRequest{RefreshToken: tokens.RefreshToken}, nil)
	if refreshed.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on refresh, got %d", refreshed.StatusCode)
	}
	var fresh tokenResponse
	decodeBody(t, refreshed, &fresh)
	if fresh.AccessToken == "" {
		t.Fatal("expected fresh access token")
	}
	if fresh.RefreshToken != "" {
		t.Fatal("rotation disabled: refresh token must not be reissued")
	}

	retry := env.get("/v1/auth/me", bearerHeader(fresh.AccessToken))
	defer retry.Body.Close()
	if retry.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with refreshed access token, got %d", retry.StatusCode)
	}
}

func TestRefreshViaCookie(t *testing.T) {
	env := newTestAPI(t)
	tokens := env.login("root", "secret-admin")

	req, err := http.NewRequest(http.MethodPost, env.baseURL+"/v1/auth/refresh", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: tokens.RefreshToken})
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestSecondLoginRevokesEarlierRefreshToken(t *testing.T) {
	env := newTestAPI(t)
	first := env.login("root", "secret-admin")

	*env.clock = env.clock.Add(time.Second)
	env.login("root", "secret-admin")

	resp := env.post("/v1/auth/refresh", refreshRequest{RefreshToken: first.RefreshToken}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for superseded refresh token, got %d", resp.StatusCode)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	env := newTestAPI(t)
	tokens := env.login("root", "secret-admin")

	resp := env.post("/v1/auth/logout", nil, bearerHeader(tokens.AccessToken))
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if (c.Name == accessCookieName || c.Name == refreshCookieName) && c.MaxAge >= 0 {
			t.Fatalf("expected cookie %s to be expired", c.Name)
		}
	}

	refreshed := env.post("/v1/auth/refresh", refreshRequest{RefreshToken: tokens.RefreshToken}, nil)
	defer refreshed.Body.Close()
	if refreshed.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", refreshed.StatusCode)
	}
}

func TestRefreshRotationReplacesToken(t *testing.T) {
	env := newTestAPI(t, auth.WithRefreshRotation(true))
	tokens := env.login("root", "secret-admin")

	*env.clock = env.clock.Add(time.Second)

	resp := env.post("/v1/auth/refresh", refreshRequest{RefreshToken: tokens.RefreshToken}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var fresh tokenResponse
	decodeBody(t, resp, &fresh)
	if fresh.RefreshToken == "" || fresh.RefreshToken == tokens.RefreshToken {
		t.Fatalf("expected rotated refresh token, got %q", fresh.RefreshToken)
	}

	replay := env.post("/v1/auth/refresh", refreshRequest{RefreshToken: tokens.RefreshToken}, nil)
	defer replay.Body.Close()
	if replay.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 replaying rotated-out token, got %d", replay.StatusCode)
	}

	again := env.post("/v1/auth/refresh", refreshRequest{RefreshToken: fresh.RefreshToken}, nil)
	defer again.Body.Close()
	if again.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with rotated token, got %d", again.StatusCode)
	}
}
