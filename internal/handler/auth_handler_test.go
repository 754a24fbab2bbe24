package handler

import (
	"context"
	"net/http"
	"net/url"
	"testing"
)

func TestLoginRejectsInvalidCredentials(t *testing.T) {
	env := newHandlerEnv(t, nil)

	rr := env.postForm("/login", url.Values{"email": {testEmail}, "password": {"wrong"}})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	name, data := env.render.last()
	if name != "login.html" {
		t.Fatalf("expected login.html, got %q", name)
	}
	if data["error"] != "invalid login credentials" {
		t.Fatalf("expected raw auth error, got %v", data["error"])
	}
	if data["email"] != testEmail {
		t.Fatalf("expected email to be kept, got %v", data["email"])
	}
}

func TestLoginPageRedirectsWhenSignedIn(t *testing.T) {
	env := newHandlerEnv(t, nil)
	env.login()

	rr := env.get("/login")
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect to dashboard, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestLogoutEndsSession(t *testing.T) {
	env := newHandlerEnv(t, nil)
	env.login()

	rr := env.postForm("/logout", nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to login, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	if rr := env.get("/dashboard"); rr.Code != http.StatusFound {
		t.Fatalf("expected guard redirect after logout, got %d", rr.Code)
	}
}

func TestGuardRejectsRevokedSession(t *testing.T) {
	env := newHandlerEnv(t, nil)
	env.login()

	other, err := env.auth.SignInWithPassword(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("failed to sign in: %v", err)
	}
	if err := env.auth.SignOutAll(context.Background(), other.UserID); err != nil {
		t.Fatalf("failed to sign out everywhere: %v", err)
	}

	rr := env.get("/portfolios")
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to login, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestGlobalLogoutRevokesOtherSessions(t *testing.T) {
	env := newHandlerEnv(t, nil)
	env.login()

	other, err := env.auth.SignInWithPassword(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("failed to sign in: %v", err)
	}

	env.postForm("/logout", url.Values{"scope": {"global"}})

	if _, err := env.auth.GetSession(context.Background(), other.Token); err == nil {
		t.Fatal("expected other session to be revoked")
	}
}
