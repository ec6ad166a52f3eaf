package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSessionRoundTrip(t *testing.T) {
	w := httptest.NewRecorder()
	CreateSession(w, 7, 3)
	res := w.Result()
	cookies := res.Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie got %d", len(cookies))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	acteur, societe, ok := ParseSession(req)
	if !ok {
		t.Fatalf("session should parse")
	}
	if acteur != 7 || societe != 3 {
		t.Fatalf("got acteur=%d societe=%d", acteur, societe)
	}
}

func TestSessionSignatureInvalide(t *testing.T) {
	w := httptest.NewRecorder()
	CreateSession(w, 7, 3)
	c := w.Result().Cookies()[0]

	// Swap the société id without re-signing.
	c.Value = strings.Replace(c.Value, "7:3.", "7:99.", 1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	if _, _, ok := ParseSession(req); ok {
		t.Fatalf("tampered cookie should not parse")
	}
}

func TestSessionAbsente(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, _, ok := ParseSession(req); ok {
		t.Fatalf("no cookie should mean no session")
	}
}

func TestRequireAuthSansSession(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/conventions", nil)
	w := httptest.NewRecorder()
	RequireAuth(next).ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestMiddlewarePuisRequireAuth(t *testing.T) {
	wCookie := httptest.NewRecorder()
	CreateSession(wCookie, 7, 3)

	var gotActeur, gotSociete uint
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActeur, _ = ActeurFromContext(r.Context())
		gotSociete, _ = SocieteFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/conventions", nil)
	req.AddCookie(wCookie.Result().Cookies()[0])
	w := httptest.NewRecorder()
	Middleware(RequireAuth(next)).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if gotActeur != 7 || gotSociete != 3 {
		t.Fatalf("context: acteur=%d societe=%d", gotActeur, gotSociete)
	}
}

func TestSessionVerifierRejette(t *testing.T) {
	SetSessionVerifier(func(_ context.Context, _, _ uint) bool { return false })
	t.Cleanup(func() { SetSessionVerifier(nil) })

	wCookie := httptest.NewRecorder()
	CreateSession(wCookie, 7, 3)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/conventions", nil)
	req.AddCookie(wCookie.Result().Cookies()[0])
	w := httptest.NewRecorder()
	Middleware(RequireAuth(next)).ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}
