package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type ctxKey string

const (
	sessionCookieName = "session"
	acteurCtxKey      = ctxKey("acteurID")
	societeCtxKey     = ctxKey("societeID")
)

// SessionVerifier is an optional callback to validate that a session's user
// still exists and belongs to the claimed société. Set it during app
// bootstrap via SetSessionVerifier. If nil, no extra verification is done.
type SessionVerifier func(ctx context.Context, acteurID, societeID uint) bool

var verifier SessionVerifier

// SetSessionVerifier configures the global verifier used by RequireAuth.
func SetSessionVerifier(v SessionVerifier) { verifier = v }

// Secret returns SESSION_SECRET or a default dev value.
func Secret() string {
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "devsessionsecret"
}

func payload(acteurID, societeID uint) string {
	return strconv.FormatUint(uint64(acteurID), 10) + ":" + strconv.FormatUint(uint64(societeID), 10)
}

func sign(p string) string {
	mac := hmac.New(sha256.New, []byte(Secret()))
	mac.Write([]byte(p))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// CreateSession sets a signed cookie carrying the acting user and their
// société.
func CreateSession(w http.ResponseWriter, acteurID, societeID uint) {
	p := payload(acteurID, societeID)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    p + "." + sign(p),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(14 * 24 * time.Hour),
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseSession validates the cookie and returns (acteurID, societeID).
func ParseSession(r *http.Request) (uint, uint, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return 0, 0, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 2 {
		return 0, 0, false
	}
	p, sig := parts[0], parts[1]
	if !hmac.Equal([]byte(sig), []byte(sign(p))) {
		return 0, 0, false
	}
	ids := strings.Split(p, ":")
	if len(ids) != 2 {
		return 0, 0, false
	}
	acteur, err := strconv.ParseUint(ids[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	societe, err := strconv.ParseUint(ids[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return uint(acteur), uint(societe), true
}

// WithSession stores the actor and société ids in context.
func WithSession(ctx context.Context, acteurID, societeID uint) context.Context {
	ctx = context.WithValue(ctx, acteurCtxKey, acteurID)
	return context.WithValue(ctx, societeCtxKey, societeID)
}

// ActeurFromContext extracts the acting user id.
func ActeurFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(acteurCtxKey).(uint)
	return id, ok
}

// SocieteFromContext extracts the acting user's société id.
func SocieteFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(societeCtxKey).(uint)
	return id, ok
}

// Middleware attaches the session identity to the request context if present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if acteur, societe, ok := ParseSession(r); ok {
			r = r.WithContext(WithSession(r.Context(), acteur, societe))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects unauthenticated requests with 401 JSON. The API is
// consumed by the React admin only, so there is no HTML redirect path.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acteur, ok := ActeurFromContext(r.Context())
		societe, okSoc := SocieteFromContext(r.Context())
		if !ok || !okSoc {
			unauthorized(w)
			return
		}
		if verifier != nil && !verifier(r.Context(), acteur, societe) {
			// Session refers to a removed user: clear and reject.
			ClearSession(w)
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprint(w, `{"error":"unauthorized"}`)
}
