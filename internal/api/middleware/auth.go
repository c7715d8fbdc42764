package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/example/plantshop-checkout/internal/auth"
	"github.com/example/plantshop-checkout/internal/session"
)

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ExtractToken extracts the session token from cookie or Authorization
// header
func ExtractToken(r *http.Request) string {
	// Try cookie first (for browser)
	if cookie, err := r.Cookie("session_token"); err == nil {
		return cookie.Value
	}
	// Fall back to Authorization header (for API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

type contextKey string

const (
	SessionContextKey contextKey = "session"
)

// Auth validates session tokens and puts the flow identity on the
// request context. Requests carrying the legacy plain userId/email
// query fields are still accepted as a compatibility shim for the old
// storage-based scheme, with a warning; new clients must send a bearer
// token.
func Auth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString := ExtractToken(r); tokenString != "" {
				user, err := jwtService.ValidateSessionToken(tokenString)
				if err != nil {
					respondError(w, "invalid token", http.StatusUnauthorized)
					return
				}
				ctx := context.WithValue(r.Context(), SessionContextKey, user)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// Legacy compatibility shim: plaintext identifiers in the
			// query string. A known weakness of the old scheme, kept
			// only so unmigrated clients keep working.
			q := r.URL.Query()
			legacy := session.Context{UserID: q.Get("userId"), Email: q.Get("email")}
			if legacy.Valid() {
				log.Printf("[API] Legacy credential fields used for %s %s; migrate to bearer tokens", r.Method, r.URL.Path)
				ctx := context.WithValue(r.Context(), SessionContextKey, legacy)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			respondError(w, "login required", http.StatusUnauthorized)
		})
	}
}

// GetSession retrieves the flow identity from the request context.
func GetSession(ctx context.Context) (session.Context, bool) {
	user, ok := ctx.Value(SessionContextKey).(session.Context)
	return user, ok
}
