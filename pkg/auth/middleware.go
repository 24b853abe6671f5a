package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const SubjectContextKey = contextKey("subject")

// TokenCookie is the cookie consulted when the request carries no Authorization header.
const TokenCookie = "access_token"

// Middleware verifies the JWT found in the Authorization header, or in the
// access_token cookie for browser form posts, and stores its subject in the context.
// Requests without a valid token are answered with 401.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractToken(w, r)
			if !ok {
				return
			}

			token, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				http.Error(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			subject, ok := token.Subject()
			if !ok {
				http.Error(w, "no claim `sub`", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), SubjectContextKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
			return c.Value, true
		}
		http.Error(w, "Authorization header is required", http.StatusUnauthorized)
		return "", false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		http.Error(w, "Bearer token is required", http.StatusUnauthorized)
		return "", false
	}
	return tokenString, true
}

// ContextSubject retrieves the authenticated subject from the context.
func ContextSubject(ctx context.Context) string {
	if value, ok := ctx.Value(SubjectContextKey).(string); ok {
		return value
	}
	return ""
}
