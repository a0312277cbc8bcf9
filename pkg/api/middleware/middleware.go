package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	authproviders "github.com/cbodonnell/platespotter/pkg/auth/providers"
	"github.com/cbodonnell/platespotter/pkg/log"
	"github.com/cbodonnell/platespotter/pkg/session"
	"github.com/google/uuid"
)

type ContextKey int

const (
	// IdentityContextKey is the key used to store the caller's Identity in the request context
	IdentityContextKey ContextKey = iota
)

const (
	// GuestCookieName holds the id of an anonymous visitor
	GuestCookieName = "platespotter_guest"
	// AccessTokenParam carries the bearer token where headers cannot be set
	AccessTokenParam = "access_token"

	guestCookieMaxAge = 30 * 24 * 60 * 60
)

// Identity is the caller of a request. Exactly one of OwnerID and GuestID is set.
type Identity struct {
	OwnerID string
	GuestID string
}

// SessionKey returns the key of the caller's session in the registry.
func (i Identity) SessionKey() string {
	if i.OwnerID != "" {
		return session.OwnerKey(i.OwnerID)
	}
	return session.GuestKey(i.GuestID)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(Identity)
	return identity, ok
}

// NewIdentityMiddleware resolves the caller. A bearer token is verified with
// authProvider and identifies a signed-in owner. Requests without a token are
// guests, recognized by a cookie that is issued on first contact.
func NewIdentityMiddleware(authProvider authproviders.AuthProvider) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearerToken, err := parseBearerToken(r)
			if err != nil {
				log.Debug("failed to parse bearer token: %v", err)
				http.Error(w, "failed to parse bearer token", http.StatusUnauthorized)
				return
			}

			var identity Identity
			if bearerToken != "" {
				if authProvider == nil {
					http.Error(w, "sign-in is not enabled", http.StatusUnauthorized)
					return
				}
				token, err := authProvider.VerifyToken(r.Context(), bearerToken)
				if err != nil {
					log.Debug("failed to verify ID token: %v", err)
					http.Error(w, "failed to verify ID token", http.StatusUnauthorized)
					return
				}
				identity.OwnerID = token.UID
			} else {
				identity.GuestID = guestID(w, r)
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func guestID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(GuestCookieName); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   guestCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// parseBearerToken parses the bearer token from the Authorization header,
// falling back to the access_token query parameter. An empty token with a
// nil error means the request is anonymous.
func parseBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return r.URL.Query().Get(AccessTokenParam), nil
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}

// NewCORSMiddleware allows browsers on allowOrigin to call the API.
func NewCORSMiddleware(allowOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs every request at trace level.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Trace("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
