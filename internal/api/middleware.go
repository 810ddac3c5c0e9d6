// Package api implements the smart-notes REST API using chi.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeJWT      = "jwt"
)

// UserHeader selects the acting user when authentication is disabled.
const UserHeader = "X-User-ID"

// AuthConfig controls how the middleware identifies the caller.
//
//   - "disabled": the X-User-ID header, or DefaultUser, is trusted as-is.
//   - "jwt": an HS256 Bearer token signed with Secret; sub is the user id.
type AuthConfig struct {
	Mode        string
	Secret      string
	DefaultUser string
}

// User is the authenticated caller.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

type userKey struct{}

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the user stored by the auth middleware.
func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey{}).(User)
	return u, ok
}

// OwnerID returns the authenticated user id of r, or "".
func OwnerID(r *http.Request) string {
	u, _ := UserFrom(r.Context())
	return u.ID
}

// AuthMiddleware returns middleware that puts the caller's User in the request context.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				u   User
				err error
			)
			if cfg.Mode == AuthModeJWT {
				u, err = parseBearer(r.Header.Get("Authorization"), cfg.Secret)
			} else {
				u = User{ID: r.Header.Get(UserHeader)}
				if u.ID == "" {
					u.ID = cfg.DefaultUser
				}
			}
			if err != nil || u.ID == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func parseBearer(header, secret string) (User, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return User{}, errors.New("missing bearer token")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return User{}, err
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return User{}, err
	}
	email, _ := claims["email"].(string)
	return User{ID: sub, Email: email}, nil
}
