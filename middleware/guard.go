package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
)

type accessResultContextKey struct{}

// AccessFromContext returns the access result stored by [Guard] or [Optional].
func AccessFromContext(ctx context.Context) (*authcore.AccessResult, bool) {
	res, ok := ctx.Value(accessResultContextKey{}).(*authcore.AccessResult)
	return res, ok
}

// Guard rejects requests without a valid bearer access token with 401.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w, "invalid_token")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "")
				return
			}

			res, err := engine.ValidateAccess(r.Context(), token)
			if err != nil {
				unauthorized(w, "invalid_token")
				return
			}

			ctx := context.WithValue(r.Context(), accessResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional behaves like [Guard] for valid tokens but passes requests with a
// missing or invalid token through without an access result.
func Optional(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if ok && engine != nil {
				if res, err := engine.ValidateAccess(r.Context(), token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), accessResultContextKey{}, res))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, code string) {
	challenge := "Bearer"
	if code != "" {
		challenge += ` error="` + code + `"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
