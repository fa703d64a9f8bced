package middleware

import (
	"fmt"
	"net/http"

	"github.com/BuzzLyutic/get-it-done-api/internal/auth"
	"github.com/BuzzLyutic/get-it-done-api/internal/service"
)

// TokenVerifier проверяет bearer-токен
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate requires a valid bearer token and stores its claims in the
// request context.
func Authenticate(v TokenVerifier) Interceptor {
	return func(r *http.Request) (*http.Request, error) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			return r, err
		}
		claims, err := v.Verify(token)
		if err != nil {
			return r, err
		}
		return r.WithContext(auth.WithClaims(r.Context(), claims)), nil
	}
}

// OwnerFromQuery requires the query parameter param to be present and equal
// to the authenticated email. Must run after Authenticate.
func OwnerFromQuery(param string) Interceptor {
	return func(r *http.Request) (*http.Request, error) {
		email := r.URL.Query().Get(param)
		if email == "" {
			return r, fmt.Errorf("%w: email query parameter is required", service.ErrValidation)
		}
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			return r, auth.ErrMissingToken
		}
		if claims.Email != email {
			return r, service.ErrOwnership
		}
		return r, nil
	}
}
