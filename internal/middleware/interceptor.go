// Package middleware composes request interceptors into chi middleware.
package middleware

import (
	"errors"
	"net/http"

	"github.com/BuzzLyutic/get-it-done-api/internal/auth"
	"github.com/BuzzLyutic/get-it-done-api/internal/service"
	"github.com/BuzzLyutic/get-it-done-api/pkg/respond"
)

// Interceptor inspects a request before the handler runs. It either returns
// the (possibly enriched) request to continue with, or an error that rejects it.
type Interceptor func(r *http.Request) (*http.Request, error)

// Chain runs interceptors in order and stops at the first rejection.
func Chain(interceptors ...Interceptor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, intercept := range interceptors {
				var err error
				if r, err = intercept(r); err != nil {
					reject(w, r, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		respond.Error(w, r, http.StatusUnauthorized, "unauthorized access")
	case errors.Is(err, service.ErrOwnership):
		respond.Error(w, r, http.StatusForbidden, "forbidden access")
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	default:
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
