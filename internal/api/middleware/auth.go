package middleware

import (
	"context"
	"net/http"

	apiContext "brokerhub/internal/api/context"
	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/auth"
)

type AuthMiddleware struct {
	authn *auth.Authenticator
}

func NewAuthMiddleware(authn *auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authn: authn}
}

// Handle requires a full authorization context: a verified identity with
// an active membership.
func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, err := m.authn.Authenticate(r.Context(), r.Header)
		if err != nil {
			errors.Write(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Auth, ac)
		next(w, r.WithContext(ctx))
	}
}

// Identity requires a verified bearer token but no membership. Used by
// signup and invitation redemption.
func (m *AuthMiddleware) Identity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := m.authn.AuthenticateIdentity(r.Header)
		if err != nil {
			errors.Write(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Identity, id)
		next(w, r.WithContext(ctx))
	}
}

// Optional attaches a context when one can be built and never rejects.
func (m *AuthMiddleware) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ac := m.authn.AuthenticateOptional(r.Context(), r.Header); ac != nil {
			r = r.WithContext(context.WithValue(r.Context(), apiContext.Auth, ac))
		}
		next(w, r)
	}
}
