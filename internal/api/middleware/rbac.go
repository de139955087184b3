package middleware

import (
	"net/http"

	apiContext "brokerhub/internal/api/context"
	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/rbac"
)

// Require rejects requests whose authorization context fails check. It must
// run after AuthMiddleware.Handle.
func Require(check rbac.Check) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ac := apiContext.AuthFrom(r.Context())
			if ac == nil {
				errors.Write(w, errors.Unauthorized("Authentication required"))
				return
			}
			if err := check(ac); err != nil {
				errors.Write(w, err)
				return
			}
			next(w, r)
		}
	}
}

func RequireMinimum(min rbac.Role) func(http.HandlerFunc) http.HandlerFunc {
	return Require(rbac.RequireMinimum(min))
}

func RequireRoles(roles ...rbac.Role) func(http.HandlerFunc) http.HandlerFunc {
	return Require(rbac.RequireRoles(roles...))
}
