//go:build !production

package auth

import (
	"net/http"

	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/config"
	"brokerhub/internal/platform/rbac"
)

const (
	devEmail = "dev@example.com"
	devName  = "Dev User"
)

func devHeaderStrategy(env config.Environment) headerStrategy {
	if !env.AllowsDevHeaders() {
		return nil
	}
	return fromDevHeaders
}

// fromDevHeaders trusts X-User-Id, X-Org-Id and X-Role as given. The user
// id doubles as the subject and nothing is looked up.
func fromDevHeaders(h http.Header) (*Context, error) {
	userID := h.Get("X-User-Id")
	orgID := h.Get("X-Org-Id")
	if userID == "" || orgID == "" {
		return nil, nil
	}

	role := rbac.RoleMember
	if raw := h.Get("X-Role"); raw != "" {
		r, ok := rbac.ParseRole(raw)
		if !ok {
			return nil, errors.Unauthorized("Invalid X-Role header")
		}
		role = r
	}

	return &Context{
		SubjectID:      userID,
		UserID:         userID,
		OrganisationID: orgID,
		Role:           role,
		Email:          devEmail,
		Name:           devName,
	}, nil
}
