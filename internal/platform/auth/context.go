package auth

import "brokerhub/internal/platform/rbac"

// Context is the authenticated caller of a tenant-scoped request.
type Context struct {
	SubjectID      string    `json:"auth_user_id"`
	UserID         string    `json:"user_id"`
	OrganisationID string    `json:"organisation_id"`
	Role           rbac.Role `json:"role"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`

	// Credential is the raw bearer token, empty for dev-header contexts.
	Credential string `json:"-"`
}

// ActorRole and ActorOrganisation make *Context an rbac.Actor. Both are safe
// on a nil receiver so an unauthenticated request fails every check.
func (c *Context) ActorRole() rbac.Role {
	if c == nil {
		return ""
	}
	return c.Role
}

func (c *Context) ActorOrganisation() string {
	if c == nil {
		return ""
	}
	return c.OrganisationID
}
