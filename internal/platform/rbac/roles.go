// Package rbac holds the role hierarchy and the guards every tenant-data
// operation runs before touching storage. Nothing here reads the database.
package rbac

import (
	"strings"

	"brokerhub/internal/pkg/errors"
)

type Role string

const (
	RoleReadOnly Role = "READ_ONLY"
	RoleMember   Role = "MEMBER"
	RoleAdmin    Role = "ADMIN"
	RoleOwner    Role = "OWNER"
)

// Roles lists every role from least to most privileged.
var Roles = []Role{RoleReadOnly, RoleMember, RoleAdmin, RoleOwner}

// Level orders roles. Unknown roles are -1 so they fail every minimum check.
func (r Role) Level() int {
	switch r {
	case RoleReadOnly:
		return 0
	case RoleMember:
		return 1
	case RoleAdmin:
		return 2
	case RoleOwner:
		return 3
	default:
		return -1
	}
}

func (r Role) Valid() bool {
	return r.Level() >= 0
}

func (r Role) AtLeast(min Role) bool {
	return min.Valid() && r.Level() >= min.Level()
}

// ParseRole accepts any casing of a known role name.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Actor is the subject of an authorization decision.
type Actor interface {
	ActorRole() Role
	ActorOrganisation() string
}

type Check func(Actor) error

// RequireRoles passes only actors whose role is one of roles.
func RequireRoles(roles ...Role) Check {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	msg := "Insufficient permissions. Required roles: " + strings.Join(names, ", ")

	return func(a Actor) error {
		if a == nil {
			return errors.Forbidden(msg)
		}
		role := a.ActorRole()
		for _, r := range roles {
			if role == r {
				return nil
			}
		}
		return errors.Forbidden(msg)
	}
}

// RequireMinimum passes actors at or above min in the hierarchy.
func RequireMinimum(min Role) Check {
	msg := "Insufficient permissions. Minimum required role: " + string(min)

	return func(a Actor) error {
		if a == nil || !a.ActorRole().AtLeast(min) {
			return errors.Forbidden(msg)
		}
		return nil
	}
}

// RequireOrganisation passes actors scoped to orgID.
func RequireOrganisation(orgID string) Check {
	return func(a Actor) error {
		if a == nil || a.ActorOrganisation() == "" || a.ActorOrganisation() != orgID {
			return errors.Forbidden("Access denied to this organisation")
		}
		return nil
	}
}

// All runs checks in order and returns the first failure.
func All(checks ...Check) Check {
	return func(a Actor) error {
		for _, c := range checks {
			if err := c(a); err != nil {
				return err
			}
		}
		return nil
	}
}

func CanWrite(a Actor) bool         { return a != nil && a.ActorRole().AtLeast(RoleMember) }
func CanDelete(a Actor) bool        { return a != nil && a.ActorRole().AtLeast(RoleAdmin) }
func CanManageMembers(a Actor) bool { return a != nil && a.ActorRole().AtLeast(RoleAdmin) }
func IsAdmin(a Actor) bool          { return a != nil && a.ActorRole().AtLeast(RoleAdmin) }
func IsOwner(a Actor) bool          { return a != nil && a.ActorRole() == RoleOwner }
