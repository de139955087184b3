package models

import (
	"brokerhub/internal/platform/rbac"
)

type OrganisationType string

const (
	OrgTypeBroker   OrganisationType = "broker"
	OrgTypeMGA      OrganisationType = "MGA"
	OrgTypeInsurer  OrganisationType = "insurer"
	OrgTypeInternal OrganisationType = "internal"
)

func (t OrganisationType) Valid() bool {
	switch t {
	case OrgTypeBroker, OrgTypeMGA, OrgTypeInsurer, OrgTypeInternal:
		return true
	}
	return false
}

type OrganisationStatus string

const (
	OrgStatusActive    OrganisationStatus = "ACTIVE"
	OrgStatusSuspended OrganisationStatus = "SUSPENDED"
	OrgStatusInactive  OrganisationStatus = "INACTIVE"
)

type Organisation struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	OrgType   OrganisationType   `json:"org_type"`
	Status    OrganisationStatus `json:"status"`
	CreatedAt int64              `json:"created_at"`
	UpdatedAt int64              `json:"updated_at"`
}

type User struct {
	ID         string `json:"id"`
	AuthUserID string `json:"-"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

type MembershipStatus string

const (
	MembershipInvited   MembershipStatus = "INVITED"
	MembershipActive    MembershipStatus = "ACTIVE"
	MembershipSuspended MembershipStatus = "SUSPENDED"
	MembershipRemoved   MembershipStatus = "REMOVED"
)

func (s MembershipStatus) Valid() bool {
	switch s {
	case MembershipInvited, MembershipActive, MembershipSuspended, MembershipRemoved:
		return true
	}
	return false
}

type Membership struct {
	ID             string           `json:"id"`
	OrganisationID string           `json:"organisation_id"`
	UserID         string           `json:"user_id"`
	Role           rbac.Role        `json:"role"`
	Status         MembershipStatus `json:"status"`
	CreatedAt      int64            `json:"created_at"`
	UpdatedAt      int64            `json:"updated_at"`

	// Populated by listing queries that join users.
	UserEmail string `json:"user_email,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

type Invitation struct {
	ID             string    `json:"id"`
	OrganisationID string    `json:"organisation_id"`
	Email          string    `json:"email"`
	Role           rbac.Role `json:"role"`
	TokenHash      string    `json:"-"`
	InvitedBy      string    `json:"invited_by,omitempty"`
	ExpiresAt      int64     `json:"expires_at"`
	AcceptedAt     *int64    `json:"accepted_at,omitempty"`
	CreatedAt      int64     `json:"created_at"`
}

// IsExpired reports whether the invitation is past its deadline at now (unix seconds).
func (i *Invitation) IsExpired(now int64) bool {
	return now >= i.ExpiresAt
}

func (i *Invitation) IsAccepted() bool {
	return i.AcceptedAt != nil
}

func (i *Invitation) IsPending(now int64) bool {
	return !i.IsAccepted() && !i.IsExpired(now)
}

type AuditLog struct {
	ID             string `json:"id"`
	OrganisationID string `json:"organisation_id"`
	ActorUserID    string `json:"actor_user_id,omitempty"`
	ActorType      string `json:"actor_type"`
	Action         string `json:"action"`
	Entity         string `json:"entity"`
	EntityID       string `json:"entity_id,omitempty"`
	Before         string `json:"before,omitempty"`
	After          string `json:"after,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

// Account is a user together with their organisation and membership, as
// returned by signup, redemption and /me.
type Account struct {
	User         *User         `json:"user"`
	Organisation *Organisation `json:"organisation"`
	Membership   *Membership   `json:"membership"`
}
