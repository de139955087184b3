// Package identity maps a verified credential subject to the user and
// active membership it belongs to.
package identity

import (
	"context"

	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/models"
)

type UserStore interface {
	GetByAuthUserID(ctx context.Context, authUserID string) (*models.User, error)
}

type MembershipStore interface {
	GetActiveByUserID(ctx context.Context, userID string) (*models.Membership, error)
}

type Resolution struct {
	User       *models.User
	Membership *models.Membership
}

var (
	ErrUserNotFound       = errors.Unauthorized("User not found. Please complete signup.")
	ErrNoActiveMembership = errors.Forbidden("No active membership found")
)

type Resolver struct {
	users       UserStore
	memberships MembershipStore
}

func NewResolver(users UserStore, memberships MembershipStore) *Resolver {
	return &Resolver{users: users, memberships: memberships}
}

// Resolve only reads.
func (r *Resolver) Resolve(ctx context.Context, subject string) (*Resolution, error) {
	user, err := r.users.GetByAuthUserID(ctx, subject)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	membership, err := r.memberships.GetActiveByUserID(ctx, user.ID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if membership == nil {
		return nil, ErrNoActiveMembership
	}

	return &Resolution{User: user, Membership: membership}, nil
}
