// Package memberships changes roles and status inside an organisation and
// moves ownership between members.
package memberships

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/audit"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/models"
	"brokerhub/internal/platform/rbac"
	"brokerhub/internal/platform/repositories"
)

var (
	ErrMembershipNotFound   = errors.NotFound("Membership not found")
	ErrTargetNotFound       = errors.NotFound("Target member not found")
	ErrSelfModification     = errors.InvalidArgument("Cannot change your own membership")
	ErrOwnerImmutable       = errors.InvalidArgument("Cannot modify the OWNER. Use ownership transfer instead.")
	ErrPromoteToOwner       = errors.InvalidArgument("Cannot set role to OWNER. Use ownership transfer instead.")
	ErrOnlyOwnerCreateAdmin = errors.Forbidden("Only the OWNER can promote members to ADMIN")
	ErrSelfRemoval          = errors.InvalidArgument("Cannot remove yourself from the organisation")
	ErrRemoveOwner          = errors.InvalidArgument("Cannot remove the OWNER. Transfer ownership first.")
	ErrOnlyOwnerTransfers   = errors.Forbidden("Only the OWNER can transfer ownership")
	ErrTransferToSelf       = errors.InvalidArgument("You already own this organisation")
	ErrConcurrentChange     = errors.Conflict("Membership was changed by another request. Please retry.")
	ErrInvalidRole          = errors.InvalidArgument("Invalid role")
	ErrInvalidStatus        = errors.InvalidArgument("Invalid membership status")
)

type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

type Service struct {
	tx      *database.TxManager
	repos   *repositories.Set
	auditor Auditor
	now     func() time.Time
}

func NewService(tx *database.TxManager, repos *repositories.Set, auditor Auditor) *Service {
	return &Service{tx: tx, repos: repos, auditor: auditor, now: time.Now}
}

// List returns the organisation's memberships with user email and name.
// Any member may list; status narrows the result when set.
func (s *Service) List(ctx context.Context, actor *auth.Context, status models.MembershipStatus) ([]*models.Membership, error) {
	if err := rbac.RequireMinimum(rbac.RoleReadOnly)(actor); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}

	ms, err := s.repos.Memberships.ListByOrganisation(ctx, actor.OrganisationID, status)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if ms == nil {
		ms = []*models.Membership{}
	}
	return ms, nil
}

func (s *Service) Get(ctx context.Context, actor *auth.Context, id string) (*models.Membership, error) {
	if err := rbac.RequireMinimum(rbac.RoleReadOnly)(actor); err != nil {
		return nil, err
	}
	m, err := s.repos.Memberships.GetInOrganisation(ctx, id, actor.OrganisationID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if m == nil {
		return nil, ErrMembershipNotFound
	}
	return m, nil
}

// UpdateRequest carries optional changes. A nil field is left as is.
type UpdateRequest struct {
	Role   *rbac.Role               `json:"role,omitempty"`
	Status *models.MembershipStatus `json:"status,omitempty"`
}

// target loads a membership another admin is about to change and rejects
// changes to the actor's own row or to the OWNER.
func (s *Service) target(ctx context.Context, actor *auth.Context, id string, self, owner error) (*models.Membership, error) {
	if err := rbac.RequireMinimum(rbac.RoleAdmin)(actor); err != nil {
		return nil, err
	}

	m, err := s.repos.Memberships.GetInOrganisation(ctx, id, actor.OrganisationID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if m == nil {
		return nil, ErrMembershipNotFound
	}
	if m.UserID == actor.UserID {
		return nil, self
	}
	if m.Role == rbac.RoleOwner {
		return nil, owner
	}
	return m, nil
}

func (s *Service) Update(ctx context.Context, actor *auth.Context, id string, req UpdateRequest) (*models.Membership, error) {
	m, err := s.target(ctx, actor, id, ErrSelfModification, ErrOwnerImmutable)
	if err != nil {
		return nil, err
	}
	before := *m
	expected := m.Role

	if req.Role != nil {
		role := *req.Role
		switch {
		case !role.Valid():
			return nil, ErrInvalidRole
		case role == rbac.RoleOwner:
			return nil, ErrPromoteToOwner
		case role == rbac.RoleAdmin && !rbac.IsOwner(actor):
			return nil, ErrOnlyOwnerCreateAdmin
		}
		m.Role = role
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		m.Status = *req.Status
	}

	m.UpdatedAt = s.now().Unix()
	ok, err := s.repos.Memberships.Update(ctx, m, expected)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if !ok {
		return nil, ErrConcurrentChange
	}

	s.auditor.Record(ctx, audit.Entry{
		OrganisationID: actor.OrganisationID,
		ActorUserID:    actor.UserID,
		ActorRole:      actor.Role,
		Action:         audit.ActionUpdate,
		Entity:         audit.EntityMembership,
		EntityID:       m.ID,
		Before:         before,
		After:          m,
	})
	return m, nil
}

// Remove soft-deletes by setting status REMOVED. The row is kept so the
// user can never hold a second membership.
func (s *Service) Remove(ctx context.Context, actor *auth.Context, id string) error {
	m, err := s.target(ctx, actor, id, ErrSelfRemoval, ErrRemoveOwner)
	if err != nil {
		return err
	}
	before := *m

	m.Status = models.MembershipRemoved
	m.UpdatedAt = s.now().Unix()
	ok, err := s.repos.Memberships.Update(ctx, m, m.Role)
	if err != nil {
		return errors.Storage(err)
	}
	if !ok {
		return ErrConcurrentChange
	}

	s.auditor.Record(ctx, audit.Entry{
		OrganisationID: actor.OrganisationID,
		ActorUserID:    actor.UserID,
		ActorRole:      actor.Role,
		Action:         audit.ActionRemove,
		Entity:         audit.EntityMembership,
		EntityID:       m.ID,
		Before:         before,
		After:          m,
	})
	return nil
}

// TransferOwnership demotes the acting OWNER to ADMIN and promotes the
// target in one transaction. Both steps are compare-and-set on the stored
// role, and the one-owner index rejects anything that slips past them.
func (s *Service) TransferOwnership(ctx context.Context, actor *auth.Context, newOwnerUserID string) error {
	if !rbac.IsOwner(actor) {
		return ErrOnlyOwnerTransfers
	}
	if newOwnerUserID == actor.UserID {
		return ErrTransferToSelf
	}

	target, err := s.repos.Memberships.GetActiveByUserInOrganisation(ctx, newOwnerUserID, actor.OrganisationID)
	if err != nil {
		return errors.Storage(err)
	}
	if target == nil {
		return ErrTargetNotFound
	}

	current, err := s.repos.Memberships.GetActiveByUserInOrganisation(ctx, actor.UserID, actor.OrganisationID)
	if err != nil {
		return errors.Storage(err)
	}
	if current == nil || current.Role != rbac.RoleOwner {
		return ErrOnlyOwnerTransfers
	}

	now := s.now().Unix()
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ok, err := s.repos.Memberships.CompareAndSetRole(ctx, current.ID, rbac.RoleOwner, rbac.RoleAdmin, now)
		if err != nil {
			return errors.Storage(err)
		}
		if !ok {
			return ErrOnlyOwnerTransfers
		}

		ok, err = s.repos.Memberships.CompareAndSetRole(ctx, target.ID, target.Role, rbac.RoleOwner, now)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return ErrConcurrentChange
			}
			return errors.Storage(err)
		}
		if !ok {
			return ErrConcurrentChange
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("org_id", actor.OrganisationID).
		Str("from_user", actor.UserID).
		Str("to_user", newOwnerUserID).
		Msg("ownership transferred")

	s.auditor.Record(ctx, audit.Entry{
		OrganisationID: actor.OrganisationID,
		ActorUserID:    actor.UserID,
		ActorRole:      actor.Role,
		Action:         audit.ActionTransfer,
		Entity:         audit.EntityMembership,
		EntityID:       target.ID,
		Before:         map[string]string{"owner_user_id": actor.UserID},
		After:          map[string]string{"owner_user_id": newOwnerUserID},
	})
	return nil
}
