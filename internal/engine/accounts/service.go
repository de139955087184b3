// Package accounts covers a user's own account: creating an organisation
// at signup, reading who they are, and managing the organisation record.
package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/pkg/validator"
	"brokerhub/internal/platform/audit"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/models"
	"brokerhub/internal/platform/rbac"
	"brokerhub/internal/platform/repositories"
)

const maxOrganisationName = 255

var (
	ErrAlreadyMember        = errors.Conflict("You are already a member of an organisation")
	ErrUserDataNotFound     = errors.NotFound("User data not found")
	ErrOrganisationNotFound = errors.NotFound("Organisation not found")
	ErrNameRequired         = errors.InvalidArgument("Organisation name is required")
	ErrNameTooLong          = errors.InvalidArgument("Organisation name must be at most 255 characters")
	ErrInvalidOrgType       = errors.InvalidArgument("Invalid organisation type")
	ErrEmailRequired        = errors.InvalidArgument("A verified email is required to sign up")
	ErrEmailTaken           = errors.Conflict("A user with this email already exists")
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

type SignupRequest struct {
	Name    string                  `json:"name"`
	OrgType models.OrganisationType `json:"org_type"`
}

func organisationName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if len(name) > maxOrganisationName {
		return "", ErrNameTooLong
	}
	return name, nil
}

// SignupWithOrganisation creates an organisation with the caller as its
// OWNER. Callers who already hold any membership are turned away.
func (s *Service) SignupWithOrganisation(ctx context.Context, id *auth.Identity, req SignupRequest) (*models.Account, error) {
	name, err := organisationName(req.Name)
	if err != nil {
		return nil, err
	}
	orgType := req.OrgType
	if orgType == "" {
		orgType = models.OrgTypeBroker
	}
	if !orgType.Valid() {
		return nil, ErrInvalidOrgType
	}

	user, err := s.repos.Users.GetByAuthUserID(ctx, id.Subject)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if user != nil {
		m, err := s.repos.Memberships.GetByUserID(ctx, user.ID)
		if err != nil {
			return nil, errors.Storage(err)
		}
		if m != nil {
			return nil, ErrAlreadyMember
		}
	}

	now := s.now().Unix()
	org := &models.Organisation{
		ID:        "org_" + uuid.New().String(),
		Name:      name,
		OrgType:   orgType,
		Status:    models.OrgStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var membership *models.Membership

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Organisations.Create(ctx, org); err != nil {
			return errors.Storage(err)
		}

		if user == nil {
			email, err := validator.NormalizeEmail(id.Email)
			if err != nil {
				return ErrEmailRequired
			}
			user = &models.User{
				ID:         "usr_" + uuid.New().String(),
				AuthUserID: id.Subject,
				Email:      email,
				Name:       validator.LocalPart(email),
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.repos.Users.Create(ctx, user); err != nil {
				if database.IsUniqueViolation(err) {
					return ErrEmailTaken
				}
				return errors.Storage(err)
			}
		}

		membership = &models.Membership{
			ID:             "mem_" + uuid.New().String(),
			OrganisationID: org.ID,
			UserID:         user.ID,
			Role:           rbac.RoleOwner,
			Status:         models.MembershipActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repos.Memberships.Create(ctx, membership); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrAlreadyMember
			}
			return errors.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	membership.UserEmail = user.Email
	membership.UserName = user.Name

	log.Info().Str("org_id", org.ID).Str("user_id", user.ID).Msg("organisation created")
	s.auditor.Record(ctx, audit.Entry{
		OrganisationID: org.ID,
		ActorUserID:    user.ID,
		ActorRole:      rbac.RoleOwner,
		Action:         audit.ActionSignup,
		Entity:         audit.EntityOrganisation,
		EntityID:       org.ID,
		After:          org,
	})

	return &models.Account{User: user, Organisation: org, Membership: membership}, nil
}

// Me reloads the caller's user, organisation and active membership.
func (s *Service) Me(ctx context.Context, actor *auth.Context) (*models.Account, error) {
	if actor == nil {
		return nil, ErrUserDataNotFound
	}

	user, err := s.repos.Users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	membership, err := s.repos.Memberships.GetActiveByUserInOrganisation(ctx, actor.UserID, actor.OrganisationID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	org, err := s.repos.Organisations.GetByID(ctx, actor.OrganisationID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if user == nil || membership == nil || org == nil {
		return nil, ErrUserDataNotFound
	}

	membership.UserEmail = user.Email
	membership.UserName = user.Name
	return &models.Account{User: user, Organisation: org, Membership: membership}, nil
}

// MembershipCheck tells a freshly signed-in client which flow to show.
type MembershipCheck struct {
	HasMembership        bool       `json:"has_membership"`
	HasPendingInvitation bool       `json:"has_pending_invitation"`
	OrganisationID       *string    `json:"organisation_id"`
	Role                 *rbac.Role `json:"role"`
}

func (s *Service) CheckMembership(ctx context.Context, id *auth.Identity) (*MembershipCheck, error) {
	user, err := s.repos.Users.GetByAuthUserID(ctx, id.Subject)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if user != nil {
		m, err := s.repos.Memberships.GetActiveByUserID(ctx, user.ID)
		if err != nil {
			return nil, errors.Storage(err)
		}
		if m != nil {
			return &MembershipCheck{HasMembership: true, OrganisationID: &m.OrganisationID, Role: &m.Role}, nil
		}
	}

	check := &MembershipCheck{}
	email, err := validator.NormalizeEmail(id.Email)
	if err != nil {
		return check, nil
	}
	inv, err := s.repos.Invitations.GetPendingByEmail(ctx, email, s.now().Unix())
	if err != nil {
		return nil, errors.Storage(err)
	}
	check.HasPendingInvitation = inv != nil
	return check, nil
}

func (s *Service) GetOrganisation(ctx context.Context, actor *auth.Context) (*models.Organisation, error) {
	if err := rbac.RequireMinimum(rbac.RoleReadOnly)(actor); err != nil {
		return nil, err
	}
	org, err := s.repos.Organisations.GetByID(ctx, actor.OrganisationID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if org == nil {
		return nil, ErrOrganisationNotFound
	}
	return org, nil
}

type UpdateOrganisationRequest struct {
	Name string `json:"name"`
}

func (s *Service) UpdateOrganisation(ctx context.Context, actor *auth.Context, req UpdateOrganisationRequest) (*models.Organisation, error) {
	if err := rbac.RequireMinimum(rbac.RoleAdmin)(actor); err != nil {
		return nil, err
	}
	name, err := organisationName(req.Name)
	if err != nil {
		return nil, err
	}

	org, err := s.GetOrganisation(ctx, actor)
	if err != nil {
		return nil, err
	}
	before := *org

	org.Name = name
	org.UpdatedAt = s.now().Unix()
	if err := s.repos.Organisations.UpdateName(ctx, org.ID, org.Name, org.UpdatedAt); err != nil {
		return nil, errors.Storage(err)
	}

	s.auditor.Record(ctx, audit.Entry{
		OrganisationID: org.ID,
		ActorUserID:    actor.UserID,
		ActorRole:      actor.Role,
		Action:         audit.ActionUpdate,
		Entity:         audit.EntityOrganisation,
		EntityID:       org.ID,
		Before:         before,
		After:          org,
	})
	return org, nil
}
