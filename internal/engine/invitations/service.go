// Package invitations issues and redeems single-use tokens that let a new
// user join an organisation.
package invitations

import (
	"context"
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

var (
	ErrInviteAsOwner        = errors.InvalidArgument("Cannot invite users as OWNER. Use ownership transfer instead.")
	ErrInvalidRole          = errors.InvalidArgument("Invalid role")
	ErrUserAlreadyMember    = errors.Conflict("This user is already a member of an organisation")
	ErrPendingInvitation    = errors.Conflict("An active invitation already exists for this email")
	ErrInvitationNotFound   = errors.NotFound("Invitation not found")
	ErrInvalidToken         = errors.NotFound("Invalid invitation token")
	ErrInvitationExpired    = errors.InvalidArgument("Invitation has expired")
	ErrInvitationRedeemed   = errors.InvalidArgument("Invitation has already been redeemed")
	ErrAlreadyMember        = errors.Conflict("You are already a member of an organisation")
	ErrOrganisationNotFound = errors.NotFound("Organisation not found")
	ErrEmailTaken           = errors.Conflict("A user with this email already exists")
)

type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

type Config struct {
	TTL     time.Duration
	BaseURL string
	// ExposeURL returns the raw join link to the inviter. Never set in
	// production.
	ExposeURL bool
}

type Service struct {
	tx      *database.TxManager
	repos   *repositories.Set
	auditor Auditor
	cfg     Config
	now     func() time.Time
}

func NewService(tx *database.TxManager, repos *repositories.Set, auditor Auditor, cfg Config) *Service {
	return &Service{tx: tx, repos: repos, auditor: auditor, cfg: cfg, now: time.Now}
}

type InviteRequest struct {
	Email string    `json:"email"`
	Role  rbac.Role `json:"role"`
}

type InviteResult struct {
	Invitation *models.Invitation `json:"invitation"`
	InviteURL  string             `json:"invite_url,omitempty"`
}

func (s *Service) Invite(ctx context.Context, actor *auth.Context, req InviteRequest) (*InviteResult, error) {
	if err := rbac.RequireMinimum(rbac.RoleAdmin)(actor); err != nil {
		return nil, err
	}

	email, err := validator.NormalizeEmail(req.Email)
	if err != nil {
		return nil, errors.InvalidArgument(err.Error())
	}
	role := req.Role
	if role == "" {
		role = rbac.RoleMember
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if role == rbac.RoleOwner {
		return nil, ErrInviteAsOwner
	}

	token, hash, err := newToken()
	if err != nil {
		return nil, errors.Internal("Failed to generate invitation token", err)
	}

	now := s.now()
	inv := &models.Invitation{
		ID:             "inv_" + uuid.New().String(),
		OrganisationID: actor.OrganisationID,
		Email:          email,
		Role:           role,
		TokenHash:      hash,
		InvitedBy:      actor.UserID,
		ExpiresAt:      now.Add(s.cfg.TTL).Unix(),
		CreatedAt:      now.Unix(),
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		user, err := s.repos.Users.GetByEmail(ctx, email)
		if err != nil {
			return errors.Storage(err)
		}
		if user != nil {
			m, err := s.repos.Memberships.GetByUserID(ctx, user.ID)
			if err != nil {
				return errors.Storage(err)
			}
			if m != nil {
				return ErrUserAlreadyMember
			}
		}

		pending, err := s.repos.Invitations.GetPending(ctx, actor.OrganisationID, email, now.Unix())
		if err != nil {
			return errors.Storage(err)
		}
		if pending != nil {
			return ErrPendingInvitation
		}

		if err := s.repos.Invitations.Create(ctx, inv); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrPendingInvitation
			}
			return errors.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("org_id", inv.OrganisationID).Str("invitation_id", inv.ID).Str("role", string(role)).Msg("invitation created")
	s.auditor.Record(ctx, audit.Entry{
		OrganisationID: actor.OrganisationID,
		ActorUserID:    actor.UserID,
		ActorRole:      actor.Role,
		Action:         audit.ActionInvite,
		Entity:         audit.EntityInvitation,
		EntityID:       inv.ID,
		After:          inv,
	})

	res := &InviteResult{Invitation: inv}
	if s.cfg.ExposeURL {
		res.InviteURL = joinURL(s.cfg.BaseURL, token)
	}
	return res, nil
}

// Redeem joins the verified identity to the invitation's organisation. The
// user, membership and acceptance are written in one transaction, and
// unique constraints settle concurrent redemptions.
func (s *Service) Redeem(ctx context.Context, id *auth.Identity, token string) (*models.Account, error) {
	if token == "" {
		return nil, errors.InvalidArgument("Invitation token is required")
	}

	inv, err := s.repos.Invitations.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, errors.Storage(err)
	}
	if inv == nil {
		return nil, ErrInvalidToken
	}

	now := s.now().Unix()
	if inv.IsExpired(now) {
		return nil, ErrInvitationExpired
	}
	if inv.IsAccepted() {
		return nil, ErrInvitationRedeemed
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

	org, err := s.repos.Organisations.GetByID(ctx, inv.OrganisationID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if org == nil {
		return nil, ErrOrganisationNotFound
	}

	var membership *models.Membership
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if user == nil {
			email := id.Email
			if email == "" {
				email = inv.Email
			}
			if normalized, err := validator.NormalizeEmail(email); err == nil {
				email = normalized
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
			OrganisationID: inv.OrganisationID,
			UserID:         user.ID,
			Role:           inv.Role,
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

		ok, err := s.repos.Invitations.MarkAccepted(ctx, inv.ID, now)
		if err != nil {
			return errors.Storage(err)
		}
		if !ok {
			return ErrInvitationRedeemed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	membership.UserEmail = user.Email
	membership.UserName = user.Name

	s.auditor.Record(ctx, audit.Entry{
		OrganisationID: inv.OrganisationID,
		ActorUserID:    user.ID,
		ActorRole:      membership.Role,
		Action:         audit.ActionRedeem,
		Entity:         audit.EntityMembership,
		EntityID:       membership.ID,
		After:          membership,
	})

	return &models.Account{User: user, Organisation: org, Membership: membership}, nil
}

// Cancel hard-deletes an unaccepted invitation in the actor's organisation.
func (s *Service) Cancel(ctx context.Context, actor *auth.Context, invitationID string) error {
	if err := rbac.RequireMinimum(rbac.RoleAdmin)(actor); err != nil {
		return err
	}

	ok, err := s.repos.Invitations.DeleteUnaccepted(ctx, invitationID, actor.OrganisationID)
	if err != nil {
		return errors.Storage(err)
	}
	if !ok {
		return ErrInvitationNotFound
	}

	s.auditor.Record(ctx, audit.Entry{
		OrganisationID: actor.OrganisationID,
		ActorUserID:    actor.UserID,
		ActorRole:      actor.Role,
		Action:         audit.ActionCancel,
		Entity:         audit.EntityInvitation,
		EntityID:       invitationID,
	})
	return nil
}

// List returns unaccepted, unexpired invitations for the actor's organisation.
func (s *Service) List(ctx context.Context, actor *auth.Context) ([]*models.Invitation, error) {
	if err := rbac.RequireMinimum(rbac.RoleAdmin)(actor); err != nil {
		return nil, err
	}

	invs, err := s.repos.Invitations.ListPending(ctx, actor.OrganisationID, s.now().Unix())
	if err != nil {
		return nil, errors.Storage(err)
	}
	if invs == nil {
		invs = []*models.Invitation{}
	}
	return invs, nil
}

// HasPending reports whether email has an open invitation to any organisation.
func (s *Service) HasPending(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	if normalized, err := validator.NormalizeEmail(email); err == nil {
		email = normalized
	}
	inv, err := s.repos.Invitations.GetPendingByEmail(ctx, email, s.now().Unix())
	if err != nil {
		return false, errors.Storage(err)
	}
	return inv != nil, nil
}
