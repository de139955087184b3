package records

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/pkg/validator"
	"brokerhub/internal/platform/audit"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/models"
)

var (
	ErrClientNotFound = errors.NotFound("Client not found")
	ErrClientInUse    = errors.Conflict("Client has policies or agreements and cannot be deleted")
)

type ClientInput struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	Postcode     string `json:"postcode"`
}

func (in *ClientInput) normalize() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return errors.InvalidArgument("first_name and last_name are required")
	}
	email, err := validator.NormalizeEmail(in.Email)
	if err != nil {
		return errors.InvalidArgument(err.Error())
	}
	in.Email = email
	return nil
}

type ClientQuery struct {
	Search string
	Page   int
	Limit  int
}

func (s *Service) ListClients(ctx context.Context, actor *auth.Context, q ClientQuery) (*PageResult[*models.Client], error) {
	if err := readAccess(actor); err != nil {
		return nil, err
	}
	page, err := pageOf(q.Page, q.Limit)
	if err != nil {
		return nil, err
	}

	clients, total, err := s.repos.Clients.List(ctx, actor.OrganisationID, strings.TrimSpace(q.Search), page)
	if err != nil {
		return nil, errors.Storage(err)
	}
	return paginate(clients, page, total), nil
}

func (s *Service) GetClient(ctx context.Context, actor *auth.Context, id string) (*models.Client, error) {
	if err := readAccess(actor); err != nil {
		return nil, err
	}
	c, err := s.repos.Clients.GetInOrganisation(ctx, id, actor.OrganisationID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if c == nil {
		return nil, ErrClientNotFound
	}
	return c, nil
}

func (s *Service) CreateClient(ctx context.Context, actor *auth.Context, in ClientInput) (*models.Client, error) {
	if err := writeAccess(actor); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	now := s.now().Unix()
	c := &models.Client{
		ID:             "cli_" + uuid.New().String(),
		OrganisationID: actor.OrganisationID,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		AddressLine1:   in.AddressLine1,
		AddressLine2:   in.AddressLine2,
		City:           in.City,
		Postcode:       in.Postcode,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repos.Clients.Create(ctx, c); err != nil {
		return nil, errors.Storage(err)
	}

	s.record(ctx, actor, audit.ActionCreate, audit.EntityClient, c.ID, nil, c)
	return c, nil
}

// UpdateClient replaces the client's details.
func (s *Service) UpdateClient(ctx context.Context, actor *auth.Context, id string, in ClientInput) (*models.Client, error) {
	if err := writeAccess(actor); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	c, err := s.GetClient(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	before := *c

	c.FirstName = in.FirstName
	c.LastName = in.LastName
	c.Email = in.Email
	c.Phone = in.Phone
	c.AddressLine1 = in.AddressLine1
	c.AddressLine2 = in.AddressLine2
	c.City = in.City
	c.Postcode = in.Postcode
	c.UpdatedAt = s.now().Unix()

	if err := s.repos.Clients.Update(ctx, c); err != nil {
		return nil, errors.Storage(err)
	}

	s.record(ctx, actor, audit.ActionUpdate, audit.EntityClient, c.ID, before, c)
	return c, nil
}

func (s *Service) DeleteClient(ctx context.Context, actor *auth.Context, id string) error {
	if err := deleteAccess(actor); err != nil {
		return err
	}

	ok, err := s.repos.Clients.Delete(ctx, id, actor.OrganisationID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrClientInUse
		}
		return errors.Storage(err)
	}
	if !ok {
		return ErrClientNotFound
	}

	s.record(ctx, actor, audit.ActionDelete, audit.EntityClient, id, nil, nil)
	return nil
}
