package records

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/audit"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/models"
)

const dateLayout = "2006-01-02"

var ErrPolicyNotFound = errors.NotFound("Policy not found")

type PolicyInput struct {
	ClientID            string `json:"client_id"`
	InsurerName         string `json:"insurer_name"`
	ProductType         string `json:"product_type"`
	PolicyNumber        string `json:"policy_number"`
	InceptionDate       string `json:"inception_date"`
	ExpiryDate          string `json:"expiry_date"`
	GrossPremiumPennies int64  `json:"gross_premium_pennies"`
}

func (in *PolicyInput) validate() error {
	in.InsurerName = strings.TrimSpace(in.InsurerName)
	in.ProductType = strings.TrimSpace(in.ProductType)
	in.PolicyNumber = strings.TrimSpace(in.PolicyNumber)
	if in.ClientID == "" || in.InsurerName == "" || in.ProductType == "" || in.PolicyNumber == "" {
		return errors.InvalidArgument("client_id, insurer_name, product_type and policy_number are required")
	}

	inception, err := time.Parse(dateLayout, in.InceptionDate)
	if err != nil {
		return errors.InvalidArgument("inception_date must be YYYY-MM-DD")
	}
	expiry, err := time.Parse(dateLayout, in.ExpiryDate)
	if err != nil {
		return errors.InvalidArgument("expiry_date must be YYYY-MM-DD")
	}
	if !expiry.After(inception) {
		return errors.InvalidArgument("expiry_date must be after inception_date")
	}

	if in.GrossPremiumPennies <= 0 {
		return errors.InvalidArgument("gross_premium_pennies must be greater than zero")
	}
	return nil
}

func (s *Service) ListPolicies(ctx context.Context, actor *auth.Context, clientID string) ([]*models.Policy, error) {
	if err := readAccess(actor); err != nil {
		return nil, err
	}
	policies, err := s.repos.Policies.List(ctx, actor.OrganisationID, clientID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if policies == nil {
		policies = []*models.Policy{}
	}
	return policies, nil
}

func (s *Service) GetPolicy(ctx context.Context, actor *auth.Context, id string) (*models.Policy, error) {
	if err := readAccess(actor); err != nil {
		return nil, err
	}
	p, err := s.repos.Policies.GetInOrganisation(ctx, id, actor.OrganisationID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if p == nil {
		return nil, ErrPolicyNotFound
	}
	return p, nil
}

func (s *Service) CreatePolicy(ctx context.Context, actor *auth.Context, in PolicyInput) (*models.Policy, error) {
	if err := writeAccess(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	if _, err := s.GetClient(ctx, actor, in.ClientID); err != nil {
		return nil, err
	}

	now := s.now().Unix()
	p := &models.Policy{
		ID:                  "pol_" + uuid.New().String(),
		OrganisationID:      actor.OrganisationID,
		ClientID:            in.ClientID,
		InsurerName:         in.InsurerName,
		ProductType:         in.ProductType,
		PolicyNumber:        in.PolicyNumber,
		InceptionDate:       in.InceptionDate,
		ExpiryDate:          in.ExpiryDate,
		GrossPremiumPennies: in.GrossPremiumPennies,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repos.Policies.Create(ctx, p); err != nil {
		return nil, errors.Storage(err)
	}

	s.record(ctx, actor, audit.ActionCreate, audit.EntityPolicy, p.ID, nil, p)
	return p, nil
}
