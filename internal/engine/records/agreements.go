package records

import (
	"context"
	"time"

	"github.com/google/uuid"

	"brokerhub/internal/engine/schedule"
	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/audit"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/models"
	"brokerhub/internal/platform/repositories"
)

const activationDelay = 24 * time.Hour

var (
	ErrAgreementNotFound    = errors.NotFound("Agreement not found")
	ErrNotDraft             = errors.NotFound("Agreement not found or not in DRAFT status")
	ErrClientOrPolicy       = errors.NotFound("Client or policy not found")
	ErrPolicyClientMismatch = errors.InvalidArgument("Policy does not belong to this client")
	ErrBrokerFee            = errors.InvalidArgument("broker_fee_bps must be between 0 and 10000")
	ErrInvalidStatusFilter  = errors.InvalidArgument("Invalid agreement status")
)

type AgreementInput struct {
	ClientID               string `json:"client_id"`
	PolicyID               string `json:"policy_id"`
	PrincipalAmountPennies int64  `json:"principal_amount_pennies"`
	APRBps                 int    `json:"apr_bps"`
	TermMonths             int    `json:"term_months"`
	BrokerFeeBps           int    `json:"broker_fee_bps"`
	SignedAt               *int64 `json:"signed_at,omitempty"`
}

type AgreementQuery struct {
	Status   models.AgreementStatus
	ClientID string
	Page     int
	Limit    int
}

func (s *Service) ListAgreements(ctx context.Context, actor *auth.Context, q AgreementQuery) (*PageResult[*models.Agreement], error) {
	if err := readAccess(actor); err != nil {
		return nil, err
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, ErrInvalidStatusFilter
	}
	page, err := pageOf(q.Page, q.Limit)
	if err != nil {
		return nil, err
	}

	agreements, total, err := s.repos.Agreements.List(ctx, actor.OrganisationID,
		repositories.AgreementFilter{Status: q.Status, ClientID: q.ClientID}, page)
	if err != nil {
		return nil, errors.Storage(err)
	}
	return paginate(agreements, page, total), nil
}

// GetAgreement returns the agreement with its instalment schedule.
func (s *Service) GetAgreement(ctx context.Context, actor *auth.Context, id string) (*models.Agreement, error) {
	if err := readAccess(actor); err != nil {
		return nil, err
	}
	a, err := s.repos.Agreements.GetInOrganisation(ctx, id, actor.OrganisationID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if a == nil {
		return nil, ErrAgreementNotFound
	}

	a.Instalments, err = s.repos.Agreements.ListInstalments(ctx, a.ID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	return a, nil
}

// CreateAgreement writes a DRAFT agreement and its repayment schedule in
// one transaction. Instalments fall due every 30 days from signing.
func (s *Service) CreateAgreement(ctx context.Context, actor *auth.Context, in AgreementInput) (*models.Agreement, error) {
	if err := writeAccess(actor); err != nil {
		return nil, err
	}
	if in.BrokerFeeBps < 0 || in.BrokerFeeBps > 10000 {
		return nil, ErrBrokerFee
	}

	now := s.now()
	signed := now
	if in.SignedAt != nil {
		signed = time.Unix(*in.SignedAt, 0)
	}

	plan, err := schedule.Build(schedule.Terms{
		PrincipalPennies: in.PrincipalAmountPennies,
		APRBps:           in.APRBps,
		TermMonths:       in.TermMonths,
	}, signed)
	if err != nil {
		return nil, err
	}

	client, err := s.repos.Clients.GetInOrganisation(ctx, in.ClientID, actor.OrganisationID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	policy, err := s.repos.Policies.GetInOrganisation(ctx, in.PolicyID, actor.OrganisationID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if client == nil || policy == nil {
		return nil, ErrClientOrPolicy
	}
	if policy.ClientID != client.ID {
		return nil, ErrPolicyClientMismatch
	}

	signedAt := signed.Unix()
	activatedAt := signed.Add(activationDelay).Unix()
	a := &models.Agreement{
		ID:                     "agr_" + uuid.New().String(),
		OrganisationID:         actor.OrganisationID,
		ClientID:               client.ID,
		PolicyID:               policy.ID,
		PrincipalAmountPennies: in.PrincipalAmountPennies,
		APRBps:                 in.APRBps,
		TermMonths:             in.TermMonths,
		BrokerFeeBps:           in.BrokerFeeBps,
		Status:                 models.AgreementDraft,
		SignedAt:               &signedAt,
		ActivatedAt:            &activatedAt,
		CreatedAt:              now.Unix(),
		UpdatedAt:              now.Unix(),
	}
	for i := range plan {
		plan[i].ID = "ins_" + uuid.New().String()
		plan[i].AgreementID = a.ID
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Agreements.Create(ctx, a); err != nil {
			return errors.Storage(err)
		}
		if err := s.repos.Agreements.CreateInstalments(ctx, plan); err != nil {
			return errors.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.Instalments = plan

	s.record(ctx, actor, audit.ActionCreate, audit.EntityAgreement, a.ID, nil, map[string]interface{}{
		"id":          a.ID,
		"client_id":   a.ClientID,
		"principal":   a.PrincipalAmountPennies,
		"term_months": a.TermMonths,
	})
	return a, nil
}

// ProposeAgreement moves a DRAFT agreement to PROPOSED.
func (s *Service) ProposeAgreement(ctx context.Context, actor *auth.Context, id string) (*models.Agreement, error) {
	if err := writeAccess(actor); err != nil {
		return nil, err
	}

	ok, err := s.repos.Agreements.TransitionStatus(ctx, id, actor.OrganisationID,
		models.AgreementDraft, models.AgreementProposed, s.now().Unix())
	if err != nil {
		return nil, errors.Storage(err)
	}
	if !ok {
		return nil, ErrNotDraft
	}

	s.record(ctx, actor, audit.ActionPropose, audit.EntityAgreement, id,
		map[string]string{"status": string(models.AgreementDraft)},
		map[string]string{"status": string(models.AgreementProposed)})

	return s.GetAgreement(ctx, actor, id)
}
