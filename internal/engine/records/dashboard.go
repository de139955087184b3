package records

import (
	"context"
	"time"

	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/models"
)

// revenueBps estimates broker revenue as a flat share of principal until
// commission lines are tracked.
const revenueBps = 200

func (s *Service) Dashboard(ctx context.Context, actor *auth.Context) (*models.Dashboard, error) {
	if err := readAccess(actor); err != nil {
		return nil, err
	}

	counts, err := s.repos.Agreements.CountByStatus(ctx, actor.OrganisationID)
	if err != nil {
		return nil, errors.Storage(err)
	}

	now := s.now().UTC()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	principal, err := s.repos.Agreements.SumPrincipalSignedSince(ctx, actor.OrganisationID, yearStart.Unix())
	if err != nil {
		return nil, errors.Storage(err)
	}

	return &models.Dashboard{
		ActiveAgreements:  counts[models.AgreementActive],
		Defaults:          counts[models.AgreementDefaulted],
		Terminated:        counts[models.AgreementTerminated],
		RevenueYTDPennies: (principal*revenueBps + 5000) / 10000,
		Notifications:     []any{},
	}, nil
}
