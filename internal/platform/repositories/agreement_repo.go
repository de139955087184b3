package repositories

import (
	"context"
	"database/sql"

	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/models"
)

type AgreementRepository struct {
	db *sql.DB
}

func NewAgreementRepository(db *sql.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

const agreementColumns = `id, organisation_id, client_id, policy_id, principal_amount_pennies, apr_bps, term_months, broker_fee_bps, status, signed_at, activated_at, created_at, updated_at`

func scanAgreement(row scanner) (*models.Agreement, error) {
	a := &models.Agreement{}
	var signedAt, activatedAt sql.NullInt64
	err := row.Scan(&a.ID, &a.OrganisationID, &a.ClientID, &a.PolicyID, &a.PrincipalAmountPennies, &a.APRBps, &a.TermMonths,
		&a.BrokerFeeBps, &a.Status, &signedAt, &activatedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.SignedAt = nullInt64Ptr(signedAt)
	a.ActivatedAt = nullInt64Ptr(activatedAt)
	return a, nil
}

func nullableInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func (r *AgreementRepository) Create(ctx context.Context, a *models.Agreement) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO agreements (id, organisation_id, client_id, policy_id, principal_amount_pennies, apr_bps, term_months, broker_fee_bps, status, signed_at, activated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, a.ID, a.OrganisationID, a.ClientID, a.PolicyID, a.PrincipalAmountPennies, a.APRBps, a.TermMonths, a.BrokerFeeBps, a.Status,
		nullableInt64(a.SignedAt), nullableInt64(a.ActivatedAt), a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *AgreementRepository) GetInOrganisation(ctx context.Context, id, orgID string) (*models.Agreement, error) {
	a, err := scanAgreement(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+agreementColumns+` FROM agreements WHERE id = $1 AND organisation_id = $2`, id, orgID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

type AgreementFilter struct {
	Status   models.AgreementStatus
	ClientID string
}

func (r *AgreementRepository) List(ctx context.Context, orgID string, af AgreementFilter, page Page) ([]*models.Agreement, int, error) {
	f := &filter{}
	f.add("organisation_id = ?", orgID)
	if af.Status != "" {
		f.add("status = ?", af.Status)
	}
	if af.ClientID != "" {
		f.add("client_id = ?", af.ClientID)
	}

	conn := database.Conn(ctx, r.db)

	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM agreements`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + agreementColumns + ` FROM agreements` + f.where() + ` ORDER BY created_at DESC, id`
	query += ` LIMIT ` + f.next(page.Limit) + ` OFFSET ` + f.next(page.Offset())

	rows, err := conn.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var agreements []*models.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, 0, err
		}
		agreements = append(agreements, a)
	}
	return agreements, total, rows.Err()
}

// TransitionStatus moves an agreement from one status to another and
// reports false if it was not in from.
func (r *AgreementRepository) TransitionStatus(ctx context.Context, id, orgID string, from, to models.AgreementStatus, updatedAt int64) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE agreements SET status = $1, updated_at = $2
		WHERE id = $3 AND organisation_id = $4 AND status = $5
	`, to, updatedAt, id, orgID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *AgreementRepository) CountByStatus(ctx context.Context, orgID string) (map[models.AgreementStatus]int, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT status, COUNT(*) FROM agreements WHERE organisation_id = $1 GROUP BY status`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.AgreementStatus]int)
	for rows.Next() {
		var status models.AgreementStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// SumPrincipalSignedSince totals principal for SIGNED and ACTIVE agreements
// signed at or after since.
func (r *AgreementRepository) SumPrincipalSignedSince(ctx context.Context, orgID string, since int64) (int64, error) {
	var total int64
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(principal_amount_pennies), 0) FROM agreements
		WHERE organisation_id = $1 AND signed_at >= $2 AND status IN ($3, $4)
	`, orgID, since, models.AgreementSigned, models.AgreementActive).Scan(&total)
	return total, err
}

func (r *AgreementRepository) CreateInstalments(ctx context.Context, instalments []models.Instalment) error {
	conn := database.Conn(ctx, r.db)
	for _, in := range instalments {
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO instalments (id, agreement_id, sequence, due_date, amount_due_pennies, amount_paid_pennies, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, in.ID, in.AgreementID, in.Sequence, in.DueDate, in.AmountDuePennies, in.AmountPaidPennies, in.Status); err != nil {
			return err
		}
	}
	return nil
}

func (r *AgreementRepository) ListInstalments(ctx context.Context, agreementID string) ([]models.Instalment, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, agreement_id, sequence, due_date, amount_due_pennies, amount_paid_pennies, status
		FROM instalments WHERE agreement_id = $1 ORDER BY sequence
	`, agreementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instalments []models.Instalment
	for rows.Next() {
		var in models.Instalment
		if err := rows.Scan(&in.ID, &in.AgreementID, &in.Sequence, &in.DueDate, &in.AmountDuePennies, &in.AmountPaidPennies, &in.Status); err != nil {
			return nil, err
		}
		instalments = append(instalments, in)
	}
	return instalments, rows.Err()
}
