package repositories

import (
	"context"
	"database/sql"

	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/models"
)

type PolicyRepository struct {
	db *sql.DB
}

func NewPolicyRepository(db *sql.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

const policyColumns = `id, organisation_id, client_id, insurer_name, product_type, policy_number, inception_date, expiry_date, gross_premium_pennies, created_at, updated_at`

func scanPolicy(row scanner) (*models.Policy, error) {
	p := &models.Policy{}
	err := row.Scan(&p.ID, &p.OrganisationID, &p.ClientID, &p.InsurerName, &p.ProductType, &p.PolicyNumber,
		&p.InceptionDate, &p.ExpiryDate, &p.GrossPremiumPennies, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PolicyRepository) Create(ctx context.Context, p *models.Policy) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO policies (id, organisation_id, client_id, insurer_name, product_type, policy_number, inception_date, expiry_date, gross_premium_pennies, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.OrganisationID, p.ClientID, p.InsurerName, p.ProductType, p.PolicyNumber, p.InceptionDate, p.ExpiryDate, p.GrossPremiumPennies, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PolicyRepository) GetInOrganisation(ctx context.Context, id, orgID string) (*models.Policy, error) {
	p, err := scanPolicy(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE id = $1 AND organisation_id = $2`, id, orgID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// List returns the organisation's policies, optionally for one client.
func (r *PolicyRepository) List(ctx context.Context, orgID, clientID string) ([]*models.Policy, error) {
	f := &filter{}
	f.add("organisation_id = ?", orgID)
	if clientID != "" {
		f.add("client_id = ?", clientID)
	}

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+policyColumns+` FROM policies`+f.where()+` ORDER BY created_at DESC, id`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*models.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}
