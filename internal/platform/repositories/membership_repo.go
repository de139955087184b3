package repositories

import (
	"context"
	"database/sql"

	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/models"
	"brokerhub/internal/platform/rbac"
)

type MembershipRepository struct {
	db *sql.DB
}

func NewMembershipRepository(db *sql.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

const membershipColumns = `id, organisation_id, user_id, role, status, created_at, updated_at`

func scanMembership(row scanner) (*models.Membership, error) {
	m := &models.Membership{}
	err := row.Scan(&m.ID, &m.OrganisationID, &m.UserID, &m.Role, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *MembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO memberships (id, organisation_id, user_id, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.OrganisationID, m.UserID, m.Role, m.Status, m.CreatedAt, m.UpdatedAt)
	return err
}

// GetByUserID returns the user's membership in any status.
func (r *MembershipRepository) GetByUserID(ctx context.Context, userID string) (*models.Membership, error) {
	return scanMembership(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1`, userID))
}

func (r *MembershipRepository) GetActiveByUserID(ctx context.Context, userID string) (*models.Membership, error) {
	return scanMembership(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND status = $2`, userID, models.MembershipActive))
}

// GetInOrganisation returns the membership only if it belongs to orgID,
// with the member's email and name filled in.
func (r *MembershipRepository) GetInOrganisation(ctx context.Context, id, orgID string) (*models.Membership, error) {
	m := &models.Membership{}
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT m.id, m.organisation_id, m.user_id, m.role, m.status, m.created_at, m.updated_at, u.email, u.name
		FROM memberships m JOIN users u ON u.id = m.user_id
		WHERE m.id = $1 AND m.organisation_id = $2
	`, id, orgID).Scan(&m.ID, &m.OrganisationID, &m.UserID, &m.Role, &m.Status, &m.CreatedAt, &m.UpdatedAt, &m.UserEmail, &m.UserName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *MembershipRepository) GetActiveByUserInOrganisation(ctx context.Context, userID, orgID string) (*models.Membership, error) {
	return scanMembership(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND organisation_id = $2 AND status = $3`,
		userID, orgID, models.MembershipActive))
}

// ListByOrganisation joins users for email and name. status filters when non-empty.
func (r *MembershipRepository) ListByOrganisation(ctx context.Context, orgID string, status models.MembershipStatus) ([]*models.Membership, error) {
	query := `
		SELECT m.id, m.organisation_id, m.user_id, m.role, m.status, m.created_at, m.updated_at, u.email, u.name
		FROM memberships m JOIN users u ON u.id = m.user_id
		WHERE m.organisation_id = $1`
	args := []any{orgID}
	if status != "" {
		query += ` AND m.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY m.created_at, m.id`

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m := &models.Membership{}
		if err := rows.Scan(&m.ID, &m.OrganisationID, &m.UserID, &m.Role, &m.Status, &m.CreatedAt, &m.UpdatedAt, &m.UserEmail, &m.UserName); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// Update writes role and status only if the row still holds expected, so a
// concurrent ownership transfer cannot be overwritten.
func (r *MembershipRepository) Update(ctx context.Context, m *models.Membership, expected rbac.Role) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE memberships SET role = $1, status = $2, updated_at = $3 WHERE id = $4 AND role = $5`,
		m.Role, m.Status, m.UpdatedAt, m.ID, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CompareAndSetRole moves an ACTIVE membership from expected to next.
// It reports false when the row no longer matches, which lets concurrent
// ownership transfers serialize on the row instead of on an in-process lock.
func (r *MembershipRepository) CompareAndSetRole(ctx context.Context, id string, expected, next rbac.Role, updatedAt int64) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE memberships SET role = $1, updated_at = $2
		WHERE id = $3 AND role = $4 AND status = $5
	`, next, updatedAt, id, expected, models.MembershipActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
