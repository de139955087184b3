package repositories

import (
	"context"
	"database/sql"

	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/models"
)

type InvitationRepository struct {
	db *sql.DB
}

func NewInvitationRepository(db *sql.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

const invitationColumns = `id, organisation_id, email, role, token_hash, COALESCE(invited_by, ''), expires_at, accepted_at, created_at`

func scanInvitation(row scanner) (*models.Invitation, error) {
	var inv models.Invitation
	var acceptedAt sql.NullInt64

	err := row.Scan(&inv.ID, &inv.OrganisationID, &inv.Email, &inv.Role, &inv.TokenHash, &inv.InvitedBy, &inv.ExpiresAt, &acceptedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	inv.AcceptedAt = nullInt64Ptr(acceptedAt)
	return &inv, nil
}

func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	var invitedBy sql.NullString
	if inv.InvitedBy != "" {
		invitedBy = sql.NullString{String: inv.InvitedBy, Valid: true}
	}

	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO membership_invitations (id, organisation_id, email, role, token_hash, invited_by, expires_at, accepted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8)
	`, inv.ID, inv.OrganisationID, inv.Email, inv.Role, inv.TokenHash, invitedBy, inv.ExpiresAt, inv.CreatedAt)
	return err
}

func (r *InvitationRepository) getOne(ctx context.Context, where string, args ...any) (*models.Invitation, error) {
	inv, err := scanInvitation(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM membership_invitations WHERE `+where, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return inv, err
}

// GetByTokenHash never sees the raw token; callers hash first.
func (r *InvitationRepository) GetByTokenHash(ctx context.Context, hash string) (*models.Invitation, error) {
	return r.getOne(ctx, `token_hash = $1`, hash)
}

func (r *InvitationRepository) GetInOrganisation(ctx context.Context, id, orgID string) (*models.Invitation, error) {
	return r.getOne(ctx, `id = $1 AND organisation_id = $2`, id, orgID)
}

// GetPending finds an unaccepted invitation for (orgID, email) still valid at now.
func (r *InvitationRepository) GetPending(ctx context.Context, orgID, email string, now int64) (*models.Invitation, error) {
	return r.getOne(ctx, `organisation_id = $1 AND email = $2 AND accepted_at IS NULL AND expires_at > $3 ORDER BY created_at DESC LIMIT 1`,
		orgID, email, now)
}

// GetPendingByEmail looks across all organisations.
func (r *InvitationRepository) GetPendingByEmail(ctx context.Context, email string, now int64) (*models.Invitation, error) {
	return r.getOne(ctx, `email = $1 AND accepted_at IS NULL AND expires_at > $2 ORDER BY created_at DESC LIMIT 1`, email, now)
}

func (r *InvitationRepository) ListPending(ctx context.Context, orgID string, now int64) ([]*models.Invitation, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+invitationColumns+` FROM membership_invitations
		WHERE organisation_id = $1 AND accepted_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC, id
	`, orgID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// MarkAccepted is a check-and-set on accepted_at IS NULL. It reports false
// when another redemption already won.
func (r *InvitationRepository) MarkAccepted(ctx context.Context, id string, acceptedAt int64) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE membership_invitations SET accepted_at = $1 WHERE id = $2 AND accepted_at IS NULL`, acceptedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// DeleteUnaccepted hard-deletes a pending invitation in orgID. It reports
// false when nothing matched, including already accepted invitations.
func (r *InvitationRepository) DeleteUnaccepted(ctx context.Context, id, orgID string) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM membership_invitations WHERE id = $1 AND organisation_id = $2 AND accepted_at IS NULL`, id, orgID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// DeleteExpiredBefore purges unaccepted invitations that expired before cutoff.
func (r *InvitationRepository) DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM membership_invitations WHERE accepted_at IS NULL AND expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
