package repositories

import (
	"context"
	"database/sql"

	"brokerhub/internal/platform/models"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert always uses the pool, never a caller's transaction: audit rows are
// written after the primary change has committed.
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, organisation_id, actor_user_id, actor_type, action, entity, entity_id, before_state, after_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.ID, entry.OrganisationID, nullString(entry.ActorUserID), entry.ActorType, entry.Action, entry.Entity,
		nullString(entry.EntityID), nullString(entry.Before), nullString(entry.After), entry.CreatedAt)
	return err
}

func (r *AuditRepository) ListByOrganisation(ctx context.Context, orgID string, limit int) ([]*models.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, organisation_id, COALESCE(actor_user_id, ''), actor_type, action, entity, COALESCE(entity_id, ''),
		       COALESCE(before_state, ''), COALESCE(after_state, ''), created_at
		FROM audit_logs WHERE organisation_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.OrganisationID, &l.ActorUserID, &l.ActorType, &l.Action, &l.Entity, &l.EntityID, &l.Before, &l.After, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
