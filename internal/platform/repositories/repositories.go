package repositories

import (
	"context"
	"database/sql"

	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/models"
)

// Set bundles every repository over one pool.
type Set struct {
	Organisations *OrganisationRepository
	Users         *UserRepository
	Memberships   *MembershipRepository
	Invitations   *InvitationRepository
	Audit         *AuditRepository
	Clients       *ClientRepository
	Policies      *PolicyRepository
	Agreements    *AgreementRepository
}

func NewSet(db *sql.DB) *Set {
	return &Set{
		Organisations: NewOrganisationRepository(db),
		Users:         NewUserRepository(db),
		Memberships:   NewMembershipRepository(db),
		Invitations:   NewInvitationRepository(db),
		Audit:         NewAuditRepository(db),
		Clients:       NewClientRepository(db),
		Policies:      NewPolicyRepository(db),
		Agreements:    NewAgreementRepository(db),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

type OrganisationRepository struct {
	db *sql.DB
}

func NewOrganisationRepository(db *sql.DB) *OrganisationRepository {
	return &OrganisationRepository{db: db}
}

func (r *OrganisationRepository) Create(ctx context.Context, org *models.Organisation) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO organisations (id, name, org_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, org.ID, org.Name, org.OrgType, org.Status, org.CreatedAt, org.UpdatedAt)
	return err
}

func (r *OrganisationRepository) GetByID(ctx context.Context, id string) (*models.Organisation, error) {
	org := &models.Organisation{}
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, name, org_type, status, created_at, updated_at
		FROM organisations WHERE id = $1
	`, id).Scan(&org.ID, &org.Name, &org.OrgType, &org.Status, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}

func (r *OrganisationRepository) UpdateName(ctx context.Context, id, name string, updatedAt int64) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE organisations SET name = $1, updated_at = $2 WHERE id = $3`, name, updatedAt, id)
	return err
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, auth_user_id, email, name, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.AuthUserID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO users (id, auth_user_id, email, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.AuthUserID, user.Email, user.Name, user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByAuthUserID(ctx context.Context, authUserID string) (*models.User, error) {
	return scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE auth_user_id = $1`, authUserID))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}
