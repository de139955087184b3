package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/models"
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// filter accumulates WHERE clauses with $n placeholders numbered in the
// order they are added, which keeps both postgres and sqlite happy.
type filter struct {
	clauses []string
	args    []any
}

func (f *filter) add(clause string, args ...any) {
	for _, a := range args {
		f.args = append(f.args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(f.args)), 1)
	}
	f.clauses = append(f.clauses, clause)
}

func (f *filter) where() string {
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

func (f *filter) next(v any) string {
	f.args = append(f.args, v)
	return fmt.Sprintf("$%d", len(f.args))
}

type ClientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

const clientColumns = `id, organisation_id, first_name, last_name, email, phone, address_line1, address_line2, city, postcode, created_at, updated_at`

func scanClient(row scanner) (*models.Client, error) {
	c := &models.Client{}
	err := row.Scan(&c.ID, &c.OrganisationID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.AddressLine1, &c.AddressLine2, &c.City, &c.Postcode, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO clients (id, organisation_id, first_name, last_name, email, phone, address_line1, address_line2, city, postcode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, c.ID, c.OrganisationID, c.FirstName, c.LastName, c.Email, c.Phone, c.AddressLine1, c.AddressLine2, c.City, c.Postcode, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *ClientRepository) GetInOrganisation(ctx context.Context, id, orgID string) (*models.Client, error) {
	c, err := scanClient(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 AND organisation_id = $2`, id, orgID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// List matches search case-insensitively against names and email.
func (r *ClientRepository) List(ctx context.Context, orgID, search string, page Page) ([]*models.Client, int, error) {
	f := &filter{}
	f.add("organisation_id = ?", orgID)
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		f.add("(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?)", like, like, like)
	}

	conn := database.Conn(ctx, r.db)

	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + clientColumns + ` FROM clients` + f.where() + ` ORDER BY created_at DESC, id`
	query += ` LIMIT ` + f.next(page.Limit) + ` OFFSET ` + f.next(page.Offset())

	rows, err := conn.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, c)
	}
	return clients, total, rows.Err()
}

func (r *ClientRepository) Update(ctx context.Context, c *models.Client) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE clients SET first_name = $1, last_name = $2, email = $3, phone = $4, address_line1 = $5,
			address_line2 = $6, city = $7, postcode = $8, updated_at = $9
		WHERE id = $10 AND organisation_id = $11
	`, c.FirstName, c.LastName, c.Email, c.Phone, c.AddressLine1, c.AddressLine2, c.City, c.Postcode, c.UpdatedAt, c.ID, c.OrganisationID)
	return err
}

func (r *ClientRepository) Delete(ctx context.Context, id, orgID string) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM clients WHERE id = $1 AND organisation_id = $2`, id, orgID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
