// Package enginetest seeds organisations and members into a migrated
// in-memory database for service tests.
package enginetest

import (
	"context"
	"database/sql"
	"testing"

	"brokerhub/internal/platform/audit"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/database/dbtest"
	"brokerhub/internal/platform/models"
	"brokerhub/internal/platform/rbac"
	"brokerhub/internal/platform/repositories"
)

type Fixture struct {
	DB       *sql.DB
	Repos    *repositories.Set
	Tx       *database.TxManager
	Recorder *audit.Recorder
}

func New(t testing.TB) *Fixture {
	t.Helper()
	db := dbtest.Open(t)
	repos := repositories.NewSet(db)
	return &Fixture{
		DB:       db,
		Repos:    repos,
		Tx:       database.NewTxManager(db),
		Recorder: audit.NewRecorder(repos.Audit),
	}
}

func (f *Fixture) Org(t testing.TB, id string) *models.Organisation {
	t.Helper()
	org := &models.Organisation{ID: id, Name: id, OrgType: models.OrgTypeBroker, Status: models.OrgStatusActive, CreatedAt: 1, UpdatedAt: 1}
	if err := f.Repos.Organisations.Create(context.Background(), org); err != nil {
		t.Fatalf("seed org %s: %v", id, err)
	}
	return org
}

// User creates a user without a membership. Its auth subject is "auth-"+id.
func (f *Fixture) User(t testing.TB, id string) *models.User {
	t.Helper()
	user := &models.User{ID: id, AuthUserID: "auth-" + id, Email: id + "@example.com", Name: id, CreatedAt: 1, UpdatedAt: 1}
	if err := f.Repos.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return user
}

// Member seeds a user with a membership and returns the context that user
// would authenticate with.
func (f *Fixture) Member(t testing.TB, orgID, userID string, role rbac.Role, status models.MembershipStatus) *auth.Context {
	t.Helper()
	user := f.User(t, userID)
	m := &models.Membership{
		ID: "mem_" + userID, OrganisationID: orgID, UserID: userID, Role: role, Status: status, CreatedAt: 1, UpdatedAt: 1,
	}
	if err := f.Repos.Memberships.Create(context.Background(), m); err != nil {
		t.Fatalf("seed membership %s: %v", userID, err)
	}
	return &auth.Context{
		SubjectID:      user.AuthUserID,
		UserID:         userID,
		OrganisationID: orgID,
		Role:           role,
		Email:          user.Email,
		Name:           user.Name,
	}
}

// Identity returns the verified credential for a seeded or unseen subject.
func Identity(subject, email string) *auth.Identity {
	return &auth.Identity{Subject: subject, Email: email}
}

// Role reads a membership's current role, failing the test if it is gone.
func (f *Fixture) Role(t testing.TB, membershipID string) rbac.Role {
	t.Helper()
	var role rbac.Role
	if err := f.DB.QueryRow(`SELECT role FROM memberships WHERE id = $1`, membershipID).Scan(&role); err != nil {
		t.Fatalf("read role of %s: %v", membershipID, err)
	}
	return role
}

// Count runs a COUNT(*) query.
func (f *Fixture) Count(t testing.TB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := f.DB.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
