package accounts

import (
	"context"
	"strings"
	"testing"
	"time"

	"brokerhub/internal/engine/enginetest"
	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/models"
	"brokerhub/internal/platform/rbac"
)

func setup(t *testing.T) (*enginetest.Fixture, *Service) {
	t.Helper()
	f := enginetest.New(t)
	svc := NewService(f.Tx, f.Repos, f.Recorder)
	svc.now = func() time.Time { return time.Unix(5000, 0) }
	return f, svc
}

func TestSignupWithOrganisation(t *testing.T) {
	ctx := context.Background()

	t.Run("new user becomes owner", func(t *testing.T) {
		f, svc := setup(t)
		acct, err := svc.SignupWithOrganisation(ctx, enginetest.Identity("auth-new", "Jane@Broker.co.uk"), SignupRequest{Name: "  Acme Brokers "})
		if err != nil {
			t.Fatalf("signup: %v", err)
		}
		if acct.Organisation.Name != "Acme Brokers" || acct.Organisation.OrgType != models.OrgTypeBroker || acct.Organisation.Status != models.OrgStatusActive {
			t.Errorf("unexpected org %+v", acct.Organisation)
		}
		if acct.User.Email != "jane@broker.co.uk" || acct.User.Name != "jane" {
			t.Errorf("unexpected user %+v", acct.User)
		}
		if acct.Membership.Role != rbac.RoleOwner || acct.Membership.Status != models.MembershipActive {
			t.Errorf("unexpected membership %+v", acct.Membership)
		}

		_, err = svc.SignupWithOrganisation(ctx, enginetest.Identity("auth-new", "jane@broker.co.uk"), SignupRequest{Name: "Second"})
		if !errors.Is(err, ErrAlreadyMember) {
			t.Errorf("second signup = %v, want conflict", err)
		}
		if n := f.Count(t, `SELECT COUNT(*) FROM organisations`); n != 1 {
			t.Errorf("expected one organisation, got %d", n)
		}
	})

	t.Run("validation", func(t *testing.T) {
		_, svc := setup(t)
		id := enginetest.Identity("auth-x", "x@example.com")
		tests := []struct {
			req  SignupRequest
			want error
		}{
			{SignupRequest{Name: " "}, ErrNameRequired},
			{SignupRequest{Name: strings.Repeat("a", 256)}, ErrNameTooLong},
			{SignupRequest{Name: "Acme", OrgType: "bank"}, ErrInvalidOrgType},
		}
		for _, tt := range tests {
			if _, err := svc.SignupWithOrganisation(ctx, id, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("%+v: err = %v, want %v", tt.req, err, tt.want)
			}
		}
	})

	t.Run("missing email rolls back organisation", func(t *testing.T) {
		f, svc := setup(t)
		_, err := svc.SignupWithOrganisation(ctx, enginetest.Identity("auth-anon", ""), SignupRequest{Name: "Acme"})
		if !errors.Is(err, ErrEmailRequired) {
			t.Errorf("err = %v", err)
		}
		if n := f.Count(t, `SELECT COUNT(*) FROM organisations`); n != 0 {
			t.Errorf("organisation persisted after failed signup")
		}
	})

	t.Run("existing user with removed membership", func(t *testing.T) {
		f, svc := setup(t)
		f.Org(t, "org_old")
		f.Member(t, "org_old", "usr_gone", rbac.RoleMember, models.MembershipRemoved)
		_, err := svc.SignupWithOrganisation(ctx, enginetest.Identity("auth-usr_gone", "usr_gone@example.com"), SignupRequest{Name: "Fresh", OrgType: models.OrgTypeMGA})
		if !errors.Is(err, ErrAlreadyMember) {
			t.Errorf("err = %v, want conflict", err)
		}
	})
}

func TestMeAndCheckMembership(t *testing.T) {
	ctx := context.Background()
	f, svc := setup(t)
	f.Org(t, "org_1")
	owner := f.Member(t, "org_1", "usr_owner", rbac.RoleOwner, models.MembershipActive)

	acct, err := svc.Me(ctx, owner)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if acct.User.ID != "usr_owner" || acct.Organisation.ID != "org_1" || acct.Membership.UserEmail != "usr_owner@example.com" {
		t.Errorf("unexpected account %+v", acct)
	}

	ghost := &auth.Context{UserID: "dev-user", OrganisationID: "org_1", Role: rbac.RoleMember}
	if _, err := svc.Me(ctx, ghost); !errors.Is(err, ErrUserDataNotFound) {
		t.Errorf("Me for unknown user = %v", err)
	}

	check, err := svc.CheckMembership(ctx, enginetest.Identity(owner.SubjectID, owner.Email))
	if err != nil {
		t.Fatalf("CheckMembership: %v", err)
	}
	if !check.HasMembership || *check.OrganisationID != "org_1" || *check.Role != rbac.RoleOwner {
		t.Errorf("unexpected check %+v", check)
	}

	_, err = f.DB.Exec(`INSERT INTO membership_invitations (id, organisation_id, email, role, token_hash, expires_at, created_at)
		VALUES ('inv_1', 'org_1', 'invited@example.com', 'MEMBER', 'h1', 9999, 1)`)
	if err != nil {
		t.Fatalf("seed invitation: %v", err)
	}

	check, _ = svc.CheckMembership(ctx, enginetest.Identity("auth-invited", "Invited@example.com"))
	if check.HasMembership || !check.HasPendingInvitation || check.OrganisationID != nil {
		t.Errorf("unexpected check %+v", check)
	}

	check, _ = svc.CheckMembership(ctx, enginetest.Identity("auth-stranger", "stranger@example.com"))
	if check.HasMembership || check.HasPendingInvitation {
		t.Errorf("unexpected check %+v", check)
	}
}

func TestOrganisation(t *testing.T) {
	ctx := context.Background()
	f, svc := setup(t)
	f.Org(t, "org_1")
	admin := f.Member(t, "org_1", "usr_admin", rbac.RoleAdmin, models.MembershipActive)
	reader := f.Member(t, "org_1", "usr_reader", rbac.RoleReadOnly, models.MembershipActive)

	org, err := svc.GetOrganisation(ctx, reader)
	if err != nil || org.ID != "org_1" {
		t.Fatalf("GetOrganisation = %+v, %v", org, err)
	}

	if _, err := svc.UpdateOrganisation(ctx, reader, UpdateOrganisationRequest{Name: "New"}); errors.KindOf(err) != errors.KindForbidden {
		t.Errorf("reader update = %v, want forbidden", err)
	}

	org, err = svc.UpdateOrganisation(ctx, admin, UpdateOrganisationRequest{Name: "Renamed Ltd"})
	if err != nil {
		t.Fatalf("UpdateOrganisation: %v", err)
	}
	if org.Name != "Renamed Ltd" || org.UpdatedAt != 5000 {
		t.Errorf("unexpected org %+v", org)
	}

	fresh, _ := svc.GetOrganisation(ctx, reader)
	if fresh.Name != "Renamed Ltd" {
		t.Errorf("rename not persisted: %q", fresh.Name)
	}

	stranger := &auth.Context{UserID: "u", OrganisationID: "org_missing", Role: rbac.RoleOwner}
	if _, err := svc.GetOrganisation(ctx, stranger); !errors.Is(err, ErrOrganisationNotFound) {
		t.Errorf("missing org = %v", err)
	}
}
