package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/config"
	"brokerhub/internal/platform/identity"
	"brokerhub/internal/platform/models"
	"brokerhub/internal/platform/rbac"
)

type fakeResolver struct {
	calls int
}

func (f *fakeResolver) Resolve(_ context.Context, subject string) (*identity.Resolution, error) {
	f.calls++
	switch subject {
	case "sub-owner":
		return &identity.Resolution{
			User:       &models.User{ID: "usr_1", Email: "owner@example.com", Name: "Owner"},
			Membership: &models.Membership{ID: "mem_1", OrganisationID: "org_1", Role: rbac.RoleOwner, Status: models.MembershipActive},
		}, nil
	case "sub-orphan":
		return nil, identity.ErrNoActiveMembership
	}
	return nil, identity.ErrUserNotFound
}

func header(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestAuthenticator_Bearer(t *testing.T) {
	v := NewVerifier(testSecret)
	resolver := &fakeResolver{}
	a := NewAuthenticator(v, resolver, config.Production)

	token, _ := v.Sign("sub-owner", "owner@example.com", time.Hour)
	orphan, _ := v.Sign("sub-orphan", "orphan@example.com", time.Hour)

	t.Run("resolves membership", func(t *testing.T) {
		c, err := a.Authenticate(context.Background(), header("Authorization", "Bearer "+token))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.UserID != "usr_1" || c.OrganisationID != "org_1" || c.Role != rbac.RoleOwner || c.SubjectID != "sub-owner" {
			t.Errorf("unexpected context %+v", c)
		}
		if c.Credential != token {
			t.Error("credential not carried")
		}
	})

	t.Run("no membership is forbidden", func(t *testing.T) {
		_, err := a.Authenticate(context.Background(), header("Authorization", "Bearer "+orphan))
		if errors.KindOf(err) != errors.KindForbidden {
			t.Errorf("expected forbidden, got %v", err)
		}
	})

	t.Run("empty bearer", func(t *testing.T) {
		_, err := a.Authenticate(context.Background(), header("Authorization", "Bearer "))
		if errors.KindOf(err) != errors.KindUnauthorized {
			t.Errorf("expected unauthorized, got %v", err)
		}
	})

	t.Run("bad token skips resolver", func(t *testing.T) {
		before := resolver.calls
		_, err := a.Authenticate(context.Background(), header("Authorization", "Bearer garbage"))
		if errors.KindOf(err) != errors.KindUnauthorized {
			t.Errorf("expected unauthorized, got %v", err)
		}
		if resolver.calls != before {
			t.Error("resolver must not run for an invalid token")
		}
	})

	t.Run("dev headers ignored outside development", func(t *testing.T) {
		_, err := a.Authenticate(context.Background(), header("X-User-Id", "u", "X-Org-Id", "o"))
		if !errors.Is(err, errMissingCredentials) {
			t.Errorf("expected missing credentials, got %v", err)
		}
	})

	t.Run("other scheme", func(t *testing.T) {
		_, err := a.Authenticate(context.Background(), header("Authorization", "Basic dTpw"))
		if !errors.Is(err, errMissingCredentials) {
			t.Errorf("expected missing credentials, got %v", err)
		}
	})
}

func TestAuthenticator_Identity(t *testing.T) {
	v := NewVerifier(testSecret)
	resolver := &fakeResolver{}
	a := NewAuthenticator(v, resolver, config.Development)

	token, _ := v.Sign("sub-new", "new@example.com", time.Hour)

	id, err := a.AuthenticateIdentity(header("Authorization", "Bearer "+token))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Subject != "sub-new" || id.Email != "new@example.com" {
		t.Errorf("unexpected identity %+v", id)
	}
	if resolver.calls != 0 {
		t.Error("identity authentication must not resolve memberships")
	}

	if _, err := a.AuthenticateIdentity(header("X-User-Id", "u", "X-Org-Id", "o")); errors.KindOf(err) != errors.KindUnauthorized {
		t.Errorf("dev headers must not satisfy identity authentication, got %v", err)
	}
}

func TestAuthenticator_Optional(t *testing.T) {
	v := NewVerifier(testSecret)
	a := NewAuthenticator(v, &fakeResolver{}, config.Staging)

	if c := a.AuthenticateOptional(context.Background(), http.Header{}); c != nil {
		t.Errorf("expected nil, got %+v", c)
	}

	token, _ := v.Sign("sub-owner", "owner@example.com", time.Hour)
	if c := a.AuthenticateOptional(context.Background(), header("Authorization", "Bearer "+token)); c == nil {
		t.Error("expected context")
	}
}

func TestContext_NilActor(t *testing.T) {
	var c *Context
	if err := rbac.RequireMinimum(rbac.RoleReadOnly)(c); err == nil {
		t.Error("nil context must fail every check")
	}
	if c.ActorOrganisation() != "" {
		t.Error("nil context has no organisation")
	}
}
