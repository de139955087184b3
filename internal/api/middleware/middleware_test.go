package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apiContext "brokerhub/internal/api/context"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/config"
	"brokerhub/internal/platform/identity"
	"brokerhub/internal/platform/models"
	"brokerhub/internal/platform/rbac"
)

const secret = "middleware-test-secret"

type resolver struct{}

func (resolver) Resolve(_ context.Context, subject string) (*identity.Resolution, error) {
	if subject != "sub-member" {
		return nil, identity.ErrUserNotFound
	}
	return &identity.Resolution{
		User:       &models.User{ID: "usr_1", Email: "member@example.com"},
		Membership: &models.Membership{ID: "mem_1", OrganisationID: "org_1", Role: rbac.RoleMember, Status: models.MembershipActive},
	}, nil
}

func newAuth(t *testing.T) (*AuthMiddleware, *auth.Verifier) {
	t.Helper()
	v := auth.NewVerifier(secret)
	return NewAuthMiddleware(auth.NewAuthenticator(v, resolver{}, config.Production)), v
}

func token(t *testing.T, v *auth.Verifier, subject string) string {
	t.Helper()
	tok, err := v.Sign(subject, subject+"@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return "Bearer " + tok
}

// captured records what the innermost handler saw.
type captured struct {
	called   bool
	ctx      *auth.Context
	identity *auth.Identity
}

func (c *captured) handler(w http.ResponseWriter, r *http.Request) {
	c.called = true
	c.ctx = apiContext.AuthFrom(r.Context())
	c.identity = apiContext.IdentityFrom(r.Context())
	w.WriteHeader(http.StatusOK)
}

func serve(h http.HandlerFunc, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestAuthMiddleware_Handle(t *testing.T) {
	m, v := newAuth(t)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid member", token(t, v, "sub-member"), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"unknown user", token(t, v, "sub-ghost"), http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &captured{}
			rec := serve(m.Handle(c.handler), tt.header)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if c.called != (tt.status == http.StatusOK) {
				t.Errorf("handler called = %v", c.called)
			}
			if c.called && (c.ctx == nil || c.ctx.OrganisationID != "org_1") {
				t.Errorf("context = %+v", c.ctx)
			}
		})
	}
}

func TestAuthMiddleware_Identity(t *testing.T) {
	m, v := newAuth(t)

	c := &captured{}
	rec := serve(m.Identity(c.handler), token(t, v, "sub-new"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if c.identity == nil || c.identity.Subject != "sub-new" || c.ctx != nil {
		t.Errorf("identity = %+v ctx = %+v", c.identity, c.ctx)
	}

	if rec := serve(m.Identity(c.handler), ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d", rec.Code)
	}
}

func TestAuthMiddleware_Optional(t *testing.T) {
	m, v := newAuth(t)

	c := &captured{}
	if rec := serve(m.Optional(c.handler), "Bearer broken"); rec.Code != http.StatusOK || c.ctx != nil {
		t.Errorf("broken token: status = %d ctx = %+v", rec.Code, c.ctx)
	}

	c = &captured{}
	serve(m.Optional(c.handler), token(t, v, "sub-member"))
	if c.ctx == nil || c.ctx.Role != rbac.RoleMember {
		t.Errorf("ctx = %+v", c.ctx)
	}
}

func TestRequire(t *testing.T) {
	m, v := newAuth(t)
	member := token(t, v, "sub-member")

	c := &captured{}
	if rec := serve(m.Handle(RequireMinimum(rbac.RoleMember)(c.handler)), member); rec.Code != http.StatusOK {
		t.Errorf("member on MEMBER+ route: %d", rec.Code)
	}
	if rec := serve(m.Handle(RequireMinimum(rbac.RoleAdmin)(c.handler)), member); rec.Code != http.StatusForbidden {
		t.Errorf("member on ADMIN+ route: %d", rec.Code)
	}
	if rec := serve(m.Handle(RequireRoles(rbac.RoleOwner)(c.handler)), member); rec.Code != http.StatusForbidden {
		t.Errorf("member on OWNER route: %d", rec.Code)
	}

	// Without the auth middleware there is no context at all.
	if rec := serve(RequireMinimum(rbac.RoleReadOnly)(c.handler), member); rec.Code != http.StatusUnauthorized {
		t.Errorf("no context: %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(config.RateLimitConfig{AuthPerMinute: 2})
	rl.now = func() time.Time { return now }

	c := &captured{}
	h := rl.Limit(LimitAuth)(c.handler)

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		if rec := serve(h, ""); rec.Code != want {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, want)
		}
	}

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d", rec.Code)
	}

	now = now.Add(30 * time.Second)
	if rec := serve(h, ""); rec.Code != http.StatusOK {
		t.Errorf("after refill status = %d", rec.Code)
	}

	now = now.Add(time.Hour)
	rl.evict()
	n := 0
	rl.store.Range(func(_, _ interface{}) bool { n++; return true })
	if n != 0 {
		t.Errorf("buckets after evict = %d", n)
	}
}

func TestRateLimiter_DisabledLimit(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{})
	c := &captured{}
	h := rl.Limit(LimitAPIWrite)(c.handler)
	for i := 0; i < 5; i++ {
		if rec := serve(h, ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
}

func TestRequestLogger(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x?token=secret", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}
