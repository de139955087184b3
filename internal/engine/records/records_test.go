package records

import (
	"context"
	"testing"
	"time"

	"brokerhub/internal/engine/enginetest"
	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/models"
	"brokerhub/internal/platform/rbac"
)

var fixedNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	*enginetest.Fixture
	svc      *Service
	admin    *auth.Context
	member   *auth.Context
	readOnly *auth.Context
	other    *auth.Context // MEMBER of org_2
}

func setup(t *testing.T) *harness {
	t.Helper()
	f := enginetest.New(t)
	f.Org(t, "org_1")
	f.Org(t, "org_2")
	h := &harness{
		Fixture:  f,
		svc:      NewService(f.Tx, f.Repos, f.Recorder),
		admin:    f.Member(t, "org_1", "u1", rbac.RoleAdmin, models.MembershipActive),
		member:   f.Member(t, "org_1", "u2", rbac.RoleMember, models.MembershipActive),
		readOnly: f.Member(t, "org_1", "u3", rbac.RoleReadOnly, models.MembershipActive),
		other:    f.Member(t, "org_2", "u4", rbac.RoleMember, models.MembershipActive),
	}
	h.svc.now = func() time.Time { return fixedNow }
	return h
}

func (h *harness) client(t *testing.T, actor *auth.Context, first string) *models.Client {
	t.Helper()
	c, err := h.svc.CreateClient(context.Background(), actor, ClientInput{FirstName: first, LastName: "Smith", Email: first + "@Example.com"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	return c
}

func (h *harness) policy(t *testing.T, actor *auth.Context, clientID string) *models.Policy {
	t.Helper()
	p, err := h.svc.CreatePolicy(context.Background(), actor, PolicyInput{
		ClientID: clientID, InsurerName: "Aviva", ProductType: "motor", PolicyNumber: "PN-1",
		InceptionDate: "2026-03-01", ExpiryDate: "2027-02-28", GrossPremiumPennies: 120000,
	})
	if err != nil {
		t.Fatalf("CreatePolicy: %v", err)
	}
	return p
}

func (h *harness) agreement(t *testing.T, actor *auth.Context) *models.Agreement {
	t.Helper()
	c := h.client(t, actor, "ann")
	p := h.policy(t, actor, c.ID)
	a, err := h.svc.CreateAgreement(context.Background(), actor, AgreementInput{
		ClientID: c.ID, PolicyID: p.ID, PrincipalAmountPennies: 100000, APRBps: 1200, TermMonths: 12,
	})
	if err != nil {
		t.Fatalf("CreateAgreement: %v", err)
	}
	return a
}

func TestClients(t *testing.T) {
	ctx := context.Background()

	t.Run("create normalizes email and audits", func(t *testing.T) {
		h := setup(t)
		c := h.client(t, h.member, "ann")
		if c.Email != "ann@example.com" {
			t.Errorf("Email = %q", c.Email)
		}
		if c.OrganisationID != "org_1" {
			t.Errorf("OrganisationID = %q", c.OrganisationID)
		}
		if n := h.Count(t, `SELECT COUNT(*) FROM audit_logs WHERE entity = 'CLIENT' AND action = 'CREATE'`); n != 1 {
			t.Errorf("audit rows = %d, want 1", n)
		}
	})

	t.Run("read only cannot create", func(t *testing.T) {
		h := setup(t)
		_, err := h.svc.CreateClient(ctx, h.readOnly, ClientInput{FirstName: "a", LastName: "b", Email: "a@example.com"})
		if errors.KindOf(err) != errors.KindForbidden {
			t.Errorf("err = %v, want forbidden", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		h := setup(t)
		for _, in := range []ClientInput{
			{FirstName: " ", LastName: "b", Email: "a@example.com"},
			{FirstName: "a", LastName: "b", Email: "nope"},
		} {
			if _, err := h.svc.CreateClient(ctx, h.member, in); errors.KindOf(err) != errors.KindInvalidArgument {
				t.Errorf("CreateClient(%+v) err = %v, want invalid argument", in, err)
			}
		}
	})

	t.Run("other organisation cannot see client", func(t *testing.T) {
		h := setup(t)
		c := h.client(t, h.member, "ann")
		if _, err := h.svc.GetClient(ctx, h.other, c.ID); !errors.Is(err, ErrClientNotFound) {
			t.Errorf("err = %v, want ErrClientNotFound", err)
		}
		if err := h.svc.DeleteClient(ctx, h.admin, "cli_missing"); !errors.Is(err, ErrClientNotFound) {
			t.Errorf("delete missing err = %v", err)
		}
	})

	t.Run("list searches and pages", func(t *testing.T) {
		h := setup(t)
		h.client(t, h.member, "ann")
		h.client(t, h.member, "bob")
		h.client(t, h.member, "annabel")
		h.client(t, h.other, "anne")

		res, err := h.svc.ListClients(ctx, h.readOnly, ClientQuery{Search: "ANN", Limit: 1})
		if err != nil {
			t.Fatalf("ListClients: %v", err)
		}
		if res.Pagination.Total != 2 || res.Pagination.TotalPages != 2 || len(res.Data) != 1 {
			t.Errorf("pagination = %+v, len = %d", res.Pagination, len(res.Data))
		}

		empty, err := h.svc.ListClients(ctx, h.readOnly, ClientQuery{Search: "zed"})
		if err != nil {
			t.Fatalf("ListClients: %v", err)
		}
		if empty.Data == nil || empty.Pagination.Limit != defaultLimit || empty.Pagination.Page != 1 {
			t.Errorf("empty = %+v", empty)
		}

		if _, err := h.svc.ListClients(ctx, h.member, ClientQuery{Limit: 101}); errors.KindOf(err) != errors.KindInvalidArgument {
			t.Errorf("limit 101 err = %v", err)
		}
	})

	t.Run("update", func(t *testing.T) {
		h := setup(t)
		c := h.client(t, h.member, "ann")
		got, err := h.svc.UpdateClient(ctx, h.member, c.ID, ClientInput{FirstName: "Anne", LastName: "Smith", Email: "anne@example.com", City: "Leeds"})
		if err != nil {
			t.Fatalf("UpdateClient: %v", err)
		}
		again, _ := h.svc.GetClient(ctx, h.member, c.ID)
		if got.FirstName != "Anne" || again.City != "Leeds" {
			t.Errorf("client = %+v", again)
		}
	})

	t.Run("delete needs admin and no dependents", func(t *testing.T) {
		h := setup(t)
		a := h.agreement(t, h.member)

		if err := h.svc.DeleteClient(ctx, h.member, a.ClientID); errors.KindOf(err) != errors.KindForbidden {
			t.Errorf("member delete err = %v", err)
		}
		if err := h.svc.DeleteClient(ctx, h.admin, a.ClientID); !errors.Is(err, ErrClientInUse) {
			t.Errorf("delete in use err = %v, want ErrClientInUse", err)
		}

		c := h.client(t, h.member, "bob")
		if err := h.svc.DeleteClient(ctx, h.admin, c.ID); err != nil {
			t.Fatalf("DeleteClient: %v", err)
		}
		if _, err := h.svc.GetClient(ctx, h.admin, c.ID); !errors.Is(err, ErrClientNotFound) {
			t.Errorf("after delete err = %v", err)
		}
	})
}

func TestPolicies(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	c := h.client(t, h.member, "ann")
	p := h.policy(t, h.member, c.ID)

	tests := []struct {
		name string
		in   PolicyInput
		kind errors.Kind
	}{
		{"missing fields", PolicyInput{ClientID: c.ID}, errors.KindInvalidArgument},
		{"bad date", PolicyInput{ClientID: c.ID, InsurerName: "x", ProductType: "y", PolicyNumber: "z", InceptionDate: "01/03/2026", ExpiryDate: "2027-01-01", GrossPremiumPennies: 1}, errors.KindInvalidArgument},
		{"expiry before inception", PolicyInput{ClientID: c.ID, InsurerName: "x", ProductType: "y", PolicyNumber: "z", InceptionDate: "2026-03-01", ExpiryDate: "2026-02-01", GrossPremiumPennies: 1}, errors.KindInvalidArgument},
		{"zero premium", PolicyInput{ClientID: c.ID, InsurerName: "x", ProductType: "y", PolicyNumber: "z", InceptionDate: "2026-03-01", ExpiryDate: "2027-02-01"}, errors.KindInvalidArgument},
		{"client elsewhere", PolicyInput{ClientID: "cli_other", InsurerName: "x", ProductType: "y", PolicyNumber: "z", InceptionDate: "2026-03-01", ExpiryDate: "2027-02-01", GrossPremiumPennies: 1}, errors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.CreatePolicy(ctx, h.member, tt.in)
			if errors.KindOf(err) != tt.kind {
				t.Errorf("err = %v, want kind %v", err, tt.kind)
			}
		})
	}

	t.Run("list by client", func(t *testing.T) {
		other := h.client(t, h.member, "bob")
		h.policy(t, h.member, other.ID)

		all, err := h.svc.ListPolicies(ctx, h.readOnly, "")
		if err != nil {
			t.Fatalf("ListPolicies: %v", err)
		}
		mine, err := h.svc.ListPolicies(ctx, h.readOnly, c.ID)
		if err != nil {
			t.Fatalf("ListPolicies: %v", err)
		}
		if len(all) != 2 || len(mine) != 1 || mine[0].ID != p.ID {
			t.Errorf("all = %d, mine = %v", len(all), mine)
		}
	})

	t.Run("isolated", func(t *testing.T) {
		if _, err := h.svc.GetPolicy(ctx, h.other, p.ID); !errors.Is(err, ErrPolicyNotFound) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestCreateAgreement(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	a := h.agreement(t, h.member)

	if a.Status != models.AgreementDraft {
		t.Errorf("Status = %s", a.Status)
	}
	if *a.SignedAt != fixedNow.Unix() || *a.ActivatedAt != fixedNow.Add(24*time.Hour).Unix() {
		t.Errorf("signed = %d activated = %d", *a.SignedAt, *a.ActivatedAt)
	}

	got, err := h.svc.GetAgreement(ctx, h.readOnly, a.ID)
	if err != nil {
		t.Fatalf("GetAgreement: %v", err)
	}
	if len(got.Instalments) != 12 {
		t.Fatalf("instalments = %d, want 12", len(got.Instalments))
	}
	var total int64
	for i, in := range got.Instalments {
		if in.Sequence != i+1 {
			t.Errorf("sequence[%d] = %d", i, in.Sequence)
		}
		total += in.AmountDuePennies
	}
	if total != 106619 {
		t.Errorf("total repayable = %d, want 106619", total)
	}
	if got.Instalments[0].DueDate != fixedNow.Unix() {
		t.Errorf("first due = %d", got.Instalments[0].DueDate)
	}

	t.Run("rejections", func(t *testing.T) {
		c := h.client(t, h.member, "bob")
		p := h.policy(t, h.member, c.ID)
		foreign := h.client(t, h.other, "zed")

		tests := []struct {
			name string
			in   AgreementInput
			want error
			kind errors.Kind
		}{
			{"bad term", AgreementInput{ClientID: c.ID, PolicyID: p.ID, PrincipalAmountPennies: 1000, TermMonths: 0}, nil, errors.KindInvalidArgument},
			{"broker fee", AgreementInput{ClientID: c.ID, PolicyID: p.ID, PrincipalAmountPennies: 1000, TermMonths: 3, BrokerFeeBps: 10001}, ErrBrokerFee, errors.KindInvalidArgument},
			{"foreign client", AgreementInput{ClientID: foreign.ID, PolicyID: p.ID, PrincipalAmountPennies: 1000, TermMonths: 3}, ErrClientOrPolicy, errors.KindNotFound},
			{"mismatched policy", AgreementInput{ClientID: c.ID, PolicyID: a.PolicyID, PrincipalAmountPennies: 1000, TermMonths: 3}, ErrPolicyClientMismatch, errors.KindInvalidArgument},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := h.svc.CreateAgreement(ctx, h.member, tt.in)
				if tt.want != nil && !errors.Is(err, tt.want) {
					t.Errorf("err = %v, want %v", err, tt.want)
				}
				if errors.KindOf(err) != tt.kind {
					t.Errorf("kind = %v, want %v", errors.KindOf(err), tt.kind)
				}
			})
		}
		if _, err := h.svc.CreateAgreement(ctx, h.readOnly, AgreementInput{}); errors.KindOf(err) != errors.KindForbidden {
			t.Errorf("read only err = %v", err)
		}
	})
}

func TestProposeAgreement(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	a := h.agreement(t, h.member)

	got, err := h.svc.ProposeAgreement(ctx, h.member, a.ID)
	if err != nil {
		t.Fatalf("ProposeAgreement: %v", err)
	}
	if got.Status != models.AgreementProposed {
		t.Errorf("Status = %s", got.Status)
	}

	if _, err := h.svc.ProposeAgreement(ctx, h.member, a.ID); !errors.Is(err, ErrNotDraft) {
		t.Errorf("second propose err = %v, want ErrNotDraft", err)
	}
	if _, err := h.svc.ProposeAgreement(ctx, h.other, a.ID); !errors.Is(err, ErrNotDraft) {
		t.Errorf("cross-org propose err = %v", err)
	}
	if n := h.Count(t, `SELECT COUNT(*) FROM audit_logs WHERE action = 'PROPOSE' AND entity_id = $1`, a.ID); n != 1 {
		t.Errorf("propose audit rows = %d", n)
	}
}

func TestListAgreements(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	a := h.agreement(t, h.member)
	h.agreement(t, h.member)
	if _, err := h.svc.ProposeAgreement(ctx, h.member, a.ID); err != nil {
		t.Fatal(err)
	}

	res, err := h.svc.ListAgreements(ctx, h.readOnly, AgreementQuery{Status: models.AgreementProposed})
	if err != nil {
		t.Fatalf("ListAgreements: %v", err)
	}
	if res.Pagination.Total != 1 || res.Data[0].ID != a.ID {
		t.Errorf("res = %+v", res)
	}

	if _, err := h.svc.ListAgreements(ctx, h.readOnly, AgreementQuery{Status: "PAID"}); !errors.Is(err, ErrInvalidStatusFilter) {
		t.Errorf("err = %v", err)
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	active := h.agreement(t, h.member)
	h.agreement(t, h.member)
	defaulted := h.agreement(t, h.member)
	h.agreement(t, h.other)

	for id, status := range map[string]models.AgreementStatus{active.ID: models.AgreementActive, defaulted.ID: models.AgreementDefaulted} {
		if _, err := h.DB.Exec(`UPDATE agreements SET status = $1 WHERE id = $2`, status, id); err != nil {
			t.Fatal(err)
		}
	}
	lastYear := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC).Unix()
	old := h.agreement(t, h.member)
	if _, err := h.DB.Exec(`UPDATE agreements SET status = 'ACTIVE', signed_at = $1 WHERE id = $2`, lastYear, old.ID); err != nil {
		t.Fatal(err)
	}

	d, err := h.svc.Dashboard(ctx, h.readOnly)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.ActiveAgreements != 2 || d.Defaults != 1 || d.Terminated != 0 {
		t.Errorf("counts = %+v", d)
	}
	// 2% of the one ACTIVE agreement signed this year.
	if d.RevenueYTDPennies != 2000 {
		t.Errorf("RevenueYTDPennies = %d, want 2000", d.RevenueYTDPennies)
	}
	if d.Notifications == nil || len(d.Notifications) != 0 {
		t.Errorf("Notifications = %v", d.Notifications)
	}

	if _, err := h.svc.Dashboard(ctx, nil); errors.KindOf(err) != errors.KindForbidden {
		t.Errorf("nil actor err = %v", err)
	}
}
