package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v2"

	"brokerhub/internal/engine/records"
	"brokerhub/internal/pkg/validator"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/models"
	"brokerhub/internal/platform/rbac"
	"brokerhub/internal/platform/repositories"
)

type Fixture struct {
	Organisations []OrganisationFixture `yaml:"organisations"`
}

type OrganisationFixture struct {
	ID      string          `yaml:"id"`
	Name    string          `yaml:"name"`
	Type    string          `yaml:"type"`
	Members []MemberFixture `yaml:"members"`
	Clients []ClientFixture `yaml:"clients"`
}

type MemberFixture struct {
	Subject string `yaml:"subject"`
	Email   string `yaml:"email"`
	Name    string `yaml:"name"`
	Role    string `yaml:"role"`
}

type ClientFixture struct {
	FirstName    string          `yaml:"first_name"`
	LastName     string          `yaml:"last_name"`
	Email        string          `yaml:"email"`
	Phone        string          `yaml:"phone"`
	AddressLine1 string          `yaml:"address_line1"`
	AddressLine2 string          `yaml:"address_line2"`
	City         string          `yaml:"city"`
	Postcode     string          `yaml:"postcode"`
	Policies     []PolicyFixture `yaml:"policies"`
}

type PolicyFixture struct {
	InsurerName         string             `yaml:"insurer_name"`
	ProductType         string             `yaml:"product_type"`
	PolicyNumber        string             `yaml:"policy_number"`
	InceptionDate       string             `yaml:"inception_date"`
	ExpiryDate          string             `yaml:"expiry_date"`
	GrossPremiumPennies int64              `yaml:"gross_premium_pennies"`
	Agreements          []AgreementFixture `yaml:"agreements"`
}

type AgreementFixture struct {
	PrincipalAmountPennies int64 `yaml:"principal_amount_pennies"`
	APRBps                 int   `yaml:"apr_bps"`
	TermMonths             int   `yaml:"term_months"`
	BrokerFeeBps           int   `yaml:"broker_fee_bps"`
}

func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, org := range f.Organisations {
		if org.ID == "" || org.Name == "" {
			return nil, fmt.Errorf("organisation %d: id and name are required", i)
		}
		owners := 0
		for _, m := range org.Members {
			role, ok := rbac.ParseRole(m.Role)
			if !ok {
				return nil, fmt.Errorf("organisation %s: member %s has invalid role %q", org.ID, m.Subject, m.Role)
			}
			if role == rbac.RoleOwner {
				owners++
			}
		}
		if owners != 1 {
			return nil, fmt.Errorf("organisation %s: exactly one OWNER required, got %d", org.ID, owners)
		}
	}
	return &f, nil
}

// Seeder writes a fixture. Organisations that already exist are skipped, so
// reseeding is safe.
type Seeder struct {
	tx      *database.TxManager
	repos   *repositories.Set
	records *records.Service
	now     func() time.Time
}

func NewSeeder(tx *database.TxManager, repos *repositories.Set, records *records.Service) *Seeder {
	return &Seeder{tx: tx, repos: repos, records: records, now: time.Now}
}

// Apply returns the owner context of every organisation it created.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) ([]*auth.Context, error) {
	var owners []*auth.Context
	for _, org := range f.Organisations {
		existing, err := s.repos.Organisations.GetByID(ctx, org.ID)
		if err != nil {
			return owners, err
		}
		if existing != nil {
			continue
		}

		owner, err := s.tenancy(ctx, org)
		if err != nil {
			return owners, fmt.Errorf("organisation %s: %w", org.ID, err)
		}
		if err := s.broker(ctx, owner, org.Clients); err != nil {
			return owners, fmt.Errorf("organisation %s: %w", org.ID, err)
		}
		owners = append(owners, owner)
	}
	return owners, nil
}

func (s *Seeder) tenancy(ctx context.Context, org OrganisationFixture) (*auth.Context, error) {
	now := s.now().Unix()
	orgType := models.OrganisationType(org.Type)
	if orgType == "" {
		orgType = models.OrgTypeBroker
	}

	var owner *auth.Context
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Organisations.Create(ctx, &models.Organisation{
			ID: org.ID, Name: org.Name, OrgType: orgType, Status: models.OrgStatusActive, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}

		for _, m := range org.Members {
			email, err := validator.NormalizeEmail(m.Email)
			if err != nil {
				return fmt.Errorf("member %s: %w", m.Subject, err)
			}
			role, _ := rbac.ParseRole(m.Role)

			user := &models.User{
				ID: "usr_" + uuid.New().String(), AuthUserID: m.Subject, Email: email, Name: m.Name, CreatedAt: now, UpdatedAt: now,
			}
			if err := s.repos.Users.Create(ctx, user); err != nil {
				return err
			}
			if err := s.repos.Memberships.Create(ctx, &models.Membership{
				ID: "mem_" + uuid.New().String(), OrganisationID: org.ID, UserID: user.ID,
				Role: role, Status: models.MembershipActive, CreatedAt: now, UpdatedAt: now,
			}); err != nil {
				return err
			}

			if role == rbac.RoleOwner {
				owner = &auth.Context{
					SubjectID: m.Subject, UserID: user.ID, OrganisationID: org.ID, Role: role, Email: email, Name: m.Name,
				}
			}
		}
		return nil
	})
	return owner, err
}

// broker creates records through the records service so schedules and
// audit entries match what the API would have produced.
func (s *Seeder) broker(ctx context.Context, owner *auth.Context, clients []ClientFixture) error {
	for _, cf := range clients {
		c, err := s.records.CreateClient(ctx, owner, records.ClientInput{
			FirstName:    cf.FirstName,
			LastName:     cf.LastName,
			Email:        cf.Email,
			Phone:        cf.Phone,
			AddressLine1: cf.AddressLine1,
			AddressLine2: cf.AddressLine2,
			City:         cf.City,
			Postcode:     cf.Postcode,
		})
		if err != nil {
			return err
		}
		for _, pf := range cf.Policies {
			p, err := s.records.CreatePolicy(ctx, owner, records.PolicyInput{
				ClientID:            c.ID,
				InsurerName:         pf.InsurerName,
				ProductType:         pf.ProductType,
				PolicyNumber:        pf.PolicyNumber,
				InceptionDate:       pf.InceptionDate,
				ExpiryDate:          pf.ExpiryDate,
				GrossPremiumPennies: pf.GrossPremiumPennies,
			})
			if err != nil {
				return err
			}
			for _, af := range pf.Agreements {
				if _, err := s.records.CreateAgreement(ctx, owner, records.AgreementInput{
					ClientID:               c.ID,
					PolicyID:               p.ID,
					PrincipalAmountPennies: af.PrincipalAmountPennies,
					APRBps:                 af.APRBps,
					TermMonths:             af.TermMonths,
					BrokerFeeBps:           af.BrokerFeeBps,
				}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
