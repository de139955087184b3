package models

type Client struct {
	ID             string `json:"id"`
	OrganisationID string `json:"organisation_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	AddressLine1   string `json:"address_line1,omitempty"`
	AddressLine2   string `json:"address_line2,omitempty"`
	City           string `json:"city,omitempty"`
	Postcode       string `json:"postcode,omitempty"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

type Policy struct {
	ID                  string `json:"id"`
	OrganisationID      string `json:"organisation_id"`
	ClientID            string `json:"client_id"`
	InsurerName         string `json:"insurer_name"`
	ProductType         string `json:"product_type"`
	PolicyNumber        string `json:"policy_number"`
	InceptionDate       string `json:"inception_date"`
	ExpiryDate          string `json:"expiry_date"`
	GrossPremiumPennies int64  `json:"gross_premium_pennies"`
	CreatedAt           int64  `json:"created_at"`
	UpdatedAt           int64  `json:"updated_at"`
}

type AgreementStatus string

const (
	AgreementDraft      AgreementStatus = "DRAFT"
	AgreementProposed   AgreementStatus = "PROPOSED"
	AgreementSigned     AgreementStatus = "SIGNED"
	AgreementActive     AgreementStatus = "ACTIVE"
	AgreementDefaulted  AgreementStatus = "DEFAULTED"
	AgreementTerminated AgreementStatus = "TERMINATED"
)

func (s AgreementStatus) Valid() bool {
	switch s {
	case AgreementDraft, AgreementProposed, AgreementSigned, AgreementActive, AgreementDefaulted, AgreementTerminated:
		return true
	}
	return false
}

type Agreement struct {
	ID                     string          `json:"id"`
	OrganisationID         string          `json:"organisation_id"`
	ClientID               string          `json:"client_id"`
	PolicyID               string          `json:"policy_id"`
	PrincipalAmountPennies int64           `json:"principal_amount_pennies"`
	APRBps                 int             `json:"apr_bps"`
	TermMonths             int             `json:"term_months"`
	BrokerFeeBps           int             `json:"broker_fee_bps"`
	Status                 AgreementStatus `json:"status"`
	SignedAt               *int64          `json:"signed_at,omitempty"`
	ActivatedAt            *int64          `json:"activated_at,omitempty"`
	CreatedAt              int64           `json:"created_at"`
	UpdatedAt              int64           `json:"updated_at"`

	Instalments []Instalment `json:"instalments,omitempty"`
}

type InstalmentStatus string

const (
	InstalmentUpcoming InstalmentStatus = "UPCOMING"
	InstalmentPaid     InstalmentStatus = "PAID"
	InstalmentMissed   InstalmentStatus = "MISSED"
)

type Instalment struct {
	ID                string           `json:"id"`
	AgreementID       string           `json:"agreement_id"`
	Sequence          int              `json:"sequence"`
	DueDate           int64            `json:"due_date"`
	AmountDuePennies  int64            `json:"amount_due_pennies"`
	AmountPaidPennies int64            `json:"amount_paid_pennies"`
	Status            InstalmentStatus `json:"status"`
}

type Dashboard struct {
	ActiveAgreements  int   `json:"active_agreements"`
	Defaults          int   `json:"defaults"`
	Terminated        int   `json:"terminated"`
	RevenueYTDPennies int64 `json:"revenue_ytd_pennies"`
	Notifications     []any `json:"notifications"`
}
