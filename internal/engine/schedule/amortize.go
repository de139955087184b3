// Package schedule builds fixed-payment instalment plans in integer pennies.
package schedule

import (
	"math"
	"time"

	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/models"
)

const (
	MaxTermMonths = 120
	MaxAPRBps     = 10000
	// MaxPrincipalPennies keeps every total well inside float64's exact
	// integer range.
	MaxPrincipalPennies = 100_000_000_000

	interval = 30 * 24 * time.Hour
)

var (
	ErrPrincipal = errors.InvalidArgument("Principal must be greater than zero and at most 1000000000.00")
	ErrTerm      = errors.InvalidArgument("Term must be between 1 and 120 months")
	ErrAPR       = errors.InvalidArgument("APR must be between 0 and 10000 basis points")
)

type Terms struct {
	PrincipalPennies int64
	APRBps           int
	TermMonths       int
}

func (t Terms) Validate() error {
	switch {
	case t.PrincipalPennies <= 0 || t.PrincipalPennies > MaxPrincipalPennies:
		return ErrPrincipal
	case t.TermMonths < 1 || t.TermMonths > MaxTermMonths:
		return ErrTerm
	case t.APRBps < 0 || t.APRBps > MaxAPRBps:
		return ErrAPR
	}
	return nil
}

// payment is the exact, unrounded monthly payment in pennies.
func (t Terms) payment() float64 {
	p := float64(t.PrincipalPennies)
	n := float64(t.TermMonths)
	r := float64(t.APRBps) / 10000 / 12
	if r == 0 {
		return p / n
	}
	return p * r / (1 - math.Pow(1+r, -n))
}

// MonthlyPayment is the regular instalment rounded to the penny.
func (t Terms) MonthlyPayment() int64 {
	return int64(math.Round(t.payment()))
}

// TotalRepayable is what the borrower pays over the whole term.
func (t Terms) TotalRepayable() int64 {
	return int64(math.Round(t.payment() * float64(t.TermMonths)))
}

// Build returns one UPCOMING instalment per month, due every 30 days from
// start. Every instalment but the last is MonthlyPayment; the last absorbs
// the rounding so the plan sums to TotalRepayable. When rounding up would
// leave the last instalment negative, as with tiny principals over long
// terms, the regular amount drops to the floor of total over term.
func Build(t Terms, start time.Time) ([]models.Instalment, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	regular := t.MonthlyPayment()
	total := t.TotalRepayable()
	if regular*int64(t.TermMonths-1) > total {
		regular = total / int64(t.TermMonths)
	}

	plan := make([]models.Instalment, t.TermMonths)
	for i := range plan {
		amount := regular
		if i == t.TermMonths-1 {
			amount = total - regular*int64(t.TermMonths-1)
		}
		plan[i] = models.Instalment{
			Sequence:         i + 1,
			DueDate:          start.Add(time.Duration(i) * interval).Unix(),
			AmountDuePennies: amount,
			Status:           models.InstalmentUpcoming,
		}
	}
	return plan, nil
}
