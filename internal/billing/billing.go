package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound    = errors.New("billing instrument not found")
	ErrAlreadyPaid = errors.New("billing instrument already paid")
)

type Status string

const (
	StatusOpen Status = "open"
	StatusPaid Status = "paid"
)

// Instrument is one installment charge (boleto) issued for a proposal.
type Instrument struct {
	ID          uuid.UUID
	ProposalID  uuid.UUID
	Installment int
	Amount      decimal.Decimal
	DueDate     time.Time
	Status      Status
	PaidAt      *time.Time
	CreatedAt   time.Time
}

type Repository interface {
	CreateInstruments(ctx context.Context, instruments []*Instrument) error
	GetInstrument(ctx context.Context, id uuid.UUID) (*Instrument, error)
	ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]*Instrument, error)
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Schedule splits principal into termMonths fixed installments at monthlyRate
// (French amortization), due monthly from firstDue. The last installment absorbs
// rounding so the schedule sums to the rounded total.
func Schedule(proposalID uuid.UUID, principal decimal.Decimal, termMonths int, monthlyRate decimal.Decimal, firstDue, now time.Time) ([]*Instrument, error) {
	if termMonths <= 0 {
		return nil, fmt.Errorf("term must be positive, got %d", termMonths)
	}

	if !principal.IsPositive() {
		return nil, fmt.Errorf("principal must be positive, got %s", principal)
	}

	if monthlyRate.IsNegative() {
		return nil, fmt.Errorf("monthly rate must not be negative, got %s", monthlyRate)
	}

	n := decimal.NewFromInt(int64(termMonths))

	var payment decimal.Decimal

	if monthlyRate.IsZero() {
		payment = principal.Div(n)
	} else {
		growth := decimal.NewFromInt(1).Add(monthlyRate).Pow(n)
		payment = principal.Mul(monthlyRate).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	}

	total := payment.Mul(n).Round(2)
	rounded := payment.Round(2)

	instruments := make([]*Instrument, termMonths)
	issued := decimal.Zero

	for i := range termMonths {
		amount := rounded
		if i == termMonths-1 {
			amount = total.Sub(issued)
		}

		issued = issued.Add(amount)

		instruments[i] = &Instrument{
			ID:          uuid.New(),
			ProposalID:  proposalID,
			Installment: i + 1,
			Amount:      amount,
			DueDate:     firstDue.AddDate(0, i, 0),
			Status:      StatusOpen,
			CreatedAt:   now,
		}
	}

	return instruments, nil
}

// AllPaid reports whether every instrument is paid. An empty slice is not paid.
func AllPaid(instruments []*Instrument) bool {
	if len(instruments) == 0 {
		return false
	}

	for _, in := range instruments {
		if in.Status != StatusPaid {
			return false
		}
	}

	return true
}
