package proposal

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

var (
	ErrNotFound       = errors.New("proposal not found")
	ErrUnknownContext = errors.New("unknown status context")
)

// Context names the business area a contextual status belongs to.
type Context string

const (
	ContextGeneral       Context = "general"
	ContextPayments      Context = "payments"
	ContextCollections   Context = "collections"
	ContextFormalization Context = "formalization"
)

var contexts = []Context{ContextGeneral, ContextPayments, ContextCollections, ContextFormalization}

func Contexts() []Context {
	return append([]Context(nil), contexts...)
}

func ParseContext(s string) (Context, error) {
	for _, c := range contexts {
		if string(c) == s {
			return c, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownContext, s)
}

func (c *Context) UnmarshalText(b []byte) error {
	parsed, err := ParseContext(string(b))
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}

// Proposal is a credit proposal. Status is the legacy single-column status.
type Proposal struct {
	ID               uuid.UUID
	Status           status.Status
	CustomerName     string
	CustomerDocument string
	Amount           decimal.Decimal
	TermMonths       int
	MonthlyRate      decimal.Decimal

	// Set once, in the same update that moves Status to the matching value.
	DocumentGeneratedAt *time.Time
	SignedAt            *time.Time
	PaymentAuthorizedAt *time.Time
	SettledAt           *time.Time

	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
}

// ContextualStatus is the per-context status record, one per (proposal, context).
type ContextualStatus struct {
	ProposalID     uuid.UUID
	Context        Context
	Status         status.Status
	PreviousStatus status.Status
	UpdatedBy      string
	UpdatedAt      time.Time
	Metadata       map[string]any
}

// Note is a free-text observation attached to a proposal.
type Note struct {
	ID         int64
	ProposalID uuid.UUID
	Author     string
	Body       string
	CreatedAt  time.Time
}

// StatusUpdate is applied to the legacy column in a single statement.
type StatusUpdate struct {
	ID     uuid.UUID
	Status status.Status
	At     time.Time
}
