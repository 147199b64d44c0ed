package status

import (
	"errors"
	"fmt"
)

var ErrUnknownStatus = errors.New("unknown status")

// Status is the lifecycle state of a credit proposal.
type Status string

const (
	Draft              Status = "draft"
	AwaitingAnalysis   Status = "awaiting_analysis"
	UnderAnalysis      Status = "under_analysis"
	Pending            Status = "pending"
	Approved           Status = "approved"
	Rejected           Status = "rejected"
	DocumentGenerated  Status = "document_generated"
	AwaitingSignature  Status = "awaiting_signature"
	SignatureCompleted Status = "signature_completed"
	InvoicesIssued     Status = "invoices_issued"
	PaymentAuthorized  Status = "payment_authorized"
	Current            Status = "current"
	Overdue            Status = "overdue"
	Defaulted          Status = "defaulted"
	Settled            Status = "settled"
	Suspended          Status = "suspended"
	Cancelled          Status = "cancelled"
)

var all = []Status{
	Draft,
	AwaitingAnalysis,
	UnderAnalysis,
	Pending,
	Approved,
	Rejected,
	DocumentGenerated,
	AwaitingSignature,
	SignatureCompleted,
	InvoicesIssued,
	PaymentAuthorized,
	Current,
	Overdue,
	Defaulted,
	Settled,
	Suspended,
	Cancelled,
}

// All returns every status in declaration order.
func All() []Status {
	out := make([]Status, len(all))
	copy(out, all)

	return out
}

// Parse accepts only the canonical lower snake case spelling.
func Parse(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}

	return st, nil
}

func (s Status) Valid() bool {
	for _, v := range all {
		if v == s {
			return true
		}
	}

	return false
}

func (s Status) String() string {
	return string(s)
}

// UnmarshalText rejects values outside the enumeration, so JSON and env decoding
// cannot smuggle in a non-canonical status.
func (s *Status) UnmarshalText(b []byte) error {
	st, err := Parse(string(b))
	if err != nil {
		return err
	}

	*s = st

	return nil
}

// InvalidTransitionError is returned when an edge is missing from the graph.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.From, e.To)
}
