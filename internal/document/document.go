package document

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("credit document not found")

type Status string

const (
	StatusGenerated Status = "generated"
	StatusSent      Status = "sent"
	StatusSigned    Status = "signed"
)

// CreditDocument is the credit instrument (CCB) issued for an approved proposal.
// Rendering the file happens elsewhere; this records where it lives and how far
// it has gone through signature.
type CreditDocument struct {
	ID          uuid.UUID
	ProposalID  uuid.UUID
	Number      string
	Status      Status
	StoragePath string
	SentAt      *time.Time
	SignedAt    *time.Time
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

type Repository interface {
	CreateDocument(ctx context.Context, d *CreditDocument) error
	// GetByProposal returns the most recent live document of the proposal.
	GetByProposal(ctx context.Context, proposalID uuid.UUID) (*CreditDocument, error)
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, st Status, at time.Time) error
}

// Number formats the human-facing document number.
func Number(proposalID uuid.UUID, at time.Time) string {
	return "CCB-" + at.UTC().Format("20060102") + "-" + proposalID.String()[:8]
}
