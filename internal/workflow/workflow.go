// Package workflow holds the use cases that change more than one aggregate in
// the same unit of work as a status transition.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/proposalflow/internal/billing"
	"github.com/MrJamesThe3rd/proposalflow/internal/document"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
	"github.com/MrJamesThe3rd/proposalflow/internal/transition"
)

type Service struct {
	transitions *transition.Service
	storageRoot string
	now         func() time.Time
}

func NewService(transitions *transition.Service, storageRoot string) *Service {
	return &Service{transitions: transitions, storageRoot: storageRoot, now: time.Now}
}

// GenerateDocument records the credit document of an approved proposal and
// moves it to document_generated.
func (s *Service) GenerateDocument(ctx context.Context, proposalID uuid.UUID, actorID string) (*document.CreditDocument, error) {
	var doc *document.CreditDocument

	_, err := s.transitions.Within(ctx, func(ctx context.Context, tx *transition.Tx) error {
		if _, err := tx.Apply(ctx, transition.Request{
			ProposalID: proposalID,
			NewStatus:  status.DocumentGenerated,
			Context:    proposal.ContextFormalization,
			ActorID:    actorID,
		}); err != nil {
			return err
		}

		existing, err := tx.Repos.Documents.GetByProposal(ctx, proposalID)
		switch {
		case err == nil:
			doc = existing
			return nil
		case !errors.Is(err, document.ErrNotFound):
			return err
		}

		now := s.now().UTC()
		doc = &document.CreditDocument{
			ID:          uuid.New(),
			ProposalID:  proposalID,
			Number:      document.Number(proposalID, now),
			Status:      document.StatusGenerated,
			StoragePath: fmt.Sprintf("%s/%s.pdf", s.storageRoot, proposalID),
			CreatedAt:   now,
		}

		return tx.Repos.Documents.CreateDocument(ctx, doc)
	})
	if err != nil {
		return nil, fmt.Errorf("generating document: %w", err)
	}

	slog.Info("credit document generated", "proposal_id", proposalID, "number", doc.Number)

	return doc, nil
}

// SendForSignature marks the document sent and the proposal awaiting signature.
func (s *Service) SendForSignature(ctx context.Context, proposalID uuid.UUID, actorID string) error {
	return s.advanceDocument(ctx, proposalID, actorID, status.AwaitingSignature, document.StatusSent)
}

// CompleteSignature marks the document signed and the proposal signature_completed.
func (s *Service) CompleteSignature(ctx context.Context, proposalID uuid.UUID, actorID string) error {
	return s.advanceDocument(ctx, proposalID, actorID, status.SignatureCompleted, document.StatusSigned)
}

func (s *Service) advanceDocument(ctx context.Context, proposalID uuid.UUID, actorID string, to status.Status, docStatus document.Status) error {
	_, err := s.transitions.Within(ctx, func(ctx context.Context, tx *transition.Tx) error {
		res, err := tx.Apply(ctx, transition.Request{
			ProposalID: proposalID,
			NewStatus:  to,
			Context:    proposal.ContextFormalization,
			ActorID:    actorID,
		})
		if err != nil {
			return err
		}

		doc, err := tx.Repos.Documents.GetByProposal(ctx, proposalID)
		if err != nil {
			return err
		}

		return tx.Repos.Documents.UpdateDocumentStatus(ctx, doc.ID, docStatus, res.Timestamp)
	})
	if err != nil {
		return fmt.Errorf("moving document to %s: %w", docStatus, err)
	}

	return nil
}

// IssueInvoices creates the installment schedule of a signed proposal and moves
// it to invoices_issued.
func (s *Service) IssueInvoices(ctx context.Context, proposalID uuid.UUID, firstDue time.Time, actorID string) ([]*billing.Instrument, error) {
	var instruments []*billing.Instrument

	_, err := s.transitions.Within(ctx, func(ctx context.Context, tx *transition.Tx) error {
		res, err := tx.Apply(ctx, transition.Request{
			ProposalID: proposalID,
			NewStatus:  status.InvoicesIssued,
			Context:    proposal.ContextCollections,
			ActorID:    actorID,
		})
		if err != nil {
			return err
		}

		existing, err := tx.Repos.Instruments.ListByProposal(ctx, proposalID)
		if err != nil {
			return err
		}

		if len(existing) > 0 {
			instruments = existing
			return nil
		}

		p, err := tx.Repos.Proposals.GetProposal(ctx, proposalID)
		if err != nil {
			return err
		}

		instruments, err = billing.Schedule(p.ID, p.Amount, p.TermMonths, p.MonthlyRate, firstDue, res.Timestamp)
		if err != nil {
			return err
		}

		return tx.Repos.Instruments.CreateInstruments(ctx, instruments)
	})
	if err != nil {
		return nil, fmt.Errorf("issuing invoices: %w", err)
	}

	return instruments, nil
}

// MarkInstrumentPaid records a payment. Once every instrument of the proposal
// is paid the proposal is settled, through current when it has not started
// repayment yet. It reports whether the proposal was settled.
func (s *Service) MarkInstrumentPaid(ctx context.Context, instrumentID uuid.UUID, actorID string) (bool, error) {
	var settled bool

	_, err := s.transitions.Within(ctx, func(ctx context.Context, tx *transition.Tx) error {
		settled = false

		in, err := tx.Repos.Instruments.GetInstrument(ctx, instrumentID)
		if err != nil {
			return err
		}

		if in.Status == billing.StatusPaid {
			return billing.ErrAlreadyPaid
		}

		if err := tx.Repos.Instruments.MarkPaid(ctx, in.ID, s.now().UTC()); err != nil {
			return err
		}

		all, err := tx.Repos.Instruments.ListByProposal(ctx, in.ProposalID)
		if err != nil {
			return err
		}

		if !billing.AllPaid(all) {
			return nil
		}

		p, err := tx.Repos.Proposals.GetProposal(ctx, in.ProposalID)
		if err != nil {
			return err
		}

		path := []status.Status{status.Settled}
		if p.Status == status.InvoicesIssued {
			path = []status.Status{status.Current, status.Settled}
		}

		for _, to := range path {
			if _, err := tx.Apply(ctx, transition.Request{
				ProposalID: in.ProposalID,
				NewStatus:  to,
				Context:    proposal.ContextCollections,
				ActorID:    actorID,
				Reason:     "all installments paid",
			}); err != nil {
				return err
			}
		}

		settled = true

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("marking instrument paid: %w", err)
	}

	return settled, nil
}
