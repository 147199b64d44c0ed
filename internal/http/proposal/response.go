package proposal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

type proposalResponse struct {
	ID                  uuid.UUID       `json:"id"`
	Status              status.Status   `json:"status"`
	CustomerName        string          `json:"customer_name"`
	CustomerDocument    string          `json:"customer_document"`
	Amount              decimal.Decimal `json:"amount"`
	TermMonths          int             `json:"term_months"`
	MonthlyRate         decimal.Decimal `json:"monthly_rate"`
	DocumentGeneratedAt *time.Time      `json:"document_generated_at,omitempty"`
	SignedAt            *time.Time      `json:"signed_at,omitempty"`
	PaymentAuthorizedAt *time.Time      `json:"payment_authorized_at,omitempty"`
	SettledAt           *time.Time      `json:"settled_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           *time.Time      `json:"updated_at,omitempty"`
}

func toResponse(p *proposal.Proposal) proposalResponse {
	return proposalResponse{
		ID:                  p.ID,
		Status:              p.Status,
		CustomerName:        p.CustomerName,
		CustomerDocument:    p.CustomerDocument,
		Amount:              p.Amount,
		TermMonths:          p.TermMonths,
		MonthlyRate:         p.MonthlyRate,
		DocumentGeneratedAt: p.DocumentGeneratedAt,
		SignedAt:            p.SignedAt,
		PaymentAuthorizedAt: p.PaymentAuthorizedAt,
		SettledAt:           p.SettledAt,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

type contextualStatusResponse struct {
	Context        proposal.Context `json:"context"`
	Status         status.Status    `json:"status"`
	PreviousStatus status.Status    `json:"previous_status,omitempty"`
	UpdatedBy      string           `json:"updated_by"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
}

func toContextualResponse(cs *proposal.ContextualStatus) contextualStatusResponse {
	return contextualStatusResponse{
		Context:        cs.Context,
		Status:         cs.Status,
		PreviousStatus: cs.PreviousStatus,
		UpdatedBy:      cs.UpdatedBy,
		UpdatedAt:      cs.UpdatedAt,
		Metadata:       cs.Metadata,
	}
}

type statusByContextResponse struct {
	ProposalID uuid.UUID        `json:"proposal_id"`
	Context    proposal.Context `json:"context"`
	Status     status.Status    `json:"status"`
}

type noteResponse struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func toNoteResponse(n *proposal.Note) noteResponse {
	return noteResponse{ID: n.ID, Author: n.Author, Body: n.Body, CreatedAt: n.CreatedAt}
}
