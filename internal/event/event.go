package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

type Type string

const (
	ProposalApproved           Type = "proposal.approved"
	ProposalRejected           Type = "proposal.rejected"
	ProposalPending            Type = "proposal.pending"
	ProposalCancelled          Type = "proposal.cancelled"
	ProposalDocumentGenerated  Type = "proposal.document_generated"
	ProposalSignatureCompleted Type = "proposal.signature_completed"
	ProposalSettled            Type = "proposal.settled"
	// ProposalStatusChanged covers every other transition. It has no default
	// route and is dropped unless a route is configured for it.
	ProposalStatusChanged Type = "proposal.status_changed"
)

// Event is a domain notification emitted after a transition commits.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       Type           `json:"type"`
	ProposalID uuid.UUID      `json:"proposal_id"`
	Context    string         `json:"context"`
	From       status.Status  `json:"from"`
	To         status.Status  `json:"to"`
	ActorID    string         `json:"actor_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// TypeFor maps the target status of a transition to the event it emits.
func TypeFor(to status.Status) Type {
	switch to {
	case status.Approved:
		return ProposalApproved
	case status.Rejected:
		return ProposalRejected
	case status.Pending:
		return ProposalPending
	case status.Cancelled:
		return ProposalCancelled
	case status.DocumentGenerated:
		return ProposalDocumentGenerated
	case status.SignatureCompleted:
		return ProposalSignatureCompleted
	case status.Settled:
		return ProposalSettled
	default:
		return ProposalStatusChanged
	}
}

// TransitionEvent builds the event for a committed from → to change.
func TransitionEvent(proposalID uuid.UUID, context string, from, to status.Status, actorID string, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       TypeFor(to),
		ProposalID: proposalID,
		Context:    context,
		From:       from,
		To:         to,
		ActorID:    actorID,
		OccurredAt: at,
	}
}
