package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

// ErrWriteFailed marks a failed append. A transition that cannot be audited
// must not commit.
var ErrWriteFailed = errors.New("audit write failed")

// Entry is one immutable record of a status change.
type Entry struct {
	ID             int64
	ProposalID     uuid.UUID
	Context        string
	PreviousStatus status.Status
	NewStatus      status.Status
	ActorID        string
	Reason         string
	Metadata       map[string]any
	CreatedAt      time.Time
}

//go:generate mockgen -source=audit.go -destination=repository_mock.go -package=audit
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]*Entry, error)
}

type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record appends e. Any failure is reported as ErrWriteFailed.
func (r *Recorder) Record(ctx context.Context, e *Entry) error {
	if err := r.repo.Append(ctx, e); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	return nil
}

// History returns every entry for the proposal in creation order.
func (r *Recorder) History(ctx context.Context, proposalID uuid.UUID) ([]*Entry, error) {
	entries, err := r.repo.ListByProposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}

	return entries, nil
}
