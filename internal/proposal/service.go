package proposal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=proposal
type Repository interface {
	CreateProposal(ctx context.Context, p *Proposal) error
	GetProposal(ctx context.Context, id uuid.UUID) (*Proposal, error)
	// LockProposal reads the proposal and holds a row lock until the enclosing
	// transaction ends.
	LockProposal(ctx context.Context, id uuid.UUID) (*Proposal, error)
	UpdateStatus(ctx context.Context, upd StatusUpdate) error
	DeleteProposal(ctx context.Context, id uuid.UUID, at time.Time) error

	UpsertContextualStatus(ctx context.Context, cs *ContextualStatus) error
	GetContextualStatus(ctx context.Context, id uuid.UUID, c Context) (*ContextualStatus, error)
	ListContextualStatuses(ctx context.Context, id uuid.UUID) ([]*ContextualStatus, error)

	CreateNote(ctx context.Context, n *Note) error
	ListNotes(ctx context.Context, id uuid.UUID) ([]*Note, error)
}

// Service serves reads outside of a transition. Writes to status go through
// the transition package.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Proposal, error) {
	return s.repo.GetProposal(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteProposal(ctx, id, s.now().UTC())
}

func (s *Service) ContextualStatuses(ctx context.Context, id uuid.UUID) ([]*ContextualStatus, error) {
	if _, err := s.repo.GetProposal(ctx, id); err != nil {
		return nil, err
	}

	return s.repo.ListContextualStatuses(ctx, id)
}

func (s *Service) Notes(ctx context.Context, id uuid.UUID) ([]*Note, error) {
	if _, err := s.repo.GetProposal(ctx, id); err != nil {
		return nil, err
	}

	return s.repo.ListNotes(ctx, id)
}

// StatusByContext returns the contextual status for c, falling back to the
// legacy column when the proposal has no record for that context yet.
func (s *Service) StatusByContext(ctx context.Context, id uuid.UUID, c Context) (status.Status, error) {
	cs, err := s.repo.GetContextualStatus(ctx, id, c)
	if err == nil {
		return cs.Status, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("getting contextual status: %w", err)
	}

	p, err := s.repo.GetProposal(ctx, id)
	if err != nil {
		return "", err
	}

	return p.Status, nil
}
