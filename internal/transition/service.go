package transition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrJamesThe3rd/proposalflow/internal/audit"
	"github.com/MrJamesThe3rd/proposalflow/internal/event"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
	"github.com/MrJamesThe3rd/proposalflow/internal/uow"
)

//go:generate mockgen -source=service.go -destination=dispatcher_mock.go -package=transition
type Dispatcher interface {
	Dispatch(ctx context.Context, e event.Event) error
}

type Observer interface {
	ObserveTransition(statusContext, from, to, outcome string, elapsed time.Duration)
}

type Service struct {
	uow         *uow.UnitOfWork
	coordinator *Coordinator
	dispatcher  Dispatcher
	observer    Observer
	validate    *validator.Validate
	tracer      trace.Tracer
}

type Option func(*Service)

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func NewService(u *uow.UnitOfWork, c *Coordinator, d Dispatcher, opts ...Option) *Service {
	s := &Service{
		uow:         u,
		coordinator: c,
		dispatcher:  d,
		validate:    newValidate(),
		tracer:      otel.Tracer("github.com/MrJamesThe3rd/proposalflow/internal/transition"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Tx applies transitions inside a unit of work opened by Service.Within.
type Tx struct {
	Repos *uow.Repositories

	coordinator *Coordinator
	validate    *validator.Validate
	results     []*Result
}

func (t *Tx) Apply(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(t.validate, req); err != nil {
		return nil, err
	}

	res, err := t.coordinator.Apply(ctx, t.Repos, req)
	if err != nil {
		return nil, err
	}

	t.results = append(t.results, res)

	return res, nil
}

// Within runs work in one unit of work, retried on conflict. The events of
// every transition applied through the Tx are dispatched once the unit of work
// has committed. A dispatch failure is logged and copied onto the affected
// Result. It never fails the call.
func (s *Service) Within(ctx context.Context, work func(ctx context.Context, tx *Tx) error) ([]*Result, error) {
	var results []*Result

	err := s.uow.ExecuteWithRetry(ctx, func(ctx context.Context, repos *uow.Repositories) error {
		tx := &Tx{Repos: repos, coordinator: s.coordinator, validate: s.validate}

		if err := work(ctx, tx); err != nil {
			return err
		}

		results = tx.results

		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		if !res.Changed {
			continue
		}

		e := event.TransitionEvent(res.ProposalID, string(res.Context), res.PreviousStatus, res.NewStatus, res.ActorID, res.Timestamp)
		if err := s.dispatcher.Dispatch(ctx, e); err != nil {
			slog.Warn("transition committed but event dispatch failed",
				"proposal_id", res.ProposalID, "event_type", e.Type, "error", err)

			res.DispatchError = err.Error()
		}
	}

	return results, nil
}

// Transition validates and applies a single request. On failure the returned
// Result carries Success=false and the error message alongside the error.
func (s *Service) Transition(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "transition.apply", trace.WithAttributes(
		attribute.String("proposal.id", req.ProposalID.String()),
		attribute.String("transition.to", string(req.NewStatus)),
		attribute.String("transition.context", string(req.Context)),
	))
	defer span.End()

	started := time.Now()

	var res *Result

	results, err := s.Within(ctx, func(ctx context.Context, tx *Tx) error {
		r, err := tx.Apply(ctx, req)
		res = r

		return err
	})
	if err == nil && len(results) == 1 {
		res = results[0]
	}

	outcome := Outcome(err, res)
	if s.observer != nil {
		from := ""
		if res != nil {
			from = string(res.PreviousStatus)
		}

		s.observer.ObserveTransition(string(req.Context), from, string(req.NewStatus), outcome, time.Since(started))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)

		slog.Info("transition rejected", "proposal_id", req.ProposalID, "to", req.NewStatus, "context", req.Context, "outcome", outcome, "error", err)

		return &Result{
			Success:    false,
			ProposalID: req.ProposalID,
			NewStatus:  req.NewStatus,
			Context:    req.Context,
			ActorID:    req.ActorID,
			Timestamp:  time.Now().UTC(),
			Error:      err.Error(),
		}, err
	}

	slog.Info("transition applied",
		"proposal_id", res.ProposalID, "from", res.PreviousStatus, "to", res.NewStatus,
		"context", res.Context, "changed", res.Changed, "actor", res.ActorID)

	return res, nil
}

// Outcome is a low-cardinality label for a transition attempt.
func Outcome(err error, res *Result) string {
	var invalid *status.InvalidTransitionError

	switch {
	case err == nil && res != nil && !res.Changed:
		return "noop"
	case err == nil:
		return "success"
	case errors.As(err, &invalid):
		return "invalid_transition"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, proposal.ErrNotFound):
		return "not_found"
	case errors.Is(err, uow.ErrTransactionConflict):
		return "conflict"
	case errors.Is(err, audit.ErrWriteFailed):
		return "audit_failure"
	default:
		return "error"
	}
}

type OpenParams struct {
	CustomerName     string          `validate:"required,max=200"`
	CustomerDocument string          `validate:"required,max=32"`
	Amount           decimal.Decimal `validate:"-"`
	TermMonths       int             `validate:"min=1,max=480"`
	MonthlyRate      decimal.Decimal `validate:"-"`
	ActorID          string          `validate:"max=128"`
}

// Open creates a proposal in draft, with its general contextual record and
// an initial audit entry.
func (s *Service) Open(ctx context.Context, params OpenParams) (*proposal.Proposal, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}

	if params.MonthlyRate.IsNegative() {
		return nil, fmt.Errorf("%w: monthly rate must not be negative", ErrInvalidRequest)
	}

	actor := params.ActorID
	if actor == "" {
		actor = SystemActor
	}

	return uow.Run(ctx, s.uow, func(ctx context.Context, repos *uow.Repositories) (*proposal.Proposal, error) {
		now := s.coordinator.now().UTC()

		p := &proposal.Proposal{
			ID:               uuid.New(),
			Status:           status.Draft,
			CustomerName:     params.CustomerName,
			CustomerDocument: params.CustomerDocument,
			Amount:           params.Amount,
			TermMonths:       params.TermMonths,
			MonthlyRate:      params.MonthlyRate,
			CreatedAt:        now,
		}
		if err := repos.Proposals.CreateProposal(ctx, p); err != nil {
			return nil, err
		}

		metadata := transitionMetadata(nil, "", status.Draft, now)

		if err := repos.Proposals.UpsertContextualStatus(ctx, &proposal.ContextualStatus{
			ProposalID: p.ID,
			Context:    proposal.ContextGeneral,
			Status:     status.Draft,
			UpdatedBy:  actor,
			UpdatedAt:  now,
			Metadata:   metadata,
		}); err != nil {
			return nil, err
		}

		if err := repos.Audit.Record(ctx, &audit.Entry{
			ProposalID: p.ID,
			Context:    string(proposal.ContextGeneral),
			NewStatus:  status.Draft,
			ActorID:    actor,
			Reason:     "proposal created",
			Metadata:   metadata,
			CreatedAt:  now,
		}); err != nil {
			return nil, err
		}

		return p, nil
	})
}

// History returns the audit trail of a proposal in creation order.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]*audit.Entry, error) {
	var entries []*audit.Entry

	err := s.uow.ExecuteInTransaction(ctx, func(ctx context.Context, repos *uow.Repositories) error {
		if _, err := repos.Proposals.GetProposal(ctx, id); err != nil {
			return err
		}

		var err error
		entries, err = repos.Audit.History(ctx, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// PossibleTransitions returns the proposal's current status and the statuses
// it may move to next.
func (s *Service) PossibleTransitions(ctx context.Context, id uuid.UUID) (status.Status, []status.Status, error) {
	var current status.Status

	err := s.uow.ExecuteInTransaction(ctx, func(ctx context.Context, repos *uow.Repositories) error {
		p, err := repos.Proposals.GetProposal(ctx, id)
		if err != nil {
			return err
		}

		current = p.Status

		return nil
	})
	if err != nil {
		return "", nil, err
	}

	return current, s.coordinator.validator.PossibleTransitions(current), nil
}

func (s *Service) Graph() status.Graph {
	return s.coordinator.validator.Graph()
}
