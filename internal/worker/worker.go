// Package worker consumes the queues events are dispatched to and drives the
// follow-up steps of the proposal workflow.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/proposalflow/internal/billing"
	"github.com/MrJamesThe3rd/proposalflow/internal/document"
	"github.com/MrJamesThe3rd/proposalflow/internal/event"
	"github.com/MrJamesThe3rd/proposalflow/internal/event/redisqueue"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

// Actor is recorded on transitions the worker applies.
const Actor = "worker"

//go:generate mockgen -source=worker.go -destination=workflow_mock.go -package=worker
type Workflow interface {
	GenerateDocument(ctx context.Context, proposalID uuid.UUID, actorID string) (*document.CreditDocument, error)
	SendForSignature(ctx context.Context, proposalID uuid.UUID, actorID string) error
	IssueInvoices(ctx context.Context, proposalID uuid.UUID, firstDue time.Time, actorID string) ([]*billing.Instrument, error)
}

type Queue interface {
	Next(ctx context.Context, timeout time.Duration, queues ...string) (*redisqueue.Job, string, error)
	Retry(ctx context.Context, queue string, job *redisqueue.Job) error
	Bury(ctx context.Context, queue string, job *redisqueue.Job) error
}

type Worker struct {
	queue       Queue
	flow        Workflow
	maxAttempts int
	poll        time.Duration
	firstDueIn  time.Duration
	now         func() time.Time
}

type Option func(*Worker)

func WithMaxAttempts(n int) Option {
	return func(w *Worker) { w.maxAttempts = n }
}

func WithPollTimeout(d time.Duration) Option {
	return func(w *Worker) { w.poll = d }
}

// WithFirstDueIn sets how long after issuing the first installment falls due.
func WithFirstDueIn(d time.Duration) Option {
	return func(w *Worker) { w.firstDueIn = d }
}

func New(q Queue, flow Workflow, opts ...Option) *Worker {
	w := &Worker{
		queue:       q,
		flow:        flow,
		maxAttempts: 5,
		poll:        5 * time.Second,
		firstDueIn:  30 * 24 * time.Hour,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

func Queues() []string {
	return []string{
		event.QueueFormalization,
		event.QueueSignature,
		event.QueueBilling,
		event.QueueNotifications,
		event.QueueCollections,
	}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := w.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			slog.Error("worker step failed", "error", err)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// Step handles at most one job. It reports whether a job was taken.
func (w *Worker) Step(ctx context.Context) (bool, error) {
	job, queue, err := w.queue.Next(ctx, w.poll, Queues()...)
	if err != nil || job == nil {
		return false, err
	}

	logger := slog.With("queue", queue, "job_id", job.ID, "event_type", job.Name, "proposal_id", job.Data.ProposalID)

	err = w.Handle(ctx, job.Data)

	var invalid *status.InvalidTransitionError

	switch {
	case err == nil:
		logger.Info("job done")
		return true, nil
	case errors.As(err, &invalid):
		// The proposal moved on since the event was emitted.
		logger.Warn("job skipped", "error", err)
		return true, nil
	case job.Attempts+1 >= w.maxAttempts:
		logger.Error("job failed, burying", "attempts", job.Attempts+1, "error", err)
		return true, w.queue.Bury(ctx, queue, job)
	default:
		logger.Warn("job failed, retrying", "attempts", job.Attempts+1, "error", err)
		return true, w.queue.Retry(ctx, queue, job)
	}
}

// Handle runs the workflow step an event calls for. Events that only inform
// are logged.
func (w *Worker) Handle(ctx context.Context, e event.Event) error {
	switch e.Type {
	case event.ProposalApproved:
		_, err := w.flow.GenerateDocument(ctx, e.ProposalID, Actor)
		return err
	case event.ProposalDocumentGenerated:
		return w.flow.SendForSignature(ctx, e.ProposalID, Actor)
	case event.ProposalSignatureCompleted:
		_, err := w.flow.IssueInvoices(ctx, e.ProposalID, w.now().UTC().Add(w.firstDueIn), Actor)
		return err
	default:
		slog.Info("proposal notification", "event_type", e.Type, "proposal_id", e.ProposalID, "from", e.From, "to", e.To)
		return nil
	}
}
