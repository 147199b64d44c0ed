package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/sony/gobreaker"
)

const (
	QueueFormalization = "formalization"
	QueueSignature     = "signature"
	QueueBilling       = "billing"
	QueueNotifications = "notifications"
	QueueCollections   = "collections"
)

// DefaultRoutes sends each known event type to exactly one queue.
func DefaultRoutes() map[Type]string {
	return map[Type]string{
		ProposalApproved:           QueueFormalization,
		ProposalDocumentGenerated:  QueueSignature,
		ProposalSignatureCompleted: QueueBilling,
		ProposalRejected:           QueueNotifications,
		ProposalPending:            QueueNotifications,
		ProposalCancelled:          QueueNotifications,
		ProposalSettled:            QueueCollections,
	}
}

//go:generate mockgen -source=dispatcher.go -destination=publisher_mock.go -package=event
type Publisher interface {
	Publish(ctx context.Context, queue string, e Event) error
}

// DispatchError reports an event that could not be handed to its queue.
// The transition that produced it is already committed.
type DispatchError struct {
	Event Event
	Queue string
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatching %s for proposal %s to %s: %v", e.Event.Type, e.Event.ProposalID, e.Queue, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Observer is notified of every dispatch outcome.
type Observer interface {
	ObserveDispatch(eventType, queue, outcome string)
}

type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

type Dispatcher struct {
	publisher Publisher
	routes    map[Type]string
	breaker   *gobreaker.CircuitBreaker
	observer  Observer
	logger    *slog.Logger
}

type Option func(*Dispatcher)

func WithRoutes(routes map[Type]string) Option {
	return func(d *Dispatcher) { d.routes = maps.Clone(routes) }
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithBreaker(s BreakerSettings) Option {
	return func(d *Dispatcher) { d.breaker = newBreaker(s, d) }
}

func NewDispatcher(publisher Publisher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		publisher: publisher,
		routes:    DefaultRoutes(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.breaker == nil {
		d.breaker = newBreaker(BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}, d)
	}

	return d
}

func newBreaker(s BreakerSettings, d *Dispatcher) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "event-publisher",
		Timeout: s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			d.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Route returns the queue for t, if any.
func (d *Dispatcher) Route(t Type) (string, bool) {
	q, ok := d.routes[t]
	return q, ok
}

// Dispatch publishes e to its queue. Events without a route are logged and
// dropped. Failures come back as *DispatchError.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) error {
	queue, ok := d.routes[e.Type]
	if !ok {
		d.logger.Warn("dropping event without route", "event_type", e.Type, "proposal_id", e.ProposalID, "event_id", e.ID)
		d.observe(e.Type, "", "dropped")

		return nil
	}

	_, err := d.breaker.Execute(func() (interface{}, error) {
		return nil, d.publisher.Publish(ctx, queue, e)
	})
	if err != nil {
		d.logger.Error("failed to dispatch event",
			"event_type", e.Type, "proposal_id", e.ProposalID, "queue", queue, "error", err)
		d.observe(e.Type, queue, "failed")

		return &DispatchError{Event: e, Queue: queue, Err: err}
	}

	d.logger.Info("event dispatched", "event_type", e.Type, "proposal_id", e.ProposalID, "queue", queue)
	d.observe(e.Type, queue, "published")

	return nil
}

// DispatchAll dispatches every event, continuing past failures.
func (d *Dispatcher) DispatchAll(ctx context.Context, events ...Event) error {
	var errs []error

	for _, e := range events {
		if err := d.Dispatch(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) observe(t Type, queue, outcome string) {
	if d.observer != nil {
		d.observer.ObserveDispatch(string(t), queue, outcome)
	}
}
