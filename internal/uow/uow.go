package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrJamesThe3rd/proposalflow/internal/audit"
	auditStore "github.com/MrJamesThe3rd/proposalflow/internal/audit/store"
	"github.com/MrJamesThe3rd/proposalflow/internal/billing"
	billingStore "github.com/MrJamesThe3rd/proposalflow/internal/billing/store"
	"github.com/MrJamesThe3rd/proposalflow/internal/database"
	"github.com/MrJamesThe3rd/proposalflow/internal/document"
	documentStore "github.com/MrJamesThe3rd/proposalflow/internal/document/store"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	proposalStore "github.com/MrJamesThe3rd/proposalflow/internal/proposal/store"
)

var (
	ErrNestedTransaction   = errors.New("cannot start nested transaction")
	ErrTransactionConflict = errors.New("transaction conflict")
	// ErrTransactionClosed is what repositories return once their transaction
	// has committed or rolled back.
	ErrTransactionClosed = sql.ErrTxDone
)

// Repositories are bound to a single transaction.
type Repositories struct {
	TxID        uuid.UUID
	Proposals   proposal.Repository
	Audit       *audit.Recorder
	Documents   document.Repository
	Instruments billing.Repository
}

// Factory builds the repositories for an open transaction.
type Factory func(tx database.DBTX) *Repositories

func DefaultFactory(dialect database.Dialect) Factory {
	return func(tx database.DBTX) *Repositories {
		return &Repositories{
			Proposals:   proposalStore.New(tx, dialect),
			Audit:       audit.NewRecorder(auditStore.New(tx)),
			Documents:   documentStore.New(tx),
			Instruments: billingStore.New(tx),
		}
	}
}

type Work func(ctx context.Context, repos *Repositories) error

type UnitOfWork struct {
	db        *sql.DB
	factory   Factory
	txOptions *sql.TxOptions
	maxTries  uint
	interval  time.Duration
	tracer    trace.Tracer
}

type Option func(*UnitOfWork)

func WithFactory(f Factory) Option {
	return func(u *UnitOfWork) { u.factory = f }
}

func WithIsolation(level sql.IsolationLevel) Option {
	return func(u *UnitOfWork) { u.txOptions = &sql.TxOptions{Isolation: level} }
}

// WithRetry sets how many times ExecuteWithRetry attempts a transaction that
// fails with ErrTransactionConflict, and the first backoff interval.
func WithRetry(maxTries uint, initialInterval time.Duration) Option {
	return func(u *UnitOfWork) {
		u.maxTries = maxTries
		u.interval = initialInterval
	}
}

func New(db *sql.DB, dialect database.Dialect, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		db:       db,
		factory:  DefaultFactory(dialect),
		maxTries: 3,
		interval: 50 * time.Millisecond,
		tracer:   otel.Tracer("github.com/MrJamesThe3rd/proposalflow/internal/uow"),
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

type activeKey struct{}

// InTransaction reports whether ctx was handed out by ExecuteInTransaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(activeKey{}).(uuid.UUID)
	return ok
}

// ExecuteInTransaction runs work inside one database transaction. It commits when
// work returns nil and rolls back on error or panic. Calling it again with the
// context passed to work fails with ErrNestedTransaction.
func (u *UnitOfWork) ExecuteInTransaction(ctx context.Context, work Work) (err error) {
	if InTransaction(ctx) {
		return ErrNestedTransaction
	}

	txID := uuid.New()

	ctx, span := u.tracer.Start(ctx, "uow.transaction", trace.WithAttributes(attribute.String("tx.id", txID.String())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}()

	dbTx, err := u.db.BeginTx(ctx, u.txOptions)
	if err != nil {
		return classify(fmt.Errorf("beginning transaction: %w", err))
	}

	committed := false

	defer func() {
		if committed {
			return
		}

		if rbErr := dbTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Error("failed to rollback transaction", "tx_id", txID, "error", rbErr)
		}
	}()

	repos := u.factory(dbTx)
	repos.TxID = txID

	if err := work(context.WithValue(ctx, activeKey{}, txID), repos); err != nil {
		return classify(err)
	}

	if err := dbTx.Commit(); err != nil {
		return classify(fmt.Errorf("committing transaction: %w", err))
	}

	committed = true

	return nil
}

// ExecuteWithRetry is ExecuteInTransaction retried with exponential backoff
// while the attempt fails with ErrTransactionConflict.
func (u *UnitOfWork) ExecuteWithRetry(ctx context.Context, work Work) error {
	attempt := 0

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++

		err := u.ExecuteInTransaction(ctx, work)
		if err == nil {
			return struct{}{}, nil
		}

		if errors.Is(err, ErrTransactionConflict) {
			slog.Warn("transaction conflict, retrying", "attempt", attempt, "error", err)
			return struct{}{}, err
		}

		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(u.newBackOff()),
		backoff.WithMaxTries(u.maxTries),
	)

	return err
}

func (u *UnitOfWork) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = u.interval
	b.MaxInterval = 20 * u.interval

	return b
}

// Run is ExecuteWithRetry for work that produces a value.
func Run[T any](ctx context.Context, u *UnitOfWork, work func(ctx context.Context, repos *Repositories) (T, error)) (T, error) {
	var out T

	err := u.ExecuteWithRetry(ctx, func(ctx context.Context, repos *Repositories) error {
		v, err := work(ctx, repos)
		if err != nil {
			return err
		}

		out = v

		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return out, nil
}

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

func classify(err error) error {
	if err == nil || errors.Is(err, ErrTransactionConflict) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return fmt.Errorf("%w: %w", ErrTransactionConflict, err)
		}
	}

	return err
}
