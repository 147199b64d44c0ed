package uow_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/proposalflow/internal/database"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
	"github.com/MrJamesThe3rd/proposalflow/internal/testutil/sqlitedb"
	"github.com/MrJamesThe3rd/proposalflow/internal/uow"
)

func newUnit(t *testing.T, opts ...uow.Option) (*uow.UnitOfWork, *sql.DB) {
	t.Helper()

	db := sqlitedb.Open(t)
	opts = append([]uow.Option{uow.WithRetry(3, time.Millisecond)}, opts...)

	return uow.New(db, database.SQLite, opts...), db
}

func createProposal(ctx context.Context, repos *uow.Repositories) (*proposal.Proposal, error) {
	p := &proposal.Proposal{
		Status:      status.Draft,
		Amount:      decimal.NewFromInt(1000),
		MonthlyRate: decimal.Zero,
		CreatedAt:   time.Now().UTC(),
	}

	return p, repos.Proposals.CreateProposal(ctx, p)
}

func countProposals(t *testing.T, db *sql.DB) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM proposals`).Scan(&n))

	return n
}

func TestExecuteInTransaction_Commits(t *testing.T) {
	u, db := newUnit(t)

	err := u.ExecuteInTransaction(context.Background(), func(ctx context.Context, repos *uow.Repositories) error {
		assert.True(t, uow.InTransaction(ctx))
		assert.NotEqual(t, uuid.Nil, repos.TxID)

		_, err := createProposal(ctx, repos)

		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 1, countProposals(t, db))
}

func TestExecuteInTransaction_RollsBackOnError(t *testing.T) {
	u, db := newUnit(t)
	boom := errors.New("boom")

	err := u.ExecuteInTransaction(context.Background(), func(ctx context.Context, repos *uow.Repositories) error {
		if _, err := createProposal(ctx, repos); err != nil {
			return err
		}

		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 0, countProposals(t, db))
}

func TestExecuteInTransaction_RollsBackOnPanic(t *testing.T) {
	u, db := newUnit(t)

	assert.Panics(t, func() {
		_ = u.ExecuteInTransaction(context.Background(), func(ctx context.Context, repos *uow.Repositories) error {
			if _, err := createProposal(ctx, repos); err != nil {
				return err
			}

			panic("unexpected")
		})
	})

	assert.Equal(t, 0, countProposals(t, db))

	// The connection went back to the pool in a usable state.
	require.NoError(t, u.ExecuteInTransaction(context.Background(), func(ctx context.Context, repos *uow.Repositories) error {
		_, err := createProposal(ctx, repos)
		return err
	}))
	assert.Equal(t, 1, countProposals(t, db))
}

func TestExecuteInTransaction_RejectsNesting(t *testing.T) {
	u, db := newUnit(t)

	var innerCalled bool

	err := u.ExecuteInTransaction(context.Background(), func(ctx context.Context, repos *uow.Repositories) error {
		nestedErr := u.ExecuteInTransaction(ctx, func(context.Context, *uow.Repositories) error {
			innerCalled = true
			return nil
		})
		assert.ErrorIs(t, nestedErr, uow.ErrNestedTransaction)

		assert.ErrorIs(t, u.ExecuteWithRetry(ctx, func(context.Context, *uow.Repositories) error { return nil }), uow.ErrNestedTransaction)

		_, err := createProposal(ctx, repos)

		return err
	})
	require.NoError(t, err)

	assert.False(t, innerCalled)
	assert.Equal(t, 1, countProposals(t, db))
}

func TestExecuteInTransaction_RepositoriesInvalidAfterTeardown(t *testing.T) {
	u, _ := newUnit(t)

	var (
		leaked *uow.Repositories
		id     uuid.UUID
	)

	require.NoError(t, u.ExecuteInTransaction(context.Background(), func(ctx context.Context, repos *uow.Repositories) error {
		leaked = repos

		p, err := createProposal(ctx, repos)
		id = p.ID

		return err
	}))

	_, err := leaked.Proposals.GetProposal(context.Background(), id)
	assert.ErrorIs(t, err, uow.ErrTransactionClosed)

	_, err = leaked.Instruments.ListByProposal(context.Background(), id)
	assert.ErrorIs(t, err, uow.ErrTransactionClosed)
}

func TestExecuteWithRetry(t *testing.T) {
	type testCase struct {
		name      string
		failures  int
		failWith  error
		wantCalls int
		wantErr   error
	}

	tests := []testCase{
		{name: "NoConflict", wantCalls: 1},
		{name: "SerializationFailureRetried", failures: 2, failWith: &pgconn.PgError{Code: "40001"}, wantCalls: 3},
		{name: "DeadlockRetried", failures: 1, failWith: &pgconn.PgError{Code: "40P01"}, wantCalls: 2},
		{name: "GivesUpAfterMaxTries", failures: 5, failWith: &pgconn.PgError{Code: "40001"}, wantCalls: 3, wantErr: uow.ErrTransactionConflict},
		{name: "OtherErrorsNotRetried", failures: 5, failWith: proposal.ErrNotFound, wantCalls: 1, wantErr: proposal.ErrNotFound},
		{name: "UniqueViolationNotRetried", failures: 5, failWith: &pgconn.PgError{Code: "23505"}, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, _ := newUnit(t)
			calls := 0

			err := u.ExecuteWithRetry(context.Background(), func(context.Context, *uow.Repositories) error {
				calls++
				if calls <= tt.failures {
					return tt.failWith
				}

				return nil
			})

			assert.Equal(t, tt.wantCalls, calls)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.failures >= tt.wantCalls && tt.failures > 0:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestRun(t *testing.T) {
	u, _ := newUnit(t)

	p, err := uow.Run(context.Background(), u, createProposal)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)

	got, err := uow.Run(context.Background(), u, func(ctx context.Context, repos *uow.Repositories) (*proposal.Proposal, error) {
		return repos.Proposals.GetProposal(ctx, p.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, status.Draft, got.Status)
}
