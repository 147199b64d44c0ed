//go:build integration

package transition_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/proposalflow/internal/database"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
	"github.com/MrJamesThe3rd/proposalflow/internal/transition"
	"github.com/MrJamesThe3rd/proposalflow/internal/uow"
)

func setupPostgres(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("proposalflow"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(connStr))

	return connStr
}

func TestIntegration_ConcurrentTransitions(t *testing.T) {
	connStr := setupPostgres(t)
	ctx := context.Background()

	db, err := database.New(connStr, database.PoolConfig{MaxOpenConns: 10, MaxIdleConns: 2, ConnMaxLifetime: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctrl := gomock.NewController(t)
	d := transition.NewMockDispatcher(ctrl)
	d.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	coord := transition.NewCoordinator(status.NewValidator(status.DefaultGraph()), time.Now)
	svc := transition.NewService(uow.New(db, database.Postgres, uow.WithRetry(5, 10*time.Millisecond)), coord, d)

	p, err := svc.Open(ctx, transition.OpenParams{
		CustomerName:     "Carla Dias",
		CustomerDocument: "555.666.777-88",
		Amount:           decimal.RequireFromString("20000.00"),
		TermMonths:       24,
		MonthlyRate:      decimal.RequireFromString("0.018"),
	})
	require.NoError(t, err)

	targets := []status.Status{status.Approved, status.Rejected}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		applied  []status.Status
		rejected int
	)

	for _, to := range targets {
		wg.Add(1)

		go func(to status.Status) {
			defer wg.Done()

			_, err := svc.Transition(ctx, transition.Request{
				ProposalID: p.ID,
				NewStatus:  to,
				Context:    proposal.ContextGeneral,
				ActorID:    "analyst",
			})

			mu.Lock()
			defer mu.Unlock()

			var invalid *status.InvalidTransitionError

			switch {
			case err == nil:
				applied = append(applied, to)
			case errors.As(err, &invalid):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(to)
	}

	wg.Wait()

	require.Len(t, applied, 1)
	assert.Equal(t, 1, rejected)

	var legacy string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT status FROM proposals WHERE id = $1`, p.ID).Scan(&legacy))
	assert.Equal(t, string(applied[0]), legacy)

	entries, err := svc.History(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestIntegration_AuditEntriesAreAppendOnly(t *testing.T) {
	connStr := setupPostgres(t)
	ctx := context.Background()

	db, err := database.New(connStr, database.PoolConfig{MaxOpenConns: 2})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	coord := transition.NewCoordinator(status.NewValidator(status.DefaultGraph()), time.Now)
	svc := transition.NewService(uow.New(db, database.Postgres), coord, transition.NewMockDispatcher(gomock.NewController(t)))

	p, err := svc.Open(ctx, transition.OpenParams{
		CustomerName:     "Carla Dias",
		CustomerDocument: "555.666.777-88",
		Amount:           decimal.RequireFromString("5000.00"),
		TermMonths:       6,
		MonthlyRate:      decimal.RequireFromString("0.02"),
	})
	require.NoError(t, err)

	res, err := db.ExecContext(ctx, `UPDATE audit_entries SET actor_id = 'tampered' WHERE proposal_id = $1`, p.ID)
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.Zero(t, n)

	res, err = db.ExecContext(ctx, `DELETE FROM audit_entries WHERE proposal_id = $1`, p.ID)
	require.NoError(t, err)
	n, _ = res.RowsAffected()
	assert.Zero(t, n)

	entries, err := svc.History(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEqual(t, "tampered", entries[0].ActorID)
}
