package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/proposalflow/internal/billing"
	"github.com/MrJamesThe3rd/proposalflow/internal/billing/store"
	"github.com/MrJamesThe3rd/proposalflow/internal/database"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	proposalStore "github.com/MrJamesThe3rd/proposalflow/internal/proposal/store"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
	"github.com/MrJamesThe3rd/proposalflow/internal/testutil/sqlitedb"
)

func TestStore_InstrumentLifecycle(t *testing.T) {
	ctx := context.Background()
	db := sqlitedb.Open(t)
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	p := &proposal.Proposal{Status: status.SignatureCompleted, Amount: decimal.NewFromInt(900), MonthlyRate: decimal.Zero, TermMonths: 3, CreatedAt: now}
	require.NoError(t, proposalStore.New(db, database.SQLite).CreateProposal(ctx, p))

	instruments, err := billing.Schedule(p.ID, p.Amount, p.TermMonths, p.MonthlyRate, now.AddDate(0, 1, 0), now)
	require.NoError(t, err)

	s := store.New(db)
	require.NoError(t, s.CreateInstruments(ctx, instruments))

	listed, err := s.ListByProposal(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.True(t, decimal.NewFromInt(300).Equal(listed[0].Amount))
	assert.Equal(t, 1, listed[0].Installment)

	paidAt := now.AddDate(0, 1, 0)
	require.NoError(t, s.MarkPaid(ctx, listed[0].ID, paidAt))

	got, err := s.GetInstrument(ctx, listed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
	assert.True(t, paidAt.Equal(*got.PaidAt))

	assert.ErrorIs(t, s.MarkPaid(ctx, uuid.New(), paidAt), billing.ErrNotFound)

	_, err = s.GetInstrument(ctx, uuid.New())
	assert.ErrorIs(t, err, billing.ErrNotFound)
}
