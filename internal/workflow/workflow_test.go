package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/proposalflow/internal/billing"
	billingStore "github.com/MrJamesThe3rd/proposalflow/internal/billing/store"
	"github.com/MrJamesThe3rd/proposalflow/internal/database"
	"github.com/MrJamesThe3rd/proposalflow/internal/document"
	documentStore "github.com/MrJamesThe3rd/proposalflow/internal/document/store"
	"github.com/MrJamesThe3rd/proposalflow/internal/event"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	proposalStore "github.com/MrJamesThe3rd/proposalflow/internal/proposal/store"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
	"github.com/MrJamesThe3rd/proposalflow/internal/testutil/sqlitedb"
	"github.com/MrJamesThe3rd/proposalflow/internal/transition"
	"github.com/MrJamesThe3rd/proposalflow/internal/uow"
	"github.com/MrJamesThe3rd/proposalflow/internal/workflow"
)

func TestWorkflow_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	db := sqlitedb.Open(t)
	ctrl := gomock.NewController(t)

	var dispatched []event.Type

	d := transition.NewMockDispatcher(ctrl)
	d.EXPECT().
		Dispatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e event.Event) error {
			dispatched = append(dispatched, e.Type)
			return nil
		}).
		AnyTimes()

	transitions := transition.NewService(
		uow.New(db, database.SQLite),
		transition.NewCoordinator(status.NewValidator(status.DefaultGraph()), nil),
		d,
	)
	wf := workflow.NewService(transitions, "ccb")

	p, err := transitions.Open(ctx, transition.OpenParams{
		CustomerName:     "Carla Mendes",
		CustomerDocument: "111.222.333-44",
		Amount:           decimal.NewFromInt(3000),
		TermMonths:       3,
		MonthlyRate:      decimal.Zero,
	})
	require.NoError(t, err)

	_, err = wf.GenerateDocument(ctx, p.ID, "worker")
	require.Error(t, err, "draft proposals have no document")

	_, err = transitions.Transition(ctx, transition.Request{ProposalID: p.ID, NewStatus: status.Approved, Context: proposal.ContextGeneral})
	require.NoError(t, err)

	doc, err := wf.GenerateDocument(ctx, p.ID, "worker")
	require.NoError(t, err)
	assert.Equal(t, document.StatusGenerated, doc.Status)
	assert.Equal(t, "ccb/"+p.ID.String()+".pdf", doc.StoragePath)

	again, err := wf.GenerateDocument(ctx, p.ID, "worker")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again.ID)

	require.NoError(t, wf.SendForSignature(ctx, p.ID, "worker"))
	require.NoError(t, wf.CompleteSignature(ctx, p.ID, "signature-provider"))

	stored, err := documentStore.New(db).GetByProposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusSigned, stored.Status)
	assert.NotNil(t, stored.SentAt)
	assert.NotNil(t, stored.SignedAt)

	instruments, err := wf.IssueInvoices(ctx, p.ID, time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC), "billing")
	require.NoError(t, err)
	require.Len(t, instruments, 3)

	for i, in := range instruments {
		settled, err := wf.MarkInstrumentPaid(ctx, in.ID, "bank")
		require.NoError(t, err)
		assert.Equal(t, i == len(instruments)-1, settled)
	}

	_, err = wf.MarkInstrumentPaid(ctx, instruments[0].ID, "bank")
	assert.ErrorIs(t, err, billing.ErrAlreadyPaid)

	listed, err := billingStore.New(db).ListByProposal(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, billing.AllPaid(listed))

	got, err := proposalStore.New(db, database.SQLite).GetProposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Settled, got.Status)
	assert.NotNil(t, got.SettledAt)

	assert.Equal(t, []event.Type{
		event.ProposalApproved,
		event.ProposalDocumentGenerated,
		event.ProposalStatusChanged,
		event.ProposalSignatureCompleted,
		event.ProposalStatusChanged,
		event.ProposalStatusChanged,
		event.ProposalSettled,
	}, dispatched)
}

func TestWorkflow_IssueInvoicesRollsBackOnBadSchedule(t *testing.T) {
	ctx := context.Background()
	db := sqlitedb.Open(t)
	ctrl := gomock.NewController(t)

	transitions := transition.NewService(
		uow.New(db, database.SQLite),
		transition.NewCoordinator(status.NewValidator(status.DefaultGraph()), nil),
		transition.NewMockDispatcher(ctrl),
	)

	p, err := transitions.Open(ctx, transition.OpenParams{
		CustomerName: "Zero Term", CustomerDocument: "1", Amount: decimal.NewFromInt(100), TermMonths: 1,
	})
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE proposals SET status = $1, term_months = 0 WHERE id = $2`, status.SignatureCompleted, p.ID)
	require.NoError(t, err)

	_, err = workflow.NewService(transitions, "ccb").IssueInvoices(ctx, p.ID, time.Now(), "billing")
	require.Error(t, err)

	got, err := proposalStore.New(db, database.SQLite).GetProposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, status.SignatureCompleted, got.Status)
}
