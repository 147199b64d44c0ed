package transition_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/proposalflow/internal/audit"
	auditStore "github.com/MrJamesThe3rd/proposalflow/internal/audit/store"
	"github.com/MrJamesThe3rd/proposalflow/internal/database"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	proposalStore "github.com/MrJamesThe3rd/proposalflow/internal/proposal/store"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
	"github.com/MrJamesThe3rd/proposalflow/internal/testutil/sqlitedb"
	"github.com/MrJamesThe3rd/proposalflow/internal/transition"
	"github.com/MrJamesThe3rd/proposalflow/internal/uow"
)

type harness struct {
	svc        *transition.Service
	db         *sql.DB
	dispatcher *transition.MockDispatcher
	proposals  *proposalStore.Store
	audit      *auditStore.Store
}

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newHarness(t *testing.T, opts ...uow.Option) *harness {
	t.Helper()

	db := sqlitedb.Open(t)
	ctrl := gomock.NewController(t)
	clock := &fixedClock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}

	opts = append([]uow.Option{uow.WithRetry(3, time.Millisecond)}, opts...)

	d := transition.NewMockDispatcher(ctrl)
	coord := transition.NewCoordinator(status.NewValidator(status.DefaultGraph()), clock.Now)

	return &harness{
		svc:        transition.NewService(uow.New(db, database.SQLite, opts...), coord, d),
		db:         db,
		dispatcher: d,
		proposals:  proposalStore.New(db, database.SQLite),
		audit:      auditStore.New(db),
	}
}

func (h *harness) allowDispatch() {
	h.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func (h *harness) open(t *testing.T) *proposal.Proposal {
	t.Helper()

	p, err := h.svc.Open(context.Background(), transition.OpenParams{
		CustomerName:     "João Pereira",
		CustomerDocument: "987.654.321-00",
		Amount:           decimal.RequireFromString("12000.00"),
		TermMonths:       12,
		MonthlyRate:      decimal.RequireFromString("0.015"),
		ActorID:          "attendant-7",
	})
	require.NoError(t, err)

	return p
}

// seed forces the legacy status without going through the graph.
func (h *harness) seed(t *testing.T, id uuid.UUID, st status.Status) {
	t.Helper()

	_, err := h.db.Exec(`UPDATE proposals SET status = $1 WHERE id = $2`, st, id)
	require.NoError(t, err)
}

func (h *harness) legacyStatus(t *testing.T, id uuid.UUID) status.Status {
	t.Helper()

	p, err := h.proposals.GetProposal(context.Background(), id)
	require.NoError(t, err)

	return p.Status
}

func (h *harness) entries(t *testing.T, id uuid.UUID) []*audit.Entry {
	t.Helper()

	entries, err := h.audit.ListByProposal(context.Background(), id)
	require.NoError(t, err)

	return entries
}

func (h *harness) contextual(t *testing.T, id uuid.UUID) []*proposal.ContextualStatus {
	t.Helper()

	cs, err := h.proposals.ListContextualStatuses(context.Background(), id)
	require.NoError(t, err)

	return cs
}

func request(id uuid.UUID, to status.Status, c proposal.Context) transition.Request {
	return transition.Request{ProposalID: id, NewStatus: to, Context: c, ActorID: "analyst-1"}
}
