package event_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/proposalflow/internal/event"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

func TestDispatcher_Dispatch(t *testing.T) {
	type testCase struct {
		name      string
		event     event.Event
		setupMock func(p *event.MockPublisher, o *event.MockObserver)
		wantErr   bool
	}

	approved := event.TransitionEvent(uuid.New(), "formalization", status.Draft, status.Approved, "analyst-1", time.Now())
	signed := event.TransitionEvent(uuid.New(), "formalization", status.AwaitingSignature, status.SignatureCompleted, "signer", time.Now())
	analysis := event.TransitionEvent(uuid.New(), "general", status.Draft, status.UnderAnalysis, "analyst-1", time.Now())

	tests := []testCase{
		{
			name:  "ApprovedGoesToFormalization",
			event: approved,
			setupMock: func(p *event.MockPublisher, o *event.MockObserver) {
				p.EXPECT().Publish(gomock.Any(), event.QueueFormalization, approved).Return(nil)
				o.EXPECT().ObserveDispatch(string(event.ProposalApproved), event.QueueFormalization, "published")
			},
		},
		{
			name:  "SignatureCompletedGoesToBilling",
			event: signed,
			setupMock: func(p *event.MockPublisher, o *event.MockObserver) {
				p.EXPECT().Publish(gomock.Any(), event.QueueBilling, signed).Return(nil)
				o.EXPECT().ObserveDispatch(gomock.Any(), event.QueueBilling, "published")
			},
		},
		{
			name:  "UnroutedIsDropped",
			event: analysis,
			setupMock: func(_ *event.MockPublisher, o *event.MockObserver) {
				o.EXPECT().ObserveDispatch(string(event.ProposalStatusChanged), "", "dropped")
			},
		},
		{
			name:  "PublishFailure",
			event: approved,
			setupMock: func(p *event.MockPublisher, o *event.MockObserver) {
				p.EXPECT().Publish(gomock.Any(), event.QueueFormalization, approved).Return(errors.New("connection refused"))
				o.EXPECT().ObserveDispatch(gomock.Any(), event.QueueFormalization, "failed")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			pub := event.NewMockPublisher(ctrl)
			obs := event.NewMockObserver(ctrl)
			tt.setupMock(pub, obs)

			err := event.NewDispatcher(pub, event.WithObserver(obs)).Dispatch(context.Background(), tt.event)

			if tt.wantErr {
				var dispatchErr *event.DispatchError

				require.ErrorAs(t, err, &dispatchErr)
				assert.Equal(t, tt.event.ID, dispatchErr.Event.ID)
				assert.Equal(t, event.QueueFormalization, dispatchErr.Queue)

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestDefaultRoutes_OneQueuePerType(t *testing.T) {
	routes := event.DefaultRoutes()

	for _, typ := range []event.Type{
		event.ProposalApproved,
		event.ProposalRejected,
		event.ProposalPending,
		event.ProposalCancelled,
		event.ProposalDocumentGenerated,
		event.ProposalSignatureCompleted,
		event.ProposalSettled,
	} {
		assert.NotEmpty(t, routes[typ], typ)
	}

	_, ok := routes[event.ProposalStatusChanged]
	assert.False(t, ok)
}

func TestDispatcher_BreakerOpens(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := event.NewMockPublisher(ctrl)

	pub.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("down")).Times(2)

	d := event.NewDispatcher(pub, event.WithBreaker(event.BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}))
	e := event.TransitionEvent(uuid.New(), "general", status.UnderAnalysis, status.Rejected, "a", time.Now())

	require.Error(t, d.Dispatch(context.Background(), e))
	require.Error(t, d.Dispatch(context.Background(), e))

	err := d.Dispatch(context.Background(), e)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestDispatcher_DispatchAllContinuesPastFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := event.NewMockPublisher(ctrl)

	rejected := event.TransitionEvent(uuid.New(), "general", status.UnderAnalysis, status.Rejected, "a", time.Now())
	settled := event.TransitionEvent(uuid.New(), "collections", status.Current, status.Settled, "a", time.Now())

	gomock.InOrder(
		pub.EXPECT().Publish(gomock.Any(), event.QueueNotifications, rejected).Return(errors.New("timeout")),
		pub.EXPECT().Publish(gomock.Any(), event.QueueCollections, settled).Return(nil),
	)

	err := event.NewDispatcher(pub).DispatchAll(context.Background(), rejected, settled)

	var dispatchErr *event.DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, rejected.ID, dispatchErr.Event.ID)
}

func TestTypeFor(t *testing.T) {
	assert.Equal(t, event.ProposalApproved, event.TypeFor(status.Approved))
	assert.Equal(t, event.ProposalDocumentGenerated, event.TypeFor(status.DocumentGenerated))
	assert.Equal(t, event.ProposalStatusChanged, event.TypeFor(status.Overdue))
}
