package status_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

func TestDefaultGraph_IsTotal(t *testing.T) {
	g := status.DefaultGraph()

	assert.ElementsMatch(t, status.All(), g.Statuses())
}

func TestDefaultGraph_TerminalStatuses(t *testing.T) {
	g := status.DefaultGraph()

	assert.ElementsMatch(t,
		[]status.Status{status.Rejected, status.Cancelled, status.Settled, status.PaymentAuthorized},
		g.TerminalStatuses(),
	)
}

func TestValidator_ValidateMatchesPossibleTransitions(t *testing.T) {
	v := status.NewValidator(status.DefaultGraph())

	for _, from := range status.All() {
		next := v.PossibleTransitions(from)

		for _, to := range status.All() {
			assert.Equal(t, slices.Contains(next, to), v.Validate(from, to), "%s -> %s", from, to)
		}
	}
}

func TestValidator_TerminalHasNoSuccessors(t *testing.T) {
	v := status.NewValidator(status.DefaultGraph())

	for _, st := range status.All() {
		assert.Equal(t, len(v.PossibleTransitions(st)) == 0, v.IsTerminal(st), st)
	}
}

func TestValidator_Check(t *testing.T) {
	type testCase struct {
		name    string
		from    status.Status
		to      status.Status
		wantErr bool
	}

	tests := []testCase{
		{name: "DraftToApproved", from: status.Draft, to: status.Approved},
		{name: "ApprovedToDocumentGenerated", from: status.Approved, to: status.DocumentGenerated},
		{name: "OverdueToDefaulted", from: status.Overdue, to: status.Defaulted},
		{name: "SuspendedBackToApproved", from: status.Suspended, to: status.Approved},
		{name: "ApprovedToDraft", from: status.Approved, to: status.Draft, wantErr: true},
		{name: "CancelledToDraft", from: status.Cancelled, to: status.Draft, wantErr: true},
		{name: "SettledToCurrent", from: status.Settled, to: status.Current, wantErr: true},
		{name: "UnknownSource", from: status.Status("APROVADO"), to: status.Draft, wantErr: true},
	}

	v := status.NewValidator(status.DefaultGraph())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Check(tt.from, tt.to)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var invalid *status.InvalidTransitionError

			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.from, invalid.From)
			assert.Equal(t, tt.to, invalid.To)
		})
	}
}

func TestValidator_PossibleTransitionsReturnsCopy(t *testing.T) {
	v := status.NewValidator(status.DefaultGraph())

	next := v.PossibleTransitions(status.Draft)
	require.NotEmpty(t, next)

	next[0] = status.Settled

	assert.NotContains(t, v.PossibleTransitions(status.Draft), status.Settled)
}

func TestNewGraph(t *testing.T) {
	full := func() map[status.Status][]status.Status {
		m := make(map[status.Status][]status.Status)
		for _, st := range status.All() {
			m[st] = nil
		}

		return m
	}

	t.Run("MissingEntry", func(t *testing.T) {
		m := full()
		delete(m, status.Pending)

		_, err := status.NewGraph(m)
		assert.Error(t, err)
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		m := full()
		m[status.Draft] = []status.Status{"Approved"}

		_, err := status.NewGraph(m)
		assert.ErrorIs(t, err, status.ErrUnknownStatus)
	})

	t.Run("Duplicates", func(t *testing.T) {
		m := full()
		m[status.Draft] = []status.Status{status.Approved, status.Approved}

		g, err := status.NewGraph(m)
		require.NoError(t, err)
		assert.Equal(t, []status.Status{status.Approved}, g.Successors(status.Draft))
	})
}

func TestParse(t *testing.T) {
	type testCase struct {
		name    string
		input   string
		want    status.Status
		wantErr bool
	}

	tests := []testCase{
		{name: "Canonical", input: "approved", want: status.Approved},
		{name: "Snake", input: "payment_authorized", want: status.PaymentAuthorized},
		{name: "UpperCase", input: "APPROVED", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
		{name: "Unknown", input: "archived", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := status.Parse(tt.input)

			if tt.wantErr {
				assert.ErrorIs(t, err, status.ErrUnknownStatus)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
