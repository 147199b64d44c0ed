package status

import (
	"fmt"
	"slices"
)

// Graph maps each status to the set of statuses that may follow it.
// A Graph is immutable once built; accessors return copies.
type Graph struct {
	edges map[Status][]Status
}

// NewGraph builds a Graph from an adjacency list. Every status of the enumeration
// must have an entry (an empty one marks a terminal status) and every target must be
// a member of the enumeration.
func NewGraph(edges map[Status][]Status) (Graph, error) {
	g := Graph{edges: make(map[Status][]Status, len(edges))}

	for from, tos := range edges {
		if !from.Valid() {
			return Graph{}, fmt.Errorf("graph source: %w: %q", ErrUnknownStatus, from)
		}

		seen := make(map[Status]struct{}, len(tos))
		targets := make([]Status, 0, len(tos))

		for _, to := range tos {
			if !to.Valid() {
				return Graph{}, fmt.Errorf("graph edge %s: %w: %q", from, ErrUnknownStatus, to)
			}

			if _, dup := seen[to]; dup {
				continue
			}

			seen[to] = struct{}{}
			targets = append(targets, to)
		}

		g.edges[from] = targets
	}

	for _, st := range all {
		if _, ok := g.edges[st]; !ok {
			return Graph{}, fmt.Errorf("graph has no entry for status %q", st)
		}
	}

	return g, nil
}

// DefaultGraph is the credit proposal lifecycle.
func DefaultGraph() Graph {
	g, err := NewGraph(map[Status][]Status{
		Draft:              {AwaitingAnalysis, UnderAnalysis, Approved, Rejected, Cancelled, Suspended},
		AwaitingAnalysis:   {UnderAnalysis, Cancelled, Suspended},
		UnderAnalysis:      {Approved, Rejected, Pending, Suspended},
		Pending:            {UnderAnalysis, Approved, Rejected, Suspended},
		Approved:           {DocumentGenerated, Cancelled, Suspended},
		DocumentGenerated:  {AwaitingSignature, Suspended},
		AwaitingSignature:  {SignatureCompleted, Suspended},
		SignatureCompleted: {InvoicesIssued, Suspended},
		InvoicesIssued:     {PaymentAuthorized, Current, Overdue, Suspended},
		Current:            {Overdue, Settled},
		Overdue:            {Current, Settled, Defaulted},
		Defaulted:          {Settled},
		Suspended:          {Draft, Approved, DocumentGenerated, AwaitingSignature, SignatureCompleted, InvoicesIssued},

		Rejected:          {},
		Cancelled:         {},
		Settled:           {},
		PaymentAuthorized: {},
	})
	if err != nil {
		panic(err)
	}

	return g
}

// Successors returns the statuses reachable from s in one step.
func (g Graph) Successors(s Status) []Status {
	return slices.Clone(g.edges[s])
}

// Statuses returns every status with an entry in the graph, in declaration order.
func (g Graph) Statuses() []Status {
	out := make([]Status, 0, len(g.edges))

	for _, st := range all {
		if _, ok := g.edges[st]; ok {
			out = append(out, st)
		}
	}

	return out
}

func (g Graph) TerminalStatuses() []Status {
	var out []Status

	for _, st := range g.Statuses() {
		if len(g.edges[st]) == 0 {
			out = append(out, st)
		}
	}

	return out
}
