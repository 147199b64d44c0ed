package status

import "slices"

// Validator answers legality questions against an injected Graph.
type Validator struct {
	graph Graph
}

func NewValidator(g Graph) *Validator {
	return &Validator{graph: g}
}

func (v *Validator) Graph() Graph {
	return v.graph
}

// PossibleTransitions is empty for unmapped and terminal statuses.
func (v *Validator) PossibleTransitions(s Status) []Status {
	return v.graph.Successors(s)
}

func (v *Validator) IsTerminal(s Status) bool {
	return len(v.graph.edges[s]) == 0
}

func (v *Validator) Validate(from, to Status) bool {
	return slices.Contains(v.graph.edges[from], to)
}

// Check is Validate returning an *InvalidTransitionError for illegal edges.
func (v *Validator) Check(from, to Status) error {
	if !v.Validate(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}

	return nil
}
