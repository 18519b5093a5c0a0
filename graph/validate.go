package graph

import (
	"errors"
	"fmt"
)

// Validate checks the structural invariants of g: node ids are unique,
// every edge endpoint and source names an existing node, and Sources is
// only set on branching edges whose first source is From. All violations
// are reported together.
func Validate(g *StudyPlanGraph) error {
	if g == nil {
		return errors.New("graph: nil graph")
	}

	var errs []error
	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			errs = append(errs, fmt.Errorf("graph: node %q has empty id", n.Title))
			continue
		}
		if ids[n.ID] {
			errs = append(errs, fmt.Errorf("graph: duplicate node id %q", n.ID))
		}
		ids[n.ID] = true
	}

	for i, e := range g.Edges {
		if !ids[e.To] {
			errs = append(errs, fmt.Errorf("graph: edge %d: unknown to_id %q", i, e.To))
		}
		if !ids[e.From] {
			errs = append(errs, fmt.Errorf("graph: edge %d: unknown from_id %q", i, e.From))
		}
		if len(e.Sources) == 1 {
			errs = append(errs, fmt.Errorf("graph: edge %d: sources set for a single prerequisite", i))
		}
		if len(e.Sources) > 1 && e.Sources[0] != e.From {
			errs = append(errs, fmt.Errorf("graph: edge %d: from_id %q is not the first source", i, e.From))
		}
		for _, s := range e.Sources {
			if !ids[s] {
				errs = append(errs, fmt.Errorf("graph: edge %d: unknown source %q", i, s))
			}
		}
	}

	return errors.Join(errs...)
}
