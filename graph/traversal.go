package graph

import (
	"errors"
	"fmt"

	"github.com/brunobiangulo/studyplan/plan"
)

// ErrUnknownNode is returned by Traverse when the start node is absent.
var ErrUnknownNode = errors.New("graph: unknown node")

// Direction selects which way Traverse follows edges.
type Direction string

const (
	// Upstream follows edges toward prerequisites.
	Upstream Direction = "prerequisites"
	// Downstream follows edges toward dependent courses.
	Downstream Direction = "dependents"
)

// ParseDirection accepts the Direction names plus the short forms "up"
// and "down". An empty string means Upstream.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "up", string(Upstream):
		return Upstream, nil
	case "down", string(Downstream):
		return Downstream, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// TraversalResult is one step of a prerequisite chain.
type TraversalResult struct {
	ID    string `json:"id"`
	Depth int    `json:"depth"`
}

// Traverse walks the graph from the node start using BFS and returns every
// reachable node with its hop distance, nearest first. maxDepth <= 0
// means no limit. Branching edges contribute every source.
//
// start may be a node id or a course code with spaces.
func Traverse(g *StudyPlanGraph, start string, dir Direction, maxDepth int) ([]TraversalResult, error) {
	if _, ok := g.Node(start); !ok {
		alt := plan.NormalizeCode(start)
		if _, ok := g.Node(alt); !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownNode, start)
		}
		start = alt
	}

	// Build adjacency in the requested direction.
	next := make(map[string][]string)
	for _, e := range g.Edges {
		for _, src := range e.SourceIDs() {
			if dir == Downstream {
				next[src] = append(next[src], e.To)
			} else {
				next[e.To] = append(next[e.To], src)
			}
		}
	}

	visited := map[string]bool{start: true}
	queue := []string{start}
	var result []TraversalResult

	for depth := 1; len(queue) > 0 && (maxDepth <= 0 || depth <= maxDepth); depth++ {
		var frontier []string
		for _, id := range queue {
			for _, nid := range next[id] {
				if visited[nid] {
					continue
				}
				visited[nid] = true
				frontier = append(frontier, nid)
				result = append(result, TraversalResult{ID: nid, Depth: depth})
			}
		}
		queue = frontier
	}

	return result, nil
}
