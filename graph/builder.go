// Package graph turns a validated course list into the prerequisite graph
// used for visualization: one node per course or elective slot and one
// edge per dependent course, branching when it has several prerequisites.
package graph

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/brunobiangulo/studyplan/plan"
)

// reLeadingCode matches the course code a prerequisite token starts with,
// e.g. "CSX 3001 Fundamentals of Programming" -> "CSX 3001".
var reLeadingCode = regexp.MustCompile(`^([A-Z]{2,4}\s*\d{4})`)

// Builder accumulates nodes and edges for one graph. It is not safe for
// concurrent use; create one per Build call.
type Builder struct {
	nodes []Node
	// ids maps every seen course code, spaced and unspaced, to its node id.
	ids map[string]string
	// electives counts synthesized ids per (term, type).
	electives map[electiveKey]int
	// rows is the next free layout row per term.
	rows map[plan.Term]int
}

type electiveKey struct {
	term plan.Term
	kind string
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:     make([]Node, 0),
		ids:       make(map[string]string),
		electives: make(map[electiveKey]int),
		rows:      make(map[plan.Term]int),
	}
}

// Build creates the graph for courses. The input order does not matter:
// courses are laid out by (year, semester) and by their order within a
// term. Duplicate course codes keep the first node.
func Build(courses []plan.Course) *StudyPlanGraph {
	return NewBuilder().Build(courses)
}

// Build runs the node pass followed by the edge pass.
func (b *Builder) Build(courses []plan.Course) *StudyPlanGraph {
	sorted := plan.SortByTerm(courses)

	for _, c := range sorted {
		b.addNode(c)
	}
	edges := b.edges(sorted)

	slog.Debug("graph: built", "nodes", len(b.nodes), "edges", len(edges))

	return &StudyPlanGraph{
		Nodes: b.nodes,
		Edges: edges,
	}
}

// NodeType classifies a course by its title. Elective markers win over the
// generic course type.
func NodeType(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "major elective"):
		return NodeMajorElective
	case strings.Contains(lower, "free elective"):
		return NodeFreeElective
	default:
		return NodeCourse
	}
}

// ElectiveID is the synthesized id of the n-th elective of kind in term.
func ElectiveID(term plan.Term, kind string, n int) string {
	return fmt.Sprintf("Y%dS%d-%s-%d", term.Year, term.Semester, strings.ToUpper(kind), n)
}

// OrGroupID is the OR-choice group shared by alternatives in term.
func OrGroupID(term plan.Term) string {
	return fmt.Sprintf("Y%dS%d-OR", term.Year, term.Semester)
}

func (b *Builder) addNode(c plan.Course) {
	term := c.Term()
	kind := NodeType(c.Title)

	var id string
	if c.Code != "" {
		norm := plan.NormalizeCode(c.Code)
		if existing, ok := b.ids[norm]; ok {
			slog.Debug("graph: skipping duplicate course", "code", norm, "node", existing, "term", term.String())
			return
		}
		id = c.Code
		b.ids[c.Code] = id
		b.ids[norm] = id
	} else {
		key := electiveKey{term: term, kind: kind}
		b.electives[key]++
		id = ElectiveID(term, kind, b.electives[key])
	}

	var orGroup *string
	if c.IsOr() {
		g := OrGroupID(term)
		orGroup = &g
	}

	row := b.rows[term]
	b.rows[term]++

	b.nodes = append(b.nodes, Node{
		ID:       id,
		Year:     c.Year,
		Semester: c.Semester,
		Code:     c.Code,
		Title:    c.Title,
		Credits:  c.Credits,
		Type:     kind,
		OrGroup:  orGroup,
		Position: Position{
			X: term.Index() * columnWidth,
			Y: row * rowHeight,
		},
	})
}

// edges resolves each course's prerequisite list against the node lookup.
// Edges are keyed by dependent code: a later course with the same code
// replaces the earlier list but keeps its position in the output.
func (b *Builder) edges(courses []plan.Course) []Edge {
	var order []string
	sources := make(map[string][]string)

	for _, c := range courses {
		if c.Code == "" {
			continue
		}
		prereq := strings.TrimSpace(c.Prerequisite)
		if prereq == "" || prereq == "-" {
			continue
		}

		resolved := b.resolve(prereq)
		if len(resolved) == 0 {
			continue
		}
		to := b.ids[plan.NormalizeCode(c.Code)]
		if _, seen := sources[to]; !seen {
			order = append(order, to)
		}
		sources[to] = resolved
	}

	edges := make([]Edge, 0, len(order))
	for _, to := range order {
		from := sources[to]
		e := Edge{From: from[0], To: to}
		if len(from) > 1 {
			e.Sources = from
		}
		edges = append(edges, e)
	}
	return edges
}

// resolve splits a comma-joined prerequisite list and maps every token it
// can to a node id, keeping the original order.
func (b *Builder) resolve(prereq string) []string {
	var ids []string
	for _, tok := range strings.Split(prereq, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		code := strings.ReplaceAll(tok, " ", "")
		if m := reLeadingCode.FindStringSubmatch(tok); m != nil {
			code = strings.ReplaceAll(m[1], " ", "")
		}
		if id, ok := b.ids[code]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
