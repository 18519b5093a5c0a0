package graph

import "slices"

// Node type constants derived from the course title.
const (
	NodeCourse        = "course"
	NodeMajorElective = "major_elective"
	NodeFreeElective  = "free_elective"
)

// Layout spacing for the initial grid position of a node.
const (
	columnWidth = 300
	rowHeight   = 150
)

// Position is an initial layout hint. x follows the term index and y the
// order of the course within its term.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Node is one course or elective slot.
type Node struct {
	ID       string   `json:"id"`
	Year     int      `json:"year"`
	Semester int      `json:"semester"`
	Code     string   `json:"code"`
	Title    string   `json:"title"`
	Credits  int      `json:"credits"`
	Type     string   `json:"type"`
	OrGroup  *string  `json:"or_group"`
	Position Position `json:"position"`
}

// Edge points from a prerequisite to the dependent course. When the
// dependent has several prerequisites the edge is a branching edge: From
// holds the first one and Sources lists all of them, From included.
type Edge struct {
	From    string   `json:"from_id"`
	To      string   `json:"to_id"`
	Sources []string `json:"sources,omitempty"`
}

// SourceIDs returns every prerequisite node the edge covers.
func (e Edge) SourceIDs() []string {
	if len(e.Sources) > 0 {
		return e.Sources
	}
	return []string{e.From}
}

// StudyPlanGraph is the node/edge view of a study plan.
type StudyPlanGraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone returns a deep copy of g.
func (g *StudyPlanGraph) Clone() *StudyPlanGraph {
	if g == nil {
		return nil
	}
	c := &StudyPlanGraph{
		Nodes: slices.Clone(g.Nodes),
		Edges: slices.Clone(g.Edges),
	}
	for i, n := range c.Nodes {
		if n.OrGroup != nil {
			group := *n.OrGroup
			c.Nodes[i].OrGroup = &group
		}
	}
	for i, e := range c.Edges {
		c.Edges[i].Sources = slices.Clone(e.Sources)
	}
	return c
}

// Node looks up a node by id.
func (g *StudyPlanGraph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
