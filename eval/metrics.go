package eval

import (
	"sort"
	"strings"

	"github.com/brunobiangulo/studyplan/extract"
	"github.com/brunobiangulo/studyplan/graph"
	"github.com/brunobiangulo/studyplan/plan"
)

// Scores compares one extraction with its golden plan. All values are in
// [0, 1]; field accuracies are measured over the coded courses present in
// both plans.
type Scores struct {
	CoursePrecision float64 `json:"course_precision"`
	CourseRecall    float64 `json:"course_recall"`
	CourseF1        float64 `json:"course_f1"`

	TermAccuracy         float64 `json:"term_accuracy"`
	CreditAccuracy       float64 `json:"credit_accuracy"`
	PrerequisiteAccuracy float64 `json:"prerequisite_accuracy"`
	OrFlagAccuracy       float64 `json:"or_flag_accuracy"`

	// ElectiveAccuracy compares placeholder counts per term and kind.
	ElectiveAccuracy float64 `json:"elective_accuracy"`

	EdgePrecision float64 `json:"edge_precision"`
	EdgeRecall    float64 `json:"edge_recall"`

	Missing []string `json:"missing,omitempty"` // expected codes not extracted
	Extra   []string `json:"extra,omitempty"`   // extracted codes not expected
}

// Score computes Scores for got against want.
func Score(want, got []plan.Course) Scores {
	var s Scores

	wantByCode := byCode(want)
	gotByCode := byCode(got)

	matched := 0
	var terms, credits, prereqs, ors int
	for code, w := range wantByCode {
		g, ok := gotByCode[code]
		if !ok {
			s.Missing = append(s.Missing, code)
			continue
		}
		matched++
		if w.Term() == g.Term() {
			terms++
		}
		if w.Credits == g.Credits {
			credits++
		}
		if sameCodes(w.Prerequisite, g.Prerequisite) {
			prereqs++
		}
		if w.IsOr() == g.IsOr() {
			ors++
		}
	}
	for code := range gotByCode {
		if _, ok := wantByCode[code]; !ok {
			s.Extra = append(s.Extra, code)
		}
	}
	sort.Strings(s.Missing)
	sort.Strings(s.Extra)

	s.CoursePrecision = ratio(matched, len(gotByCode))
	s.CourseRecall = ratio(matched, len(wantByCode))
	s.CourseF1 = f1(s.CoursePrecision, s.CourseRecall)
	s.TermAccuracy = ratio(terms, matched)
	s.CreditAccuracy = ratio(credits, matched)
	s.PrerequisiteAccuracy = ratio(prereqs, matched)
	s.OrFlagAccuracy = ratio(ors, matched)
	s.ElectiveAccuracy = electiveAccuracy(want, got)

	wantEdges := edgeSet(want)
	gotEdges := edgeSet(got)
	common := 0
	for e := range gotEdges {
		if wantEdges[e] {
			common++
		}
	}
	s.EdgePrecision = ratio(common, len(gotEdges))
	s.EdgeRecall = ratio(common, len(wantEdges))

	return s
}

// ratio treats 0/0 as a perfect score: nothing was expected and nothing
// was produced.
func ratio(n, d int) float64 {
	if d == 0 {
		return 1
	}
	return float64(n) / float64(d)
}

func f1(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// byCode indexes coded courses by normalized code. The first occurrence
// wins, matching graph building.
func byCode(courses []plan.Course) map[string]plan.Course {
	m := make(map[string]plan.Course, len(courses))
	for _, c := range courses {
		if c.IsElective() {
			continue
		}
		code := plan.NormalizeCode(c.Code)
		if _, dup := m[code]; !dup {
			m[code] = c
		}
	}
	return m
}

// sameCodes compares two prerequisite texts as sets of course codes.
func sameCodes(a, b string) bool {
	ca, cb := codeSet(a), codeSet(b)
	if len(ca) != len(cb) {
		return false
	}
	for c := range ca {
		if !cb[c] {
			return false
		}
	}
	return true
}

func codeSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, c := range extract.FindCodes(text) {
		set[c] = true
	}
	return set
}

type electiveSlot struct {
	term plan.Term
	kind string
}

func electiveAccuracy(want, got []plan.Course) float64 {
	count := func(courses []plan.Course) map[electiveSlot]int {
		m := make(map[electiveSlot]int)
		for _, c := range courses {
			if c.IsElective() {
				m[electiveSlot{c.Term(), graph.NodeType(c.Title)}]++
			}
		}
		return m
	}
	w, g := count(want), count(got)

	total, diff := 0, 0
	for slot, n := range w {
		total += n
		diff += abs(n - g[slot])
	}
	for slot, n := range g {
		if _, ok := w[slot]; !ok {
			total += n
			diff += n
		}
	}
	if total == 0 {
		return 1
	}
	return clamp(1 - float64(diff)/float64(total))
}

// edgeSet renders the prerequisite edges of a plan as "sources->to" keys.
func edgeSet(courses []plan.Course) map[string]bool {
	g := graph.Build(courses)
	set := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		sources := append([]string(nil), e.SourceIDs()...)
		sort.Strings(sources)
		set[strings.Join(sources, "+")+"->"+e.To] = true
	}
	return set
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
