package extract

import (
	"strings"

	"github.com/brunobiangulo/studyplan/plan"
)

// Validate reduces every course's prerequisite text to the codes that are
// actually present in courses, normalized and joined with ", ". A
// prerequisite naming only unknown codes becomes empty. Surviving codes keep
// their original order, repeats included. Validate is idempotent and must
// see the full plan, since a prerequisite may name a course taught in a
// later term.
//
// The input slice is not modified.
func Validate(courses []plan.Course) []plan.Course {
	valid := plan.Codes(courses)

	cleaned := make([]plan.Course, len(courses))
	for i, c := range courses {
		if c.Prerequisite != "" {
			c.Prerequisite = filterPrerequisite(c.Prerequisite, valid)
		}
		cleaned[i] = c
	}
	return cleaned
}

func filterPrerequisite(text string, valid map[string]bool) string {
	var kept []string
	for _, code := range FindCodes(text) {
		if valid[code] {
			kept = append(kept, code)
		}
	}
	return strings.Join(kept, ", ")
}
