// Package plan holds the study-plan data model shared by extraction, graph
// building, export and storage.
package plan

import (
	"fmt"
	"sort"
	"strings"
)

// Elective placeholder titles.
const (
	MajorElectiveTitle = "Major Elective Course"
	FreeElectiveTitle  = "Free Elective Course"
)

// OrFlag marks a course as one alternative in a same-term choice group.
const OrFlag = "or"

// DefaultCredits is used whenever a credit value cannot be parsed.
const DefaultCredits = 3

// DefaultTotalCredits is reported when a document states no total.
const DefaultTotalCredits = 132

// ProgramInfo identifies the degree program a study plan belongs to.
type ProgramInfo struct {
	ProgramCode  string `json:"program_code"`
	ProgramTitle string `json:"program_title"`
	TotalCredits int    `json:"total_credits"`
}

// Course is one curriculum entry. Code is empty for elective placeholders.
type Course struct {
	Year         int    `json:"year"`
	Semester     int    `json:"semester"`
	Code         string `json:"course_code"`
	Title        string `json:"course_title"`
	Credits      int    `json:"credits"`
	Prerequisite string `json:"prerequisite"`
	OrFlag       string `json:"or_flag"`
}

// Term returns the (year, semester) placement of the course.
func (c Course) Term() Term {
	return Term{Year: c.Year, Semester: c.Semester}
}

// IsElective reports whether the course is an elective placeholder.
func (c Course) IsElective() bool {
	return c.Code == ""
}

// IsOr reports whether the course belongs to an OR-choice group.
func (c Course) IsOr() bool {
	return c.OrFlag == OrFlag
}

// Term is one (year, semester) pair.
type Term struct {
	Year     int `json:"year"`
	Semester int `json:"semester"`
}

// Index is the chronological position of the term, 1 for Year 1 Semester 1
// through 8 for Year 4 Semester 2.
func (t Term) Index() int {
	return (t.Year-1)*2 + t.Semester
}

func (t Term) String() string {
	return fmt.Sprintf("Year %d, Semester %d", t.Year, t.Semester)
}

// Terms lists the eight terms of a four-year plan in chronological order.
var Terms = []Term{
	{1, 1}, {1, 2},
	{2, 1}, {2, 2},
	{3, 1}, {3, 2},
	{4, 1}, {4, 2},
}

// NormalizeCode strips all whitespace from a course code, so "CSX 3001"
// and "CSX3001" compare equal.
func NormalizeCode(code string) string {
	return strings.Join(strings.Fields(code), "")
}

// SortByTerm returns a copy of courses stably ordered by (year, semester).
// Insertion order within a term is preserved.
func SortByTerm(courses []Course) []Course {
	sorted := make([]Course, len(courses))
	copy(sorted, courses)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year < sorted[j].Year
		}
		return sorted[i].Semester < sorted[j].Semester
	})
	return sorted
}

// Codes returns the set of normalized codes present in courses.
func Codes(courses []Course) map[string]bool {
	codes := make(map[string]bool, len(courses))
	for _, c := range courses {
		if c.Code == "" {
			continue
		}
		codes[NormalizeCode(c.Code)] = true
	}
	return codes
}

// TotalCredits sums the credits of all courses.
func TotalCredits(courses []Course) int {
	total := 0
	for _, c := range courses {
		total += c.Credits
	}
	return total
}
