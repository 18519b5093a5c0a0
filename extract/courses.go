package extract

import (
	"log/slog"
	"strings"

	"github.com/brunobiangulo/studyplan/plan"
)

// TermCourses extracts the courses listed under one term's table.
//
// The scan starts at the first "Year N, Semester M" header, emits nothing
// until the "Course Code / Course Title / Credits" marker has been seen,
// and stops at the first line mentioning "Total". A missing header yields
// nil. Prerequisites are left empty; see Courses.
func TermCourses(text string, term plan.Term) []plan.Course {
	if text == "" {
		return nil
	}
	re, ok := termHeaders[term]
	if !ok {
		re = termHeaderPattern(term)
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return nil
	}

	lines := strings.Split(text[loc[0]:], "\n")
	var courses []plan.Course
	foundTable := false

	for i, line := range lines {
		if IsTotalLine(line) {
			break
		}
		if IsTableHeader(line) {
			foundTable = true
			continue
		}
		if !foundTable {
			continue
		}

		if title, n, ok := MatchElective(line); ok {
			for k := 0; k < n; k++ {
				courses = append(courses, plan.Course{
					Year:     term.Year,
					Semester: term.Semester,
					Title:    title,
					Credits:  plan.DefaultCredits,
				})
			}
			continue
		}

		search, startsWithOr := StripOrPrefix(line)
		matches := MatchCourses(search)
		if len(matches) == 0 {
			continue
		}

		orFlag := ""
		if startsWithOr || HasInlineOr(line) || nextStartsWithOr(lines, i) {
			orFlag = plan.OrFlag
		}
		for _, m := range matches {
			courses = append(courses, plan.Course{
				Year:     term.Year,
				Semester: term.Semester,
				Code:     m.Code,
				Title:    m.Title,
				Credits:  m.Credits,
				OrFlag:   orFlag,
			})
		}
	}

	slog.Debug("extract: term parsed", "term", term.String(),
		"table_found", foundTable, "courses", len(courses))
	return courses
}

// nextStartsWithOr reports whether the line after lines[i] opens an OR
// alternative, which makes lines[i] the first member of the group.
func nextStartsWithOr(lines []string, i int) bool {
	if i+1 >= len(lines) {
		return false
	}
	_, ok := StripOrPrefix(lines[i+1])
	return ok
}

// Courses extracts all eight terms from normalized text, attaches raw
// prerequisite text by course code and runs Validate over the result.
// prereqs may be nil.
func Courses(lines []string, prereqs map[string]string) []plan.Course {
	text := strings.Join(lines, "\n")

	var courses []plan.Course
	for _, term := range plan.Terms {
		for _, c := range TermCourses(text, term) {
			if c.Code != "" {
				c.Prerequisite = prereqs[plan.NormalizeCode(c.Code)]
			}
			courses = append(courses, c)
		}
	}
	return Validate(courses)
}
