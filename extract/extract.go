// Package extract turns normalized document text into study-plan courses.
//
// The regex path follows the table convention used by study-plan
// documents: a "Year N, Semester M" header, a "Course Code / Course Title /
// Credits" marker, one course per row and a "Total" row closing the term.
// Prerequisite annotations are free-standing paragraphs attached to the
// course line above them.
package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/brunobiangulo/studyplan/plan"
)

// Input is the text of one parsed document.
type Input struct {
	// Lines is the normalized line sequence: paragraphs and table rows in
	// document order, blanks removed.
	Lines []string
	// Paragraphs is the raw paragraph sequence, blanks included. It is the
	// only source of prerequisite annotations.
	Paragraphs []string
}

// Result is the structured outcome of an extraction.
type Result struct {
	ProgramInfo plan.ProgramInfo `json:"program_info"`
	Courses     []plan.Course    `json:"courses"`
	Method      string           `json:"method"`
}

// Extractor produces a study plan from document text.
type Extractor interface {
	Extract(ctx context.Context, in Input) (*Result, error)
	Name() string
}

// RegexExtractor is the deterministic, local extraction path.
type RegexExtractor struct{}

// NewRegexExtractor returns the regex extractor.
func NewRegexExtractor() *RegexExtractor { return &RegexExtractor{} }

func (RegexExtractor) Name() string { return "regex" }

// Extract runs prerequisite scanning, program detection and per-term
// course extraction. It never fails; an unrecognizable document yields an
// empty course list and placeholder program info.
func (e RegexExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.Join(in.Lines, "\n")
	prereqs := Prerequisites(in.Paragraphs)
	courses := Courses(in.Lines, prereqs)

	slog.Info("extract: regex extraction complete",
		"lines", len(in.Lines),
		"prerequisites", len(prereqs),
		"courses", len(courses),
	)

	return &Result{
		ProgramInfo: ProgramInfo(text),
		Courses:     courses,
		Method:      e.Name(),
	}, nil
}
