// Package eval scores study-plan extraction against hand-checked golden
// plans, so the regex and LLM extractors can be compared on real documents.
package eval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brunobiangulo/studyplan"
	"github.com/brunobiangulo/studyplan/plan"
)

// Pass thresholds for a single case.
const (
	PassCourseF1     = 0.95
	PassPrerequisite = 0.90
)

// Evaluator runs datasets through a study-plan engine.
type Evaluator struct {
	engine studyplan.Engine
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(engine studyplan.Engine) *Evaluator {
	return &Evaluator{engine: engine}
}

// Report holds the results of an evaluation run.
type Report struct {
	Dataset    string           `json:"dataset"`
	Method     string           `json:"method"`
	TotalCases int              `json:"total_cases"`
	Passed     int              `json:"passed"`
	Failed     int              `json:"failed"`
	Metrics    AggregateMetrics `json:"metrics"`
	Results    []CaseResult     `json:"results"`
	RunTime    time.Duration    `json:"run_time"`
}

// AggregateMetrics holds averaged scores across all cases that ran.
type AggregateMetrics struct {
	AvgCoursePrecision      float64 `json:"avg_course_precision"`
	AvgCourseRecall         float64 `json:"avg_course_recall"`
	AvgCourseF1             float64 `json:"avg_course_f1"`
	AvgTermAccuracy         float64 `json:"avg_term_accuracy"`
	AvgCreditAccuracy       float64 `json:"avg_credit_accuracy"`
	AvgPrerequisiteAccuracy float64 `json:"avg_prerequisite_accuracy"`
	AvgOrFlagAccuracy       float64 `json:"avg_or_flag_accuracy"`
	AvgElectiveAccuracy     float64 `json:"avg_elective_accuracy"`
	AvgEdgePrecision        float64 `json:"avg_edge_precision"`
	AvgEdgeRecall           float64 `json:"avg_edge_recall"`
	ProgramInfoMatches      int     `json:"program_info_matches"`
}

// CaseResult holds the outcome of one document.
type CaseResult struct {
	Name             string `json:"name"`
	Document         string `json:"document"`
	Method           string `json:"method,omitempty"`
	ExpectedCourses  int    `json:"expected_courses"`
	ExtractedCourses int    `json:"extracted_courses"`
	Scores           Scores `json:"scores"`
	ProgramInfoMatch *bool  `json:"program_info_match,omitempty"`
	Passed           bool   `json:"passed"`
	Error            string `json:"error,omitempty"`
	ElapsedMs        int64  `json:"elapsed_ms"`
}

// Run parses every case document with opts and scores the result.
func (e *Evaluator) Run(ctx context.Context, dataset Dataset, opts ...studyplan.ParseOption) (*Report, error) {
	start := time.Now()
	report := &Report{
		Dataset:    dataset.Name,
		TotalCases: len(dataset.Cases),
	}

	metricsCount := 0
	for i, c := range dataset.Cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := e.runCase(ctx, c, opts...)
		report.Results = append(report.Results, result)
		if report.Method == "" {
			report.Method = result.Method
		}

		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}
		if result.Error != "" {
			status = "ERROR"
		}
		slog.Info("eval: case complete",
			"progress", fmt.Sprintf("%d/%d", i+1, len(dataset.Cases)),
			"status", status,
			"case", c.Name,
			"f1", fmt.Sprintf("%.2f", result.Scores.CourseF1),
			"prereq", fmt.Sprintf("%.2f", result.Scores.PrerequisiteAccuracy),
			"elapsed_ms", result.ElapsedMs)

		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}

		// Errored cases have no scores and would drag the averages to zero.
		if result.Error != "" {
			continue
		}

		metricsCount++
		m := &report.Metrics
		s := result.Scores
		m.AvgCoursePrecision += s.CoursePrecision
		m.AvgCourseRecall += s.CourseRecall
		m.AvgCourseF1 += s.CourseF1
		m.AvgTermAccuracy += s.TermAccuracy
		m.AvgCreditAccuracy += s.CreditAccuracy
		m.AvgPrerequisiteAccuracy += s.PrerequisiteAccuracy
		m.AvgOrFlagAccuracy += s.OrFlagAccuracy
		m.AvgElectiveAccuracy += s.ElectiveAccuracy
		m.AvgEdgePrecision += s.EdgePrecision
		m.AvgEdgeRecall += s.EdgeRecall
		if result.ProgramInfoMatch != nil && *result.ProgramInfoMatch {
			m.ProgramInfoMatches++
		}
	}

	if n := float64(metricsCount); n > 0 {
		m := &report.Metrics
		m.AvgCoursePrecision /= n
		m.AvgCourseRecall /= n
		m.AvgCourseF1 /= n
		m.AvgTermAccuracy /= n
		m.AvgCreditAccuracy /= n
		m.AvgPrerequisiteAccuracy /= n
		m.AvgOrFlagAccuracy /= n
		m.AvgElectiveAccuracy /= n
		m.AvgEdgePrecision /= n
		m.AvgEdgeRecall /= n
	}

	report.RunTime = time.Since(start)
	return report, nil
}

func (e *Evaluator) runCase(ctx context.Context, c Case, opts ...studyplan.ParseOption) CaseResult {
	caseStart := time.Now()
	result := CaseResult{
		Name:            c.Name,
		Document:        c.Document,
		ExpectedCourses: len(c.Expected.Courses),
	}

	res, err := e.engine.Parse(ctx, c.Document, opts...)
	result.ElapsedMs = time.Since(caseStart).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if err := e.engine.DeleteSession(ctx, res.SessionID); err != nil {
		slog.Debug("eval: dropping session", "session", res.SessionID, "error", err)
	}

	result.Method = res.Method
	result.ExtractedCourses = len(res.Courses)
	result.Scores = Score(c.Expected.Courses, res.Courses)
	if c.Expected.ProgramInfo != nil {
		match := sameProgram(*c.Expected.ProgramInfo, res.ProgramInfo)
		result.ProgramInfoMatch = &match
	}
	result.Passed = result.Scores.CourseF1 >= PassCourseF1 &&
		result.Scores.PrerequisiteAccuracy >= PassPrerequisite
	return result
}

// sameProgram compares program metadata, ignoring case and spacing in the
// title.
func sameProgram(want, got plan.ProgramInfo) bool {
	return want.ProgramCode == got.ProgramCode &&
		want.TotalCredits == got.TotalCredits &&
		strings.EqualFold(strings.Join(strings.Fields(want.ProgramTitle), " "),
			strings.Join(strings.Fields(got.ProgramTitle), " "))
}

// FormatReport produces a human-readable report string.
func FormatReport(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Extraction Report: %s ===\n", r.Dataset)
	if r.Method != "" {
		fmt.Fprintf(&b, "Method: %s\n", r.Method)
	}
	fmt.Fprintf(&b, "Total: %d | Passed: %d (%.1f%%) | Failed: %d\n",
		r.TotalCases, r.Passed, passRate(r.Passed, r.TotalCases), r.Failed)
	fmt.Fprintf(&b, "Run time: %s\n\n", r.RunTime.Round(time.Millisecond))

	m := r.Metrics
	fmt.Fprintf(&b, "Aggregate Metrics:\n")
	fmt.Fprintf(&b, "  Course P/R/F1:        %.2f / %.2f / %.2f\n", m.AvgCoursePrecision, m.AvgCourseRecall, m.AvgCourseF1)
	fmt.Fprintf(&b, "  Term Accuracy:        %.2f\n", m.AvgTermAccuracy)
	fmt.Fprintf(&b, "  Credit Accuracy:      %.2f\n", m.AvgCreditAccuracy)
	fmt.Fprintf(&b, "  Prerequisites:        %.2f\n", m.AvgPrerequisiteAccuracy)
	fmt.Fprintf(&b, "  OR Flags:             %.2f\n", m.AvgOrFlagAccuracy)
	fmt.Fprintf(&b, "  Electives:            %.2f\n", m.AvgElectiveAccuracy)
	fmt.Fprintf(&b, "  Edge P/R:             %.2f / %.2f\n", m.AvgEdgePrecision, m.AvgEdgeRecall)
	fmt.Fprintf(&b, "  Program Info:         %d matched\n\n", m.ProgramInfoMatches)

	for i, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %d. %s\n", status, i+1, res.Name)
		if res.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", res.Error)
			continue
		}
		s := res.Scores
		fmt.Fprintf(&b, "  Courses=%d/%d F1=%.2f Term=%.2f Cred=%.2f Pre=%.2f Or=%.2f Elec=%.2f  (%dms)\n",
			res.ExtractedCourses, res.ExpectedCourses, s.CourseF1, s.TermAccuracy, s.CreditAccuracy,
			s.PrerequisiteAccuracy, s.OrFlagAccuracy, s.ElectiveAccuracy, res.ElapsedMs)
		if len(s.Missing) > 0 {
			fmt.Fprintf(&b, "  Missing: %s\n", truncate(strings.Join(s.Missing, ", "), 120))
		}
		if len(s.Extra) > 0 {
			fmt.Fprintf(&b, "  Extra:   %s\n", truncate(strings.Join(s.Extra, ", "), 120))
		}
	}

	return b.String()
}

func passRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(passed) / float64(total) * 100
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
