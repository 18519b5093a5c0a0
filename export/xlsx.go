package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/studyplan/graph"
	"github.com/brunobiangulo/studyplan/plan"
)

// Sheet names of the XLSX export.
const (
	PlanSheet  = "Study Plan"
	GraphSheet = "Graph"
)

var (
	planHeader  = []any{"Year", "Semester", "CourseCode", "CourseTitle", "Credits", "Prerequisite", "Or"}
	graphHeader = []any{"To", "From", "Sources"}
)

// WriteXLSX writes a workbook with the course list on PlanSheet and, when g
// is not nil, the prerequisite edges on GraphSheet. Program info goes in
// the document properties.
func WriteXLSX(w io.Writer, info plan.ProgramInfo, courses []plan.Course, g *graph.StudyPlanGraph) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PlanSheet); err != nil {
		return fmt.Errorf("export: renaming sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: creating header style: %w", err)
	}

	if err := writePlanSheet(f, courses, bold); err != nil {
		return err
	}
	if g != nil {
		if err := writeGraphSheet(f, g, bold); err != nil {
			return err
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       info.ProgramTitle,
		Subject:     info.ProgramCode,
		Description: fmt.Sprintf("%d total credits", info.TotalCredits),
		Creator:     "studyplan",
	}); err != nil {
		return fmt.Errorf("export: setting document properties: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: writing xlsx: %w", err)
	}
	return nil
}

func writePlanSheet(f *excelize.File, courses []plan.Course, headerStyle int) error {
	if err := f.SetSheetRow(PlanSheet, "A1", &planHeader); err != nil {
		return fmt.Errorf("export: writing plan header: %w", err)
	}
	if err := f.SetCellStyle(PlanSheet, "A1", "G1", headerStyle); err != nil {
		return fmt.Errorf("export: styling plan header: %w", err)
	}

	row := 2
	sorted := plan.SortByTerm(courses)
	for i, c := range sorted {
		if i > 0 && c.Year != sorted[i-1].Year {
			row++
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []any{
			c.Year, c.Semester,
			strings.TrimSpace(c.Code), strings.TrimSpace(c.Title),
			c.Credits, cleanPrerequisite(c.Prerequisite), strings.TrimSpace(c.OrFlag),
		}
		if err := f.SetSheetRow(PlanSheet, cell, &values); err != nil {
			return fmt.Errorf("export: writing plan row %d: %w", row, err)
		}
		row++
	}

	if err := f.SetColWidth(PlanSheet, "D", "D", 45); err != nil {
		return err
	}
	return f.SetColWidth(PlanSheet, "F", "F", 25)
}

func writeGraphSheet(f *excelize.File, g *graph.StudyPlanGraph, headerStyle int) error {
	if _, err := f.NewSheet(GraphSheet); err != nil {
		return fmt.Errorf("export: creating graph sheet: %w", err)
	}
	if err := f.SetSheetRow(GraphSheet, "A1", &graphHeader); err != nil {
		return fmt.Errorf("export: writing graph header: %w", err)
	}
	if err := f.SetCellStyle(GraphSheet, "A1", "C1", headerStyle); err != nil {
		return fmt.Errorf("export: styling graph header: %w", err)
	}

	for i, e := range g.Edges {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{e.To, e.From, strings.Join(e.Sources, ", ")}
		if err := f.SetSheetRow(GraphSheet, cell, &values); err != nil {
			return fmt.Errorf("export: writing graph row %d: %w", i+2, err)
		}
	}
	return nil
}
