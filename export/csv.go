// Package export renders a study plan as CSV or as an XLSX workbook.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brunobiangulo/studyplan/plan"
)

// CSVHeader is the column layout of the CSV export.
var CSVHeader = []string{"Year", "Semester", "CourseCode", "CourseTitle", "Prerequisite", "Or"}

// WriteCSV writes courses ordered by (year, semester) with a blank row
// between years. Rows use CRLF line endings.
func WriteCSV(w io.Writer, courses []plan.Course) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("export: writing csv header: %w", err)
	}

	blank := make([]string, len(CSVHeader))
	sorted := plan.SortByTerm(courses)
	for i, c := range sorted {
		if i > 0 && c.Year != sorted[i-1].Year {
			if err := cw.Write(blank); err != nil {
				return fmt.Errorf("export: writing csv separator: %w", err)
			}
		}
		if err := cw.Write(csvRecord(c)); err != nil {
			return fmt.Errorf("export: writing csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSV returns the CSV export as a string.
func CSV(courses []plan.Course) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, courses); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func csvRecord(c plan.Course) []string {
	return []string{
		strconv.Itoa(c.Year),
		strconv.Itoa(c.Semester),
		strings.TrimSpace(c.Code),
		strings.TrimSpace(c.Title),
		cleanPrerequisite(c.Prerequisite),
		strings.TrimSpace(c.OrFlag),
	}
}

// cleanPrerequisite maps the "-" placeholder some documents use for "no
// prerequisite" to an empty cell.
func cleanPrerequisite(s string) string {
	s = strings.TrimSpace(s)
	if s == "-" {
		return ""
	}
	return s
}
