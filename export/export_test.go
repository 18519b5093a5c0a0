package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/studyplan/graph"
	"github.com/brunobiangulo/studyplan/plan"
)

func testCourses() []plan.Course {
	return []plan.Course{
		{Year: 2, Semester: 1, Code: "CSX3009", Title: "Algorithm Design", Credits: 3, Prerequisite: "CSX3001, ITX2007"},
		{Year: 1, Semester: 2, Code: "ITX2007", Title: "Data Communications", Credits: 3, Prerequisite: "-"},
		{Year: 1, Semester: 1, Code: "CSX3001", Title: " Programming, Part 1 ", Credits: 4},
		{Year: 1, Semester: 1, Code: "GE1401", Title: "English I", Credits: 3, OrFlag: "or"},
		{Year: 3, Semester: 1, Title: plan.MajorElectiveTitle, Credits: 3},
	}
}

func TestCSV(t *testing.T) {
	got, err := CSV(testCourses())
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	want := "Year,Semester,CourseCode,CourseTitle,Prerequisite,Or\r\n" +
		"1,1,CSX3001,\"Programming, Part 1\",,\r\n" +
		"1,1,GE1401,English I,,or\r\n" +
		"1,2,ITX2007,Data Communications,,\r\n" +
		",,,,,\r\n" +
		"2,1,CSX3009,Algorithm Design,\"CSX3001, ITX2007\",\r\n" +
		",,,,,\r\n" +
		"3,1,,Major Elective Course,,\r\n"
	if got != want {
		t.Errorf("CSV mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestCSVEmpty(t *testing.T) {
	got, err := CSV(nil)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if got != "Year,Semester,CourseCode,CourseTitle,Prerequisite,Or\r\n" {
		t.Errorf("CSV(nil) = %q", got)
	}
}

func TestXLSX(t *testing.T) {
	courses := testCourses()
	info := plan.ProgramInfo{ProgramCode: "25500091105741", ProgramTitle: "Computer Science", TotalCredits: 132}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, info, courses, graph.Build(courses)); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != PlanSheet || sheets[1] != GraphSheet {
		t.Fatalf("sheets = %v", sheets)
	}

	rows, err := f.GetRows(PlanSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	// header + 4 courses + separator + 1 course + separator + 1 elective;
	// excelize drops trailing empty cells but keeps empty rows.
	if len(rows) != 8 {
		t.Fatalf("got %d plan rows, want 8: %v", len(rows), rows)
	}
	if rows[0][4] != "Credits" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "CSX3001" || rows[1][4] != "4" {
		t.Errorf("first course row = %v", rows[1])
	}
	if len(rows[4]) != 0 {
		t.Errorf("separator row = %v, want empty", rows[4])
	}

	edges, err := f.GetRows(GraphSheet)
	if err != nil {
		t.Fatalf("GetRows graph: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("got %d graph rows, want 2: %v", len(edges), edges)
	}
	if edges[1][0] != "CSX3009" || edges[1][1] != "CSX3001" || edges[1][2] != "CSX3001, ITX2007" {
		t.Errorf("edge row = %v", edges[1])
	}

	props, err := f.GetDocProps()
	if err != nil {
		t.Fatalf("GetDocProps: %v", err)
	}
	if props.Subject != "25500091105741" {
		t.Errorf("doc subject = %q", props.Subject)
	}
}

func TestXLSXWithoutGraph(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, plan.ProgramInfo{}, nil, nil); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	if got := f.GetSheetList(); len(got) != 1 {
		t.Errorf("sheets = %v, want only %q", got, PlanSheet)
	}
}
