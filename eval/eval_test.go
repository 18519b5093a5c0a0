package eval

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/brunobiangulo/studyplan"
	"github.com/brunobiangulo/studyplan/plan"
)

const sampleText = `Bachelor of Science Program in Computer Science
Code 25500091105741
Total Credits 132
Year 1, Semester 1
Course Code Course Title Credits
CSX 3001 Fundamentals of Computer Programming 3 (2-2-5)
GE 1401 English I 3 (3-0-6)
or GE 1402 Thai Language 3 (3-0-6)
Total 9
Year 1, Semester 2
Course Code Course Title Credits
ITX 2007 Data Communications 3 (3-0-6)
CSX 3003 Data Structures and Algorithms 3 (2-2-5)
CSX 3009 Algorithm Design 3 (3-0-6)
Total 9
Year 3, Semester 1
Course Code Course Title Credits
Two Major Elective Courses 6
Total 6
Course Descriptions
CSX 3003 Data Structures and Algorithms 3 (2-2-5)
Prerequisite: CSX 3001 Fundamentals of Computer Programming
CSX 3009 Algorithm Design 3 (3-0-6)
Prerequisites: CSX 3001 and ITX 2007
`

func golden() []plan.Course {
	return []plan.Course{
		{Year: 1, Semester: 1, Code: "CSX3001", Title: "Fundamentals of Computer Programming", Credits: 3},
		{Year: 1, Semester: 1, Code: "GE1401", Title: "English I", Credits: 3, OrFlag: "or"},
		{Year: 1, Semester: 1, Code: "GE1402", Title: "Thai Language", Credits: 3, OrFlag: "or"},
		{Year: 1, Semester: 2, Code: "ITX2007", Title: "Data Communications", Credits: 3},
		{Year: 1, Semester: 2, Code: "CSX3003", Title: "Data Structures and Algorithms", Credits: 3, Prerequisite: "CSX3001"},
		{Year: 1, Semester: 2, Code: "CSX3009", Title: "Algorithm Design", Credits: 3, Prerequisite: "CSX3001, ITX2007"},
		{Year: 3, Semester: 1, Title: plan.MajorElectiveTitle, Credits: 3},
		{Year: 3, Semester: 1, Title: plan.MajorElectiveTitle, Credits: 3},
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScorePerfect(t *testing.T) {
	s := Score(golden(), golden())
	for name, v := range map[string]float64{
		"precision": s.CoursePrecision, "recall": s.CourseRecall, "f1": s.CourseF1,
		"term": s.TermAccuracy, "credit": s.CreditAccuracy, "prereq": s.PrerequisiteAccuracy,
		"or": s.OrFlagAccuracy, "elective": s.ElectiveAccuracy,
		"edge precision": s.EdgePrecision, "edge recall": s.EdgeRecall,
	} {
		if !approx(v, 1) {
			t.Errorf("%s = %.3f, want 1", name, v)
		}
	}
	if len(s.Missing) != 0 || len(s.Extra) != 0 {
		t.Errorf("missing = %v, extra = %v", s.Missing, s.Extra)
	}
}

func TestScoreMismatch(t *testing.T) {
	want := golden()
	got := []plan.Course{
		want[0],
		{Year: 1, Semester: 1, Code: "GE 1401", Title: "English I", Credits: 3, OrFlag: "or"},
		{Year: 1, Semester: 1, Code: "GE1402", Title: "Thai Language", Credits: 3},
		want[3],
		{Year: 1, Semester: 2, Code: "CSX3003", Title: "Data Structures", Credits: 4, Prerequisite: "CSX 3001"},
		{Year: 2, Semester: 1, Code: "XYZ1234", Title: "Invented", Credits: 3},
		want[6],
	}

	s := Score(want, got)
	checks := []struct {
		name      string
		got, want float64
	}{
		{"precision", s.CoursePrecision, 5.0 / 6},
		{"recall", s.CourseRecall, 5.0 / 6},
		{"f1", s.CourseF1, 5.0 / 6},
		{"term", s.TermAccuracy, 1},
		{"credit", s.CreditAccuracy, 4.0 / 5},
		{"prereq", s.PrerequisiteAccuracy, 1},
		{"or", s.OrFlagAccuracy, 4.0 / 5},
		{"elective", s.ElectiveAccuracy, 0.5},
		{"edge precision", s.EdgePrecision, 1},
		{"edge recall", s.EdgeRecall, 0.5},
	}
	for _, c := range checks {
		if !approx(c.got, c.want) {
			t.Errorf("%s = %.3f, want %.3f", c.name, c.got, c.want)
		}
	}
	if !reflect.DeepEqual(s.Missing, []string{"CSX3009"}) {
		t.Errorf("missing = %v", s.Missing)
	}
	if !reflect.DeepEqual(s.Extra, []string{"XYZ1234"}) {
		t.Errorf("extra = %v", s.Extra)
	}
}

func TestScoreEmpty(t *testing.T) {
	s := Score(nil, nil)
	if !approx(s.CourseF1, 1) || !approx(s.ElectiveAccuracy, 1) || !approx(s.EdgeRecall, 1) {
		t.Errorf("empty plans should score perfectly: %+v", s)
	}

	s = Score(golden(), nil)
	if s.CourseRecall != 0 || s.CourseF1 != 0 || s.ElectiveAccuracy != 0 {
		t.Errorf("nothing extracted: %+v", s)
	}
}

func TestSameCodes(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"CSX3001, ITX2007", "ITX 2007 and CSX 3001", true},
		{"", "", true},
		{"CSX3001", "", false},
		{"CSX3001", "CSX3001, CSX3002", false},
	}
	for _, tt := range tests {
		if got := sameCodes(tt.a, tt.b); got != tt.want {
			t.Errorf("sameCodes(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func writeCase(t *testing.T, dir, name, text string, exp Expected) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".txt"), []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(exp)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+ExpectedSuffix), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "cs", sampleText, Expected{Courses: golden()})
	os.WriteFile(filepath.Join(dir, "unlabelled.txt"), []byte(sampleText), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644)

	ds, err := LoadDir(dir, []string{"txt", "docx"})
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(ds.Cases) != 1 || ds.Cases[0].Name != "cs" {
		t.Fatalf("cases = %+v", ds.Cases)
	}
	if len(ds.Cases[0].Expected.Courses) != 8 {
		t.Errorf("expected courses = %d", len(ds.Cases[0].Expected.Courses))
	}

	if _, err := LoadDir(t.TempDir(), []string{"txt"}); err == nil {
		t.Error("expected error for a directory without golden files")
	}

	bad := t.TempDir()
	os.WriteFile(filepath.Join(bad, "x.txt"), []byte(sampleText), 0o644)
	os.WriteFile(filepath.Join(bad, "x"+ExpectedSuffix), []byte("{"), 0o644)
	if _, err := LoadDir(bad, []string{"txt"}); err == nil {
		t.Error("expected error for malformed golden file")
	}
}

func TestEvaluatorRun(t *testing.T) {
	cfg := studyplan.DefaultConfig()
	cfg.StoreBackend = "memory"
	engine, err := studyplan.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	dir := t.TempDir()
	info := plan.ProgramInfo{
		ProgramCode:  "25500091105741",
		ProgramTitle: "Bachelor of Science Program in Computer Science",
		TotalCredits: 132,
	}
	writeCase(t, dir, "cs", sampleText, Expected{ProgramInfo: &info, Courses: golden()})
	writeCase(t, dir, "empty", "", Expected{Courses: golden()})

	ds, err := LoadDir(dir, engine.Formats())
	if err != nil {
		t.Fatal(err)
	}

	report, err := NewEvaluator(engine).Run(context.Background(), ds)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TotalCases != 2 || report.Passed != 1 || report.Failed != 1 {
		t.Fatalf("report = %d total, %d passed, %d failed", report.TotalCases, report.Passed, report.Failed)
	}
	if report.Method != "regex" {
		t.Errorf("method = %q", report.Method)
	}

	cs := report.Results[0]
	if !cs.Passed || cs.ExtractedCourses != 8 {
		t.Errorf("cs result = %+v", cs)
	}
	if cs.ProgramInfoMatch == nil || !*cs.ProgramInfoMatch {
		t.Errorf("program info did not match")
	}
	if report.Results[1].Error == "" {
		t.Error("empty document should report an error")
	}

	// Only the scored case counts toward the averages.
	if !approx(report.Metrics.AvgCourseF1, 1) || report.Metrics.ProgramInfoMatches != 1 {
		t.Errorf("metrics = %+v", report.Metrics)
	}

	text := FormatReport(report)
	for _, want := range []string{"Extraction Report", "[PASS] 1. cs", "[FAIL] 2. empty", "Error:"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestEvaluatorCancelled(t *testing.T) {
	cfg := studyplan.DefaultConfig()
	cfg.StoreBackend = "memory"
	engine, err := studyplan.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ds := Dataset{Name: "x", Cases: []Case{{Name: "a", Document: "a.txt"}}}
	if _, err := NewEvaluator(engine).Run(ctx, ds); err == nil {
		t.Error("expected context error")
	}
}
