package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brunobiangulo/studyplan/plan"
)

// ExpectedSuffix names the golden file that sits next to each document:
// plan.docx is scored against plan.expected.json.
const ExpectedSuffix = ".expected.json"

// Dataset is a collection of documents with known study plans.
type Dataset struct {
	Name  string `json:"name"`
	Cases []Case `json:"cases"`
}

// Case is one document and the study plan it should yield.
type Case struct {
	Name     string   `json:"name"`
	Document string   `json:"document"`
	Expected Expected `json:"expected"`
}

// Expected is the golden extraction for a document. It has the shape of a
// parse result, so the JSON output of `studyplan parse` can be reviewed and
// saved as a golden file.
type Expected struct {
	ProgramInfo *plan.ProgramInfo `json:"program_info,omitempty"`
	Courses     []plan.Course     `json:"courses"`
}

// LoadExpected reads a golden file.
func LoadExpected(path string) (Expected, error) {
	var exp Expected
	data, err := os.ReadFile(path)
	if err != nil {
		return exp, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &exp); err != nil {
		return exp, fmt.Errorf("decoding %s: %w", path, err)
	}
	return exp, nil
}

// LoadDir builds a dataset from every document in dir that has a golden
// file beside it. formats lists the accepted extensions without the dot.
// Documents without a golden file are skipped.
func LoadDir(dir string, formats []string) (Dataset, error) {
	accept := make(map[string]bool, len(formats))
	for _, f := range formats {
		accept["."+strings.ToLower(f)] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Dataset{}, fmt.Errorf("reading dataset dir: %w", err)
	}

	ds := Dataset{Name: filepath.Base(dir)}
	for _, entry := range entries {
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if entry.IsDir() || !accept[ext] {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		goldenPath := filepath.Join(dir, base+ExpectedSuffix)
		if _, err := os.Stat(goldenPath); err != nil {
			continue
		}
		exp, err := LoadExpected(goldenPath)
		if err != nil {
			return Dataset{}, err
		}
		ds.Cases = append(ds.Cases, Case{
			Name:     base,
			Document: filepath.Join(dir, name),
			Expected: exp,
		})
	}

	sort.Slice(ds.Cases, func(i, j int) bool { return ds.Cases[i].Name < ds.Cases[j].Name })
	if len(ds.Cases) == 0 {
		return ds, fmt.Errorf("no documents with %s files in %s", ExpectedSuffix, dir)
	}
	return ds, nil
}
