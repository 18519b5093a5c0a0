package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/brunobiangulo/studyplan"
	"github.com/brunobiangulo/studyplan/graph"
	"github.com/brunobiangulo/studyplan/plan"
)

// stdout and stderr are swapped out by tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// ParseCmd extracts a study plan from one document.
type ParseCmd struct {
	File   string `arg:"" type:"existingfile" help:"Study plan document (docx, pdf, xlsx, txt)"`
	Format string `short:"f" default:"json" enum:"json,csv,xlsx,graph" help:"Output format (json, csv, xlsx, graph)"`
	Out    string `short:"o" help:"Output file (default stdout)"`
	LLM    bool   `name:"llm" help:"Use the LLM extractor instead of the regex extractor"`
}

// Run executes the parse command.
func (c *ParseCmd) Run(g *Globals) error {
	if c.Format == "xlsx" && c.Out == "" {
		return fmt.Errorf("xlsx output needs --out")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := g.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.Parse(ctx, c.File, parseOptions(c.LLM)...)
	if err != nil {
		return err
	}

	w, closeOut, err := openOutput(c.Out)
	if err != nil {
		return err
	}

	switch c.Format {
	case "csv":
		var csv string
		if csv, err = e.CSV(ctx, res.SessionID); err == nil {
			_, err = io.WriteString(w, csv)
		}
	case "xlsx":
		err = e.XLSX(ctx, res.SessionID, w)
	case "graph":
		err = writeJSON(w, res.Graph)
	default:
		err = writeJSON(w, res)
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s output: %w", c.Format, err)
	}

	printSummary(stderr, res)
	if c.Out != "" {
		color.New(color.FgGreen).Fprintf(stderr, "  Written:   %s\n", c.Out)
	}
	return nil
}

// ChainCmd prints the prerequisite chain of one course.
type ChainCmd struct {
	File      string `arg:"" type:"existingfile" help:"Study plan document"`
	Code      string `arg:"" help:"Course code, e.g. CSX3009"`
	Direction string `short:"d" default:"prerequisites" enum:"prerequisites,dependents,up,down" help:"Follow prerequisites or dependents"`
	Depth     int    `default:"0" help:"Maximum hops (0 = unlimited)"`
	LLM       bool   `name:"llm" help:"Use the LLM extractor instead of the regex extractor"`
}

// Run executes the chain command.
func (c *ChainCmd) Run(g *Globals) error {
	dir, err := graph.ParseDirection(c.Direction)
	if err != nil {
		return err
	}

	ctx := context.Background()
	e, err := g.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.Parse(ctx, c.File, parseOptions(c.LLM)...)
	if err != nil {
		return err
	}
	chain, err := e.Chain(ctx, res.SessionID, c.Code, dir, c.Depth)
	if err != nil {
		return err
	}

	heading := "Prerequisites"
	if dir == graph.Downstream {
		heading = "Dependents"
	}
	color.New(color.Bold).Fprintf(stdout, "%s of %s\n", heading, c.Code)
	if len(chain) == 0 {
		fmt.Fprintln(stdout, "  (none)")
		return nil
	}
	for _, step := range chain {
		title := ""
		if n, ok := res.Graph.Node(step.ID); ok {
			title = n.Title
		}
		fmt.Fprintf(stdout, "%s%s  %s\n", strings.Repeat("  ", step.Depth), color.CyanString(step.ID), title)
	}
	return nil
}

// FormatsCmd lists the document formats the engine reads.
type FormatsCmd struct{}

// Run executes the formats command.
func (c *FormatsCmd) Run(g *Globals) error {
	e, err := g.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	for _, f := range e.Formats() {
		fmt.Fprintln(stdout, f)
	}
	return nil
}

func parseOptions(useLLM bool) []studyplan.ParseOption {
	if useLLM {
		return []studyplan.ParseOption{studyplan.WithLLM()}
	}
	return nil
}

// openOutput returns stdout when path is empty.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, f.Close, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSummary writes a short colored report of a parse.
func printSummary(w io.Writer, res *studyplan.Result) {
	electives, orCourses := 0, 0
	terms := make(map[plan.Term]bool)
	for _, c := range res.Courses {
		terms[c.Term()] = true
		if c.IsElective() {
			electives++
		}
		if c.IsOr() {
			orCourses++
		}
	}

	color.New(color.FgGreen, color.Bold).Fprintf(w, "✓ %s (%s)\n", res.Filename, res.Method)
	fmt.Fprintf(w, "  Program:   %s %s\n", res.ProgramInfo.ProgramCode, res.ProgramInfo.ProgramTitle)
	fmt.Fprintf(w, "  Courses:   %d in %d terms (%d electives, %d in OR groups)\n",
		len(res.Courses), len(terms), electives, orCourses)
	if res.Graph != nil {
		fmt.Fprintf(w, "  Graph:     %d nodes, %d edges\n", len(res.Graph.Nodes), len(res.Graph.Edges))
	}
	if len(res.Courses) == 0 {
		color.New(color.FgYellow).Fprintln(w, "  No courses found. Is this a study plan document?")
	}
}
