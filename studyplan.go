// Package studyplan extracts university study plans from DOCX/PDF
// documents into course records and a prerequisite graph, and keeps each
// result as a short-lived session.
package studyplan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brunobiangulo/studyplan/export"
	"github.com/brunobiangulo/studyplan/extract"
	"github.com/brunobiangulo/studyplan/graph"
	"github.com/brunobiangulo/studyplan/llm"
	"github.com/brunobiangulo/studyplan/parser"
	"github.com/brunobiangulo/studyplan/plan"
	"github.com/brunobiangulo/studyplan/store"
)

// Engine is the main entry point for study-plan extraction.
type Engine interface {
	// Parse reads a document, extracts the study plan, builds its graph and
	// stores the result as a new session.
	Parse(ctx context.Context, path string, opts ...ParseOption) (*Result, error)

	// Session returns a stored parse result.
	Session(ctx context.Context, id string) (*store.Session, error)

	// CSV returns the CSV export of a session.
	CSV(ctx context.Context, id string) (string, error)

	// XLSX writes the workbook export of a session to w.
	XLSX(ctx context.Context, id string, w io.Writer) error

	// Graph returns the prerequisite graph of a session.
	Graph(ctx context.Context, id string) (*graph.StudyPlanGraph, error)

	// ProgramInfo returns the program metadata of a session.
	ProgramInfo(ctx context.Context, id string) (*plan.ProgramInfo, error)

	// Chain walks the prerequisite graph of a session from one course.
	Chain(ctx context.Context, id, code string, dir graph.Direction, depth int) ([]graph.TraversalResult, error)

	// DeleteSession removes a session before it expires.
	DeleteSession(ctx context.Context, id string) error

	// LLMAvailable reports whether the LLM extraction path is configured.
	LLMAvailable() bool

	// Formats lists the document formats Parse accepts.
	Formats() []string

	// Close stops the sweeper and closes the session store.
	Close() error
}

// Result is the outcome of a parse.
type Result struct {
	SessionID   string                `json:"session_id"`
	Filename    string                `json:"filename"`
	Method      string                `json:"method"`
	ProgramInfo plan.ProgramInfo      `json:"program_info"`
	Courses     []plan.Course         `json:"courses"`
	Graph       *graph.StudyPlanGraph `json:"graph"`
}

// ParseOption configures a parse.
type ParseOption func(*parseOptions)

type parseOptions struct {
	useLLM   bool
	filename string
}

// WithLLM selects the LLM extraction path instead of the regex path.
func WithLLM() ParseOption {
	return func(o *parseOptions) { o.useLLM = true }
}

// WithFilename records the original name of an uploaded file whose
// contents were saved under a temporary path.
func WithFilename(name string) ParseOption {
	return func(o *parseOptions) { o.filename = name }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg      Config
	store    store.SessionStore
	parsers  *parser.Registry
	regex    extract.Extractor
	llmExtr  extract.Extractor
	stopSwp  context.CancelFunc
	sweeping sync.WaitGroup
}

// New creates an engine with the given configuration and starts the
// session sweeper.
func New(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbPath := cfg.resolveDBPath()
	s, err := store.Open(cfg.StoreBackend, dbPath, cfg.SessionTTL())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	var llmExtr extract.Extractor
	if cfg.Chat.Provider != "" {
		chatLLM, err := llm.NewProvider(llm.Config{
			Provider:   cfg.Chat.Provider,
			Model:      cfg.Chat.Model,
			BaseURL:    cfg.Chat.BaseURL,
			APIKey:     cfg.Chat.APIKey,
			Timeout:    time.Duration(cfg.Chat.TimeoutSeconds) * time.Second,
			MaxRetries: cfg.Chat.MaxRetries,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("%w: creating chat provider: %v", ErrInvalidConfig, err)
		}
		llmExtr = extract.NewLLMExtractor(chatLLM, cfg.Chat.Model, cfg.LLMMaxChars)
	}

	e := newEngine(cfg, s, llmExtr)
	slog.Info("studyplan: engine ready",
		"store", cfg.StoreBackend, "db", dbPath,
		"llm", cfg.Chat.Provider, "session_ttl", cfg.SessionTTL())
	return e, nil
}

func newEngine(cfg Config, s store.SessionStore, llmExtr extract.Extractor) *engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &engine{
		cfg:     cfg,
		store:   s,
		parsers: parser.NewRegistry(),
		regex:   extract.NewRegexExtractor(),
		llmExtr: llmExtr,
		stopSwp: cancel,
	}
	e.sweeping.Add(1)
	go func() {
		defer e.sweeping.Done()
		store.RunSweeper(ctx, s, cfg.SessionTTL(), cfg.SweepInterval())
	}()
	return e
}

// Parse runs parser -> normalizer -> extractor -> validator -> graph
// builder and stores the result.
func (e *engine) Parse(ctx context.Context, path string, opts ...ParseOption) (*Result, error) {
	options := &parseOptions{}
	for _, o := range opts {
		o(options)
	}

	filename := options.filename
	if filename == "" {
		filename = filepath.Base(path)
	}
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	extractor := e.regex
	if options.useLLM {
		if e.llmExtr == nil {
			return nil, ErrLLMUnavailable
		}
		extractor = e.llmExtr
	}

	p, err := e.parsers.Get(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	slog.Info("parse: reading document", "file", filename, "format", format, "method", extractor.Name())
	start := time.Now()

	parsed, err := p.Parse(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	lines := parser.Normalize(parsed.Blocks)
	if len(lines) == 0 {
		return nil, ErrEmptyDocument
	}

	res, err := extractor.Extract(ctx, extract.Input{
		Lines:      lines,
		Paragraphs: parsed.Paragraphs(),
	})
	if err != nil {
		if options.useLLM {
			return nil, fmt.Errorf("%w: %v", ErrLLMRequestFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	g := graph.Build(res.Courses)
	if err := graph.Validate(g); err != nil {
		slog.Warn("parse: graph invariants violated", "file", filename, "error", err)
	}

	csv, err := export.CSV(res.Courses)
	if err != nil {
		return nil, fmt.Errorf("rendering csv: %w", err)
	}

	sess := &store.Session{
		ID:          uuid.NewString(),
		Filename:    filename,
		Format:      format,
		Method:      res.Method,
		ProgramInfo: res.ProgramInfo,
		Courses:     res.Courses,
		Graph:       g,
		CSV:         csv,
		CreatedAt:   time.Now(),
	}
	if err := e.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("storing session: %w", mapStoreErr(err))
	}

	slog.Info("parse: complete",
		"file", filename, "session", sess.ID,
		"courses", len(res.Courses), "nodes", len(g.Nodes), "edges", len(g.Edges),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{
		SessionID:   sess.ID,
		Filename:    filename,
		Method:      res.Method,
		ProgramInfo: res.ProgramInfo,
		Courses:     res.Courses,
		Graph:       g,
	}, nil
}

func (e *engine) Session(ctx context.Context, id string) (*store.Session, error) {
	sess, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if time.Since(sess.CreatedAt) > e.cfg.SessionTTL() {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (e *engine) CSV(ctx context.Context, id string) (string, error) {
	sess, err := e.Session(ctx, id)
	if err != nil {
		return "", err
	}
	if sess.CSV != "" {
		return sess.CSV, nil
	}
	return export.CSV(sess.Courses)
}

func (e *engine) XLSX(ctx context.Context, id string, w io.Writer) error {
	sess, err := e.Session(ctx, id)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, sess.ProgramInfo, sess.Courses, sess.Graph); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

func (e *engine) Graph(ctx context.Context, id string) (*graph.StudyPlanGraph, error) {
	sess, err := e.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Graph == nil {
		return graph.Build(sess.Courses), nil
	}
	return sess.Graph, nil
}

func (e *engine) ProgramInfo(ctx context.Context, id string) (*plan.ProgramInfo, error) {
	sess, err := e.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	return &sess.ProgramInfo, nil
}

func (e *engine) Chain(ctx context.Context, id, code string, dir graph.Direction, depth int) ([]graph.TraversalResult, error) {
	g, err := e.Graph(ctx, id)
	if err != nil {
		return nil, err
	}
	return graph.Traverse(g, code, dir, depth)
}

func (e *engine) DeleteSession(ctx context.Context, id string) error {
	if err := e.store.Delete(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	slog.Info("studyplan: session deleted", "session", id)
	return nil
}

func (e *engine) LLMAvailable() bool { return e.llmExtr != nil }

func (e *engine) Formats() []string { return e.parsers.Formats() }

// Close cleanly shuts down the engine.
func (e *engine) Close() error {
	e.stopSwp()
	e.sweeping.Wait()
	return e.store.Close()
}

// mapStoreErr translates store sentinels into package errors.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, store.ErrClosed):
		return ErrStoreClosed
	default:
		return err
	}
}
