package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"

	"github.com/brunobiangulo/studyplan"
)

// WatchCmd extracts every study plan written into a directory.
type WatchCmd struct {
	Dir      string        `arg:"" type:"existingdir" help:"Directory to watch"`
	Out      string        `short:"o" help:"Directory for results (default: the watched directory)"`
	LLM      bool          `name:"llm" help:"Use the LLM extractor instead of the regex extractor"`
	Debounce time.Duration `default:"2s" help:"Quiet period before a changed file is processed"`
	Existing bool          `help:"Process documents already in the directory on start"`
}

// Run executes the watch command. It blocks until interrupted.
func (c *WatchCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := g.openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	w := &watcher{
		engine:   e,
		dir:      c.Dir,
		outDir:   c.Out,
		useLLM:   c.LLM,
		debounce: c.Debounce,
		formats:  make(map[string]bool),
	}
	if w.outDir == "" {
		w.outDir = c.Dir
	}
	for _, f := range e.Formats() {
		w.formats["."+f] = true
	}

	if c.Existing {
		w.processExisting(ctx)
	}
	err = w.run(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

type watcher struct {
	engine   studyplan.Engine
	dir      string
	outDir   string
	useLLM   bool
	debounce time.Duration
	formats  map[string]bool
}

// run monitors dir and processes changed documents in debounced batches.
// Blocks until the context is cancelled.
func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	changed := make(map[string]bool)
	batchTimer := time.NewTimer(w.debounce)
	batchTimer.Stop()

	fmt.Fprintf(stderr, "Watching %s for study plans (Ctrl+C to stop)\n", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.shouldProcess(event.Name) {
				continue
			}
			changed[event.Name] = true
			batchTimer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch: watcher error", "error", err)

		case <-batchTimer.C:
			for path := range changed {
				w.process(ctx, path)
			}
			changed = make(map[string]bool)
		}
	}
}

func (w *watcher) processExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		slog.Warn("watch: listing directory", "dir", w.dir, "error", err)
		return
	}
	for _, entry := range entries {
		path := filepath.Join(w.dir, entry.Name())
		if !entry.IsDir() && w.shouldProcess(path) {
			w.process(ctx, path)
		}
	}
}

// shouldProcess skips unsupported formats, hidden files and the lock files
// office suites leave next to open documents.
func (w *watcher) shouldProcess(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return false
	}
	return w.formats[strings.ToLower(filepath.Ext(name))]
}

// process parses one document and writes <name>.csv and <name>.graph.json
// into the output directory. Failures are reported and do not stop the
// watcher.
func (w *watcher) process(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		return // removed before the batch fired
	}

	if err := w.extract(ctx, path); err != nil {
		color.New(color.FgRed).Fprintf(stderr, "✗ %s: %v\n", filepath.Base(path), err)
	}
}

func (w *watcher) extract(ctx context.Context, path string) error {
	res, err := w.engine.Parse(ctx, path, parseOptions(w.useLLM)...)
	if err != nil {
		return err
	}
	// Results are on disk; the session is not needed afterwards.
	defer w.engine.DeleteSession(ctx, res.SessionID)

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	csv, err := w.engine.CSV(ctx, res.SessionID)
	if err != nil {
		return err
	}
	csvPath := filepath.Join(w.outDir, base+".csv")
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", csvPath, err)
	}

	graphPath := filepath.Join(w.outDir, base+".graph.json")
	f, err := os.Create(graphPath)
	if err != nil {
		return fmt.Errorf("writing %s: %w", graphPath, err)
	}
	if err := writeJSON(f, res.Graph); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", graphPath, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	printSummary(stderr, res)
	return nil
}
