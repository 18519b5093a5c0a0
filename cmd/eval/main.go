// Command eval scores study-plan extraction against golden files.
//
// Every document in the dataset directory with a sibling
// <name>.expected.json is parsed and compared:
//
//	go run ./cmd/eval --dir ./testdata/plans
//	go run ./cmd/eval --dir ./testdata/plans --llm --chat-provider gemini
//	go run ./cmd/eval --dir ./testdata/plans --compare --output report.json
//
// A golden file has the shape of `studyplan parse` JSON output, so a
// reviewed parse can be saved as the expectation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/brunobiangulo/studyplan"
	"github.com/brunobiangulo/studyplan/eval"
)

func main() {
	var (
		dir          = flag.String("dir", "", "Dataset directory (documents plus *.expected.json)")
		configPath   = flag.String("config", "", "Path to config file (YAML or JSON)")
		useLLM       = flag.Bool("llm", false, "Evaluate the LLM extractor instead of the regex extractor")
		compare      = flag.Bool("compare", false, "Evaluate both extractors and report each")
		chatProvider = flag.String("chat-provider", "", "Chat LLM provider (overrides config)")
		chatModel    = flag.String("chat-model", "", "Chat model name (overrides config)")
		chatBaseURL  = flag.String("chat-base-url", "", "Chat provider base URL override")
		outputFile   = flag.String("output", "", "Path to write the JSON report")
		verbose      = flag.Bool("verbose", false, "Debug logging")
	)
	flag.Parse()

	if *dir == "" {
		log.Fatal("--dir is required")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("loading .env", "error", err)
	}

	cfg := studyplan.DefaultConfig()
	if *configPath != "" {
		loaded, err := studyplan.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	cfg.StoreBackend = "memory"
	if *chatProvider != "" {
		cfg.Chat.Provider = *chatProvider
	}
	if *chatModel != "" {
		cfg.Chat.Model = *chatModel
	}
	if *chatBaseURL != "" {
		cfg.Chat.BaseURL = *chatBaseURL
	}

	engine, err := studyplan.New(cfg)
	if err != nil {
		log.Fatalf("creating engine: %v", err)
	}
	defer engine.Close()

	ds, err := eval.LoadDir(*dir, engine.Formats())
	if err != nil {
		log.Fatalf("loading dataset: %v", err)
	}
	slog.Info("eval: dataset loaded", "dir", *dir, "cases", len(ds.Cases))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runs [][]studyplan.ParseOption
	switch {
	case *compare:
		runs = [][]studyplan.ParseOption{nil, {studyplan.WithLLM()}}
	case *useLLM:
		runs = [][]studyplan.ParseOption{{studyplan.WithLLM()}}
	default:
		runs = [][]studyplan.ParseOption{nil}
	}
	if (*compare || *useLLM) && !engine.LLMAvailable() {
		log.Fatal("LLM evaluation needs a chat provider (--chat-provider or config)")
	}

	evaluator := eval.NewEvaluator(engine)
	var reports []*eval.Report
	for _, opts := range runs {
		report, err := evaluator.Run(ctx, ds, opts...)
		if err != nil {
			log.Fatalf("evaluation failed: %v", err)
		}
		fmt.Println(eval.FormatReport(report))
		reports = append(reports, report)
	}

	if *outputFile != "" {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			log.Fatalf("encoding report: %v", err)
		}
		if err := os.WriteFile(*outputFile, data, 0o644); err != nil {
			log.Fatalf("writing report: %v", err)
		}
		slog.Info("eval: report written", "path", *outputFile)
	}

	for _, r := range reports {
		if r.Failed > 0 {
			stop()
			engine.Close()
			os.Exit(1)
		}
	}
}
