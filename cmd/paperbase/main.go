// Package main is the Paperbase CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/paperbase/paperbase/internal/config"
	"github.com/paperbase/paperbase/internal/embedding"
	"github.com/paperbase/paperbase/internal/extract"
	"github.com/paperbase/paperbase/internal/generate"
	"github.com/paperbase/paperbase/internal/ingest"
	"github.com/paperbase/paperbase/internal/manifest"
	"github.com/paperbase/paperbase/internal/metrics"
	"github.com/paperbase/paperbase/internal/models"
	"github.com/paperbase/paperbase/internal/retrieval"
	"github.com/paperbase/paperbase/internal/server"
	"github.com/paperbase/paperbase/internal/store"
	"github.com/paperbase/paperbase/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/paperbase/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	// .env is optional; environment overrides are applied during config load.
	_ = godotenv.Load()
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("paperbase version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	metrics.Register()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Populate the store before serving; a populated store makes this a no-op.
	ingestCtx, ingestCancel := context.WithCancel(context.Background())
	defer ingestCancel()
	report, err := components.Pipeline.Run(ingestCtx)
	if err != nil {
		logger.Fatal("Ingestion failed", zap.Error(err))
	}
	components.recordRun(context.Background(), report, logger)

	srv := server.NewServer(
		components.Retriever,
		components.Generator,
		components.Store,
		components.Manifest,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	report, err := components.Pipeline.Run(ctx)
	if report != nil {
		components.recordRun(context.Background(), report, logger)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	default:
		printReport(report)
	}
}

func printReport(report *models.Report) {
	if report.Skipped {
		fmt.Println("Store already populated; nothing ingested.")
		return
	}
	fmt.Printf("Ingested %d chunk(s) from %d file(s) in %s\n",
		report.TotalChunks(), len(report.Files),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	for _, f := range report.Files {
		switch f.Status {
		case models.FileStatusFailed:
			fmt.Printf("  FAILED  %-40s %s\n", f.File, f.Error)
		default:
			line := fmt.Sprintf("  ok      %-40s %d page(s), %d chunk(s)", f.File, f.Pages, f.Chunks)
			if f.PagesFailed > 0 {
				line += fmt.Sprintf(", %d page(s) skipped", f.PagesFailed)
			}
			fmt.Println(line)
		}
	}
}

// buildQueryText joins all positional args with spaces so multi-word
// questions work the same with or without shell quoting.
func buildQueryText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct component mode)")
	topK := fs.Int("top-k", 0, "number of context chunks (0 = config default)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: paperbase query [flags] <question>")
		os.Exit(1)
	}
	queryText := buildQueryText(fs.Args())
	if queryText == "" {
		fmt.Println("Usage: paperbase query [flags] <question>")
		os.Exit(1)
	}

	if *serverURL != "" {
		resp, err := queryViaHTTP(*serverURL, queryText)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		printAnswer(resp)
		return
	}

	// Direct component access (when the server is not running).
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	results, err := components.Retriever.Retrieve(ctx, queryText, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	answer, err := components.Generator.GenerateAnswer(ctx, queryText, results)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Answer generation failed: %v\n", err)
		os.Exit(1)
	}
	resp := &models.QueryResponse{Answer: answer}
	texts := make([]string, 0, len(results))
	for _, r := range results {
		resp.Metadata = append(resp.Metadata, models.QueryResponseMetadata{
			DocName: r.Metadata.DocName,
			Page:    r.Metadata.PageNumber,
		})
		texts = append(texts, r.Text)
	}
	resp.Paragraph = [][]string{texts}
	printAnswer(resp)
}

func printAnswer(resp *models.QueryResponse) {
	fmt.Println(resp.Answer)
	if len(resp.Metadata) > 0 {
		fmt.Println("\nSources:")
		for _, m := range resp.Metadata {
			fmt.Printf("  %s, page %d\n", m.DocName, m.Page)
		}
	}
}

func queryViaHTTP(serverURL, queryText string) (*models.QueryResponse, error) {
	body, err := json.Marshal(models.QueryRequest{QueryText: queryText})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct component mode)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status server.StatusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()

		ctx := context.Background()
		count, err := components.Store.Count(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Store count failed: %v\n", err)
			os.Exit(1)
		}
		status.Chunks = count
		if run, err := components.Manifest.LatestRun(ctx); err == nil && run != nil {
			status.LastRun = &server.RunSummary{
				RunID:       run.RunID,
				FinishedAt:  run.FinishedAt,
				Skipped:     run.Skipped,
				Completed:   run.Completed,
				Files:       len(run.Files),
				FilesFailed: run.FailedFiles(),
				Chunks:      run.TotalChunks(),
			}
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("chunks:       %d   # chunks in the vector store\n", status.Chunks)
		if status.LastRun != nil {
			fmt.Println()
			fmt.Println("# last ingestion run")
			fmt.Printf("run_id:       %s\n", status.LastRun.RunID)
			fmt.Printf("finished_at:  %s\n", status.LastRun.FinishedAt.Format(time.RFC3339))
			fmt.Printf("skipped:      %t\n", status.LastRun.Skipped)
			fmt.Printf("completed:    %t\n", status.LastRun.Completed)
			fmt.Printf("files:        %d (%d failed)\n", status.LastRun.Files, status.LastRun.FilesFailed)
			fmt.Printf("chunks:       %d\n", status.LastRun.Chunks)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*server.StatusResponse, error) {
	resp, err := http.Get(serverURL + "/api/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s server.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Store     store.VectorStore
	Embedder  embedding.Embedder
	Manifest  *manifest.Manifest
	Pipeline  *ingest.Pipeline
	Retriever *retrieval.Service
	Generator generate.Generator
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Manifest != nil {
		_ = c.Manifest.Close()
	}
}

// recordRun persists a run report to the manifest. Manifest failures are
// logged and otherwise ignored; the manifest is advisory.
func (c *Components) recordRun(ctx context.Context, report *models.Report, logger *zap.Logger) {
	if c.Manifest == nil || report == nil {
		return
	}
	if err := c.Manifest.RecordRun(ctx, report); err != nil {
		logger.Warn("failed to record ingest run", zap.Error(err))
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	vs, err := store.NewChromemStore(cfg.Store.Path, cfg.Store.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	var embedder embedding.Embedder = embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	embedder = embedding.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)

	m, err := manifest.Open(cfg.Manifest.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize manifest: %w", err)
	}

	chunker, err := ingest.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}
	pipeline := ingest.NewPipeline(
		extract.OpenPDF,
		chunker,
		embedder,
		vs,
		cfg.Resources.Path,
		ingest.WithWorkers(cfg.Ingest.Workers),
		ingest.WithLogger(logger),
	)

	retriever := retrieval.NewService(embedder, vs, cfg.Retrieval.TopK)
	generator := generate.NewOpenAIGenerator(generate.OpenAIConfig{
		BaseURL:          cfg.Embedding.BaseURL,
		APIKey:           cfg.Embedding.APIKey,
		Model:            cfg.Generation.Model,
		MaxContextChunks: cfg.Generation.MaxContextChunks,
	})

	return &Components{
		Store:     vs,
		Embedder:  embedder,
		Manifest:  m,
		Pipeline:  pipeline,
		Retriever: retriever,
		Generator: generator,
	}, nil
}

func printUsage() {
	fmt.Println(`paperbase - PDF question answering over a local vector store

Usage:
  paperbase server [flags]            Ingest the corpus (first run) and start the HTTP server
  paperbase ingest [flags]            Run the ingestion pipeline once and print the report
  paperbase query [flags] <question>  Ask a question
  paperbase status [flags]            Show store and last-run status
  paperbase version                   Show version
  paperbase help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/paperbase/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Query Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct mode.
  --top-k int        Number of context chunks (0 = config default)

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct mode.
  --output string    Output format: text or json (default: text)

Examples:
  paperbase server
  paperbase ingest --output json
  paperbase query "What is mesenchymal cell therapy?"
  paperbase status`)
}
