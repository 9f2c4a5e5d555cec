// Package main provides the krrs CLI.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	krrs "github.com/sapienskid/KRRS"
	"github.com/sapienskid/KRRS/llm"
	"github.com/sapienskid/KRRS/retrieval"
	"github.com/sapienskid/KRRS/search"
	"github.com/sapienskid/KRRS/serve"
)

var (
	version = "dev"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	loadEnv()

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "ask":
		askCmd(args)
	case "index":
		indexCmd(args)
	case "serve":
		serveCmd(args)
	case "init":
		initCmd()
	case "version":
		fmt.Printf("krrs %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`krrs - Knowledge Retrieval & Response System

Usage:
  krrs <command> [options]

Commands:
  ask       Ask a question through the specialist pipeline
  index     Index URLs or text files into the knowledge base
  serve     Start the HTTP API server
  init      Interactive setup (API keys, tenant id)
  version   Print version information
  help      Show this help message

Examples:
  krrs ask "What caused World War I?"
  krrs index https://en.wikipedia.org/wiki/World_War_I
  krrs serve --addr :3001

Run 'krrs <command> --help' for more information on a command.`)
}

// loadEnv applies ~/.krrs/env to the process environment without overriding
// variables that are already set.
func loadEnv() {
	path := filepath.Join(krrs.Home(), "env")
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if os.Getenv(key) == "" {
			os.Setenv(key, strings.TrimSpace(val))
		}
	}
}

func requireAPIKey() {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: ANTHROPIC_API_KEY is not set. Run 'krrs init' first.")
		os.Exit(1)
	}
}

// loadConfig reads the config file (default ~/.krrs/config.yaml) over the
// environment.
func loadConfig(path string) krrs.Config {
	if path == "" {
		path = filepath.Join(krrs.Home(), "config.yaml")
	}
	cfg, err := krrs.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// buildOrchestrator wires the collaborators: Anthropic oracles, the local
// bleve index, and the optional web-search provider.
func buildOrchestrator(cfg krrs.Config) (*krrs.Orchestrator, retrieval.Retriever) {
	if err := krrs.EnsureHome(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", krrs.Home(), err)
		os.Exit(1)
	}

	retr, err := retrieval.OpenBleve(cfg.IndexPath, cfg.UserID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}

	opts := []krrs.Option{
		krrs.WithLLM(llm.NewAnthropic(llm.WithModel(cfg.ResponseModel))),
		krrs.WithRetriever(retr),
	}
	if cfg.QueryModel != "" {
		opts = append(opts, krrs.WithQueryLLM(llm.NewAnthropic(llm.WithModel(cfg.QueryModel))))
	}
	if cfg.EnableWebSearch {
		provider, err := search.New(cfg.SearchProvider)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, krrs.WithSearch(provider))
	}

	orc, err := krrs.New(cfg, opts...)
	if err != nil {
		retr.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return orc, retr
}

// askCmd runs one question through the pipeline and prints the answer.
func askCmd(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path (default ~/.krrs/config.yaml)")
	timeout := fs.Duration("timeout", 5*time.Minute, "Maximum invocation time")
	verbose := fs.Bool("verbose", false, "Print the invocation trace")

	fs.Usage = func() {
		fmt.Println(`Usage: krrs ask [options] <question>

Ask a question. The question is classified, routed to a subject specialist,
answered with knowledge-base retrieval (and web search when enabled), and
quality-checked before delivery.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: no question given")
		fs.Usage()
		os.Exit(1)
	}
	requireAPIKey()

	question := strings.Join(fs.Args(), " ")
	cfg := loadConfig(*configPath)

	orc, retr := buildOrchestrator(cfg)
	defer retr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *verbose {
		orc.OnEvent(func(e krrs.Event) {
			if e.Type == krrs.EventPhase {
				fmt.Fprintf(os.Stderr, "-> %s\n", e.Phase)
			} else if e.Detail != "" {
				fmt.Fprintf(os.Stderr, "   %s: %s\n", e.Type, e.Detail)
			}
		})
	}

	result, err := orc.Ask(ctx, question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(result.Answer)

	if *verbose {
		fmt.Fprintf(os.Stderr, "\nsubject=%s critique_passes=%d tool_rounds=%d documents=%d cost=$%.4f duration=%s\n",
			result.Subject, result.CritiquePasses, result.ToolRounds,
			result.Documents, result.CostUSD, result.Duration.Round(time.Millisecond))
	}
}

// indexCmd feeds URLs or local text files into the knowledge base.
func indexCmd(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file path (default ~/.krrs/config.yaml)")
	file := fs.String("file", "", "Index a local text file instead of URLs")
	title := fs.String("title", "", "Title for the indexed file")

	fs.Usage = func() {
		fmt.Println(`Usage: krrs index [options] <url> [url ...]
       krrs index --file notes.txt

Index content into the knowledge base. URLs are fetched and their text
extracted (HTML and PDF supported); local files are indexed as-is.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := krrs.EnsureHome(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", krrs.Home(), err)
		os.Exit(1)
	}

	retr, err := retrieval.OpenBleve(cfg.IndexPath, cfg.UserID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer retr.Close()

	indexer := krrs.NewIndexer(cfg, retr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *file != "" {
		indexFile(ctx, indexer, *file, *title)
		return
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: no urls given")
		fs.Usage()
		os.Exit(1)
	}

	reports, err := indexer.IndexURLs(ctx, fs.Args())
	for _, rep := range reports {
		switch {
		case rep.OK:
			fmt.Printf("  indexed  %s (%d chars)\n", rep.URL, rep.Chars)
		case rep.Skipped != "":
			fmt.Printf("  skipped  %s: %s\n", rep.URL, rep.Skipped)
		default:
			fmt.Printf("  failed   %s: %s\n", rep.URL, rep.Error)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func indexFile(ctx context.Context, indexer *krrs.Indexer, path, title string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}
	if title == "" {
		title = filepath.Base(path)
	}

	doc := krrs.NewDocument(string(data), map[string]any{
		krrs.MetaSource: path,
		krrs.MetaTitle:  title,
		krrs.MetaType:   "file",
	})
	n, err := indexer.IndexDocuments(ctx, []krrs.Document{doc})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  indexed  %s (%d document)\n", path, n)
}

// serveCmd starts the HTTP API server.
func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":3001", "HTTP listen address")
	dbPath := fs.String("db", krrs.DefaultDBPath(), "SQLite database path")
	configPath := fs.String("config", "", "Config file path (default ~/.krrs/config.yaml)")

	fs.Usage = func() {
		fmt.Println(`Usage: krrs serve [options]

Start the HTTP API: POST /api/ask, POST /api/index, GET /api/invocations,
GET /api/events (SSE), GET /api/stats.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	requireAPIKey()

	cfg := loadConfig(*configPath)
	orc, retr := buildOrchestrator(cfg)
	defer retr.Close()

	indexer := krrs.NewIndexer(cfg, retr)
	srv := serve.New(orc, indexer, serve.Config{Addr: *addr, DBPath: *dbPath})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
