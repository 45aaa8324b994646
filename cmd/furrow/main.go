// Package main is the furrow CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/furrow/internal/cli"
	"github.com/hyperjump/furrow/internal/config"
	"github.com/hyperjump/furrow/internal/indexer"
	"github.com/hyperjump/furrow/internal/keyword"
	"github.com/hyperjump/furrow/internal/lexicon"
	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/ranking"
	"github.com/hyperjump/furrow/internal/search"
	"github.com/hyperjump/furrow/internal/server"
	"github.com/hyperjump/furrow/internal/storage"
	"github.com/hyperjump/furrow/internal/watcher"
	"github.com/hyperjump/furrow/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/furrow/config.yaml"

// loadConfig loads config from path. With the default path, a config.yaml in the
// current directory wins; when neither exists, built-in defaults plus environment
// overrides are used and the returned path is empty.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			local := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(local); err == nil {
				cfg, err := config.Load(local)
				if err != nil {
					return nil, "", err
				}
				return cfg, local, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg := config.Default()
			if err := config.ApplyEnv(cfg, ".env"); err != nil {
				return nil, "", err
			}
			return cfg, "", nil
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
	case "search":
		runSearch()
	case "analyze":
		runAnalyze()
	case "sync":
		runSync()
	case "import":
		runImport()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("furrow version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store    *storage.SQLiteStore
	Engine   *keyword.BleveEngine
	Service  *search.Service
	Indexer  *indexer.Indexer
	Importer *indexer.Importer
}

// Close releases the engine and the store.
func (c *Components) Close() {
	if c.Engine != nil {
		_ = c.Engine.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	lex, err := lexicon.Load(cfg.Search.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load lexicon: %w", err)
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	engine, err := keyword.NewBleveEngine(cfg.Storage.BleveIndexPath, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize search engine: %w", err)
	}
	idx := indexer.NewIndexer(store, engine, cfg, indexer.WithLogger(logger))
	return &Components{
		Store:    store,
		Engine:   engine,
		Service:  search.NewService(lex, engine, store, cfg, search.WithLogger(logger)),
		Indexer:  idx,
		Importer: indexer.NewImporter(idx, cfg.Watch.Extensions),
	}, nil
}

// setup loads config, builds the logger and initializes components. It exits on failure.
func setup(configPath string, debug bool) (*config.Config, string, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, resolved, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("index", cfg.Engine.IndexName),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	created, err := components.Indexer.EnsureIndex(ctx)
	if err != nil {
		logger.Warn("search index unavailable, serving from fallback", zap.Error(err))
	} else if created {
		if _, err := components.Indexer.Sync(ctx, false); err != nil {
			logger.Warn("initial sync failed", zap.Error(err))
		}
	}

	watch := watcher.New(cfg.Watch, components.Importer, watcher.WithLogger(logger))
	if err := watch.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watch.Stop()
	go watch.ImportExisting()

	srv := server.NewServer(components.Service, components.Indexer, components.Store, cfg,
		server.WithLogger(logger),
		server.WithWatch(watch, resolvedConfigPath),
		server.WithDocCounter(components.Engine),
	)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// buildSearchQuery joins positional args so multi-word queries work with or without quotes.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags that follow the query to the front so flag.Parse sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: furrow search [flags] <query>\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  furrow search grow tomatoes
  furrow search --type recipe "basil pesto"
  furrow search --output json --limit 5 prune roses
`)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = search local storage directly)")
	contentType := fs.String("type", models.TypeAll, "content type: article, recipe or all")
	limit := fs.Int("limit", 0, "number of results (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildSearchQuery(fs.Args())
	if query == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !models.ValidSearchType(strings.ToLower(*contentType)) {
		fmt.Fprintf(os.Stderr, "unknown type %q: use article, recipe or all\n", *contentType)
		os.Exit(1)
	}
	req := models.SearchRequest{Query: query, Type: *contentType, Limit: *limit}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, req)
	} else {
		_, _, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		response, err = components.Service.Search(context.Background(), req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, req models.SearchRequest) (*models.SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for lexicon_path)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildSearchQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: furrow analyze [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lex, err := lexicon.Load(cfg.Search.LexiconPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load lexicon: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnalysis(os.Stdout, ranking.NewQueryAnalyzer(lex).Analyze(query), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runSync() {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	clearIndex := fs.Bool("clear", false, "remove every indexed document before syncing")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	stats, err := components.Indexer.Sync(context.Background(), *clearIndex || cfg.Sync.ClearBeforeSync)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
		os.Exit(1)
	}
	for _, t := range models.ContentTypes {
		fmt.Printf("%-8s %d\n", t+":", stats.Indexed[t])
	}
	fmt.Printf("Indexed %d entries into %s in %s\n", stats.Total, stats.Index, stats.Took.Round(time.Millisecond))
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: furrow import [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	_, _, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	var n int
	if info.IsDir() {
		n, err = components.Importer.ImportDirectory(ctx, path)
	} else {
		n, err = components.Importer.ImportFile(ctx, path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d entries from %s\n", n, path)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Decode failed: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(status)
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: furrow watch <add|remove|list> [path]")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	noImport := fs.Bool("no-import", false, "do not import files already in the directory")
	_ = fs.Parse(os.Args[3:])

	var (
		req  *http.Request
		want int
	)
	switch sub {
	case "add", "remove":
		if fs.NArg() < 1 {
			fmt.Printf("Usage: furrow watch %s <path>\n", sub)
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if sub == "add" {
			importExisting := !*noImport
			body, _ := json.Marshal(map[string]interface{}{"path": path, "import": importExisting})
			req, _ = http.NewRequest(http.MethodPost, *serverURL+"/api/v1/watch/directories", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			want = http.StatusCreated
		} else {
			req, _ = http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
			want = http.StatusOK
		}
	case "list":
		req, _ = http.NewRequest(http.MethodGet, *serverURL+"/api/v1/watch/directories", nil)
		want = http.StatusOK
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		fmt.Printf("%s failed (%d): %s\n", sub, resp.StatusCode, strings.TrimSpace(string(b)))
		os.Exit(1)
	}
	var out struct {
		Path        string   `json:"path"`
		Directories []string `json:"directories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Printf("Parse failed: %v\n", err)
		os.Exit(1)
	}
	if sub == "list" {
		for _, d := range out.Directories {
			fmt.Println(d)
		}
		return
	}
	fmt.Printf("%s: %s\n", sub, out.Path)
}

func printUsage() {
	fmt.Println(`furrow - garden content search

Usage:
  furrow server [flags]              Start the HTTP server
  furrow search [flags] <query>      Search articles and recipes
  furrow analyze [flags] <query>     Show how a query is understood
  furrow sync [flags]                Rebuild the search index from the content store
  furrow import [flags] <path>       Import entries from a YAML/JSON file or directory
  furrow status [flags]              Show server status
  furrow watch <add|remove|list>     Manage watched import directories
  furrow version                     Show version
  furrow help                        Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/furrow/config.yaml)
  --server string    Server URL (default: http://localhost:8080)

Examples:
  furrow server --debug
  furrow search --type article when to prune roses
  furrow search --server "" grow tomatoes     # search local storage directly
  furrow sync --clear
  furrow import ./content
  furrow watch add ./content`)
}
