package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tobyv/memesdb/internal/config"
	"github.com/tobyv/memesdb/internal/domain"
	"github.com/tobyv/memesdb/internal/logger"
	"github.com/tobyv/memesdb/internal/picker"
	"github.com/tobyv/memesdb/internal/repository"
	"github.com/tobyv/memesdb/internal/service"
	"gorm.io/gorm"
)

const usage = `memesdb - personal searchable meme archive

Usage:
  memesdb index <dir> [--batch-size N] [--force]   scan a directory for memes
  memesdb search <query>                           semantic search
  memesdb tag [query]                              attach custom tags
  memesdb stats                                    show archive statistics

The store file location is taken from MEMESDB_PATH (default ` + config.DefaultDBPath + `).`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "index":
		runIndex(os.Args[2:])
	case "search":
		runSearch(os.Args[2:])
	case "tag":
		runTag(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}
}

// app bundles the explicitly constructed store handle and repositories that
// every command acquires for its own invocation and releases on exit.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *gorm.DB
	memes   *repository.MemeRepository
	vectors *repository.VectorRepository
}

// newApp loads configuration, sets up logging and opens the archive store.
// Store initialization failure is fatal: no command is meaningful without it.
func newApp(configPath string) *app {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.GetDefault().WithError(err).Fatal("Failed to load config")
	}

	log := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		File:        cfg.Log.File,
		ServiceName: "memesdb",
	})
	logger.SetDefaultLogger(log)

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to open archive store")
	}

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		memes:   repository.NewMemeRepository(db),
		vectors: repository.NewVectorRepository(db, cfg.Embedding.Dimensions),
	}
}

// embedder constructs the embedding client, fatal if it cannot be configured.
func (a *app) embedder() *service.EmbeddingService {
	if a.cfg.Embedding.APIKey == "" {
		a.log.Fatal("Embedding API key is not configured (set JINA_API_KEY)")
	}
	return service.NewEmbeddingService(&service.EmbeddingConfig{
		Provider:   a.cfg.Embedding.Provider,
		Model:      a.cfg.Embedding.Model,
		APIKey:     a.cfg.Embedding.APIKey,
		Dimensions: a.cfg.Embedding.Dimensions,
	})
}

// vision constructs the vision-model client, fatal if it cannot be
// configured. A custom base URL may point at a local model that needs no key.
func (a *app) vision() *service.VisionService {
	if a.cfg.Vision.APIKey == "" && a.cfg.Vision.BaseURL == "https://api.moondream.ai/v1" {
		a.log.Fatal("Vision API key is not configured (set MOONDREAM_API_KEY)")
	}
	return service.NewVisionService(&service.VisionConfig{
		Model:   a.cfg.Vision.Model,
		APIKey:  a.cfg.Vision.APIKey,
		BaseURL: a.cfg.Vision.BaseURL,
	})
}

// parseArgs parses args against fs, accepting flags before and after
// positional arguments. Stdlib parsing stops at the first non-flag token, so
// this re-parses after each positional until everything is consumed.
// Parameters:
//   - fs: flag set defining the command's flags.
//   - args: raw command arguments after the subcommand name.
// Returns:
//   - []string: positional arguments in order, flags stripped out.
func parseArgs(fs *flag.FlagSet, args []string) []string {
	var positionals []string
	for {
		fs.Parse(args)
		args = fs.Args()
		if len(args) == 0 {
			return positionals
		}
		positionals = append(positionals, args[0])
		args = args[1:]
	}
}

// signalContext returns a context canceled on SIGINT/SIGTERM. Interruption
// loses only the in-flight candidate; committed work stays committed.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.GetDefault().Info("Received shutdown signal, canceling...")
		cancel()
	}()
	return ctx, cancel
}

func runIndex(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	batchSize := fs.Int("batch-size", 0, "Batch size hint for model invocation")
	force := fs.Bool("force", false, "Re-process already indexed paths")
	configPath := fs.String("config", "", "Path to config file")
	positionals := parseArgs(fs, args)

	if len(positionals) < 1 {
		fmt.Fprintln(os.Stderr, "usage: memesdb index <dir> [--batch-size N] [--force]")
		os.Exit(2)
	}
	dir := positionals[0]

	a := newApp(*configPath)
	ctx, cancel := signalContext()
	defer cancel()

	vision := a.vision()
	embedder := a.embedder()
	a.log.WithFields(logger.Fields{
		"vision_model":    vision.GetModel(),
		"embedding_model": embedder.GetModel(),
	}).Info("Models configured")

	indexer := service.NewIndexService(
		a.db, a.memes, a.vectors,
		vision, embedder,
		a.log, a.cfg.Index.BatchSize,
	)

	stats, err := indexer.Index(ctx, dir, &service.IndexOptions{
		BatchSize: *batchSize,
		Force:     *force,
	})
	if err != nil {
		a.log.WithError(err).Fatal("Indexing failed")
	}

	fmt.Printf("Indexing complete: %d indexed, %d skipped, %d failed (of %d candidates)\n",
		stats.Indexed, stats.Skipped, stats.Failed, stats.Total)
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	positionals := parseArgs(fs, args)

	if len(positionals) < 1 {
		fmt.Fprintln(os.Stderr, "usage: memesdb search <query>")
		os.Exit(2)
	}
	query := strings.Join(positionals, " ")

	a := newApp(*configPath)
	ctx := context.Background()

	searcher := service.NewSearchService(a.memes, a.vectors, a.embedder(), a.log)
	results, err := searcher.Search(ctx, query)
	if err != nil {
		a.log.WithError(err).Fatal("Search failed")
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}

	choices := make([]string, len(results))
	for i, r := range results {
		choices[i] = formatResult(&r)
	}

	selected, err := picker.NewTermSelector().Select(choices)
	if err != nil {
		a.log.WithError(err).Fatal("Selection failed")
	}
	if selected < 0 {
		return
	}

	path := results[selected].Path
	fmt.Printf("Selected: %s\n", path)
	if err := picker.CopyToClipboard(path); err != nil {
		a.log.WithError(err).Warn("Failed to copy path to clipboard")
	} else {
		fmt.Println("Path copied to clipboard!")
	}
}

func runTag(args []string) {
	fs := flag.NewFlagSet("tag", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	query := strings.Join(parseArgs(fs, args), " ")

	a := newApp(*configPath)
	ctx := context.Background()

	var searcher *service.SearchService
	if query != "" {
		searcher = service.NewSearchService(a.memes, a.vectors, a.embedder(), a.log)
	}
	tagger := service.NewTagService(a.memes, searcher, a.log)

	candidates, err := tagger.Candidates(ctx, query)
	if err != nil {
		a.log.WithError(err).Fatal("Failed to load tag candidates")
	}
	if len(candidates) == 0 {
		fmt.Println("No records to tag.")
		return
	}

	choices := make([]string, len(candidates))
	for i, c := range candidates {
		userTags := c.UserTags
		if userTags == "" {
			userTags = "None"
		}
		choices[i] = fmt.Sprintf("%s\n  %s\n  Tags: %s", c.Path, c.ShortCaption, userTags)
	}

	sel := picker.NewTermSelector()
	selected, err := sel.Select(choices)
	if err != nil {
		a.log.WithError(err).Fatal("Selection failed")
	}
	if selected < 0 {
		return
	}

	tags, err := sel.Prompt("Enter comma-separated tags")
	if err != nil {
		a.log.WithError(err).Fatal("Failed to read tags")
	}

	if err := tagger.SetUserTags(ctx, candidates[selected].ID, tags); err != nil {
		a.log.WithError(err).Fatal("Failed to save tags")
	}
	fmt.Printf("Updated tags for %s\n", candidates[selected].Path)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	a := newApp(*configPath)
	ctx := context.Background()

	stats, err := a.memes.Stats(ctx)
	if err != nil {
		a.log.WithError(err).Fatal("Failed to compute stats")
	}
	stats.DBPath = a.cfg.Database.Path
	if info, err := os.Stat(a.cfg.Database.Path); err == nil {
		stats.DBSizeBytes = info.Size()
	}

	fmt.Println("memesdb stats")
	fmt.Printf("  total entries:      %d\n", stats.TotalRecords)
	fmt.Printf("  unique images:      %d\n", stats.UniqueImages)
	fmt.Printf("  database size:      %.1f MB\n", float64(stats.DBSizeBytes)/1024/1024)
	fmt.Printf("  text data size:     %.1f KB\n", float64(stats.TextBytes)/1024)
	fmt.Printf("  database location:  %s\n", stats.DBPath)
}

// formatResult renders one search result for the selection list.
func formatResult(r *domain.ScoredRecord) string {
	userTags := r.UserTags
	if userTags == "" {
		userTags = "None"
	}
	return fmt.Sprintf("%s\n  %s\n  %s\n  Auto: %s\n  User: %s\n  Distance: %.4f",
		r.Path, r.ShortCaption, r.LongCaption, r.AutoTags, userTags, r.Distance)
}
