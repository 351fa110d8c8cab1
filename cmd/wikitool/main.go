// Package main provides the entry point for wikitool.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/remiliacorporation/wikitool/internal/codec"
	"github.com/remiliacorporation/wikitool/internal/engine"
	"github.com/remiliacorporation/wikitool/internal/fs"
	"github.com/remiliacorporation/wikitool/internal/index"
	"github.com/remiliacorporation/wikitool/internal/mediawiki"
	"github.com/remiliacorporation/wikitool/internal/store"
	"github.com/remiliacorporation/wikitool/internal/wikiconfig"
)

// Version is set at build time.
var Version = "dev"

// initLogger configures the default slog logger based on config.
func initLogger(cfg *wikiconfig.Config) {
	var level slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
}

// fatal logs an error message and exits the process.
func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func parseNamespaces(csv string, table *codec.Table) []int {
	if strings.TrimSpace(csv) == "" {
		var out []int
		for _, ns := range table.AllContentNamespaces() {
			out = append(out, ns.ID)
		}
		return out
	}
	var out []int
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func main() {
	op := flag.String("op", "", "Operation: pull, push, status, rebuild-index, init")
	configPath := flag.String("config", "", "Path to a wikiconfig JSON file")
	namespacesFlag := flag.String("namespaces", "", "Comma-separated namespace IDs (default: all content namespaces)")
	category := flag.String("category", "", "Category passed to the pull's page listing, which does not filter by it")
	full := flag.Bool("full", false, "Pull ignores the incremental watermark and re-fetches every page")
	overwriteLocal := flag.Bool("overwrite-local", false, "Pull overwrites locally-modified files")
	includeTemplates := flag.Bool("include-templates", false, "Include the template namespace")
	summary := flag.String("summary", "", "Edit summary for push")
	dryRun := flag.Bool("dry-run", false, "Push reports what would change without writing")
	force := flag.Bool("force", false, "Push ignores detected conflicts")
	deleteFlag := flag.Bool("delete", false, "Push deletes pages removed locally")
	flag.Parse()

	cfg, err := wikiconfig.Load(*configPath)
	if err != nil {
		fatal("failed to load configuration", "error", err)
	}
	initLogger(cfg)

	if *op != "pull" && *op != "push" {
		// rebuild-index, status, and init never touch the remote API.
	} else if err := cfg.Validate(); err != nil {
		fatal("configuration error", "error", err)
	}

	slog.Info("starting wikitool", "version", Version, "op", *op)

	table, err := codec.LoadNamespaceConfig(cfg.NamespaceConfigPath)
	if err != nil {
		fatal("failed to load namespace config", "error", err)
	}
	interwiki, err := codec.LoadInterwikiPrefixes(cfg.NamespaceConfigPath)
	if err != nil {
		fatal("failed to load interwiki prefixes", "error", err)
	}
	paths := codec.Paths{ContentDir: cfg.ContentDir, TemplatesDir: cfg.TemplatesDir}

	s, err := store.Open("sqlite:///" + cfg.DatabasePath)
	if err != nil {
		fatal("failed to open database", "error", err)
	}
	defer s.Close()
	if err := s.Migrate(context.Background()); err != nil {
		fatal("failed to run migrations", "error", err)
	}

	f := fs.New(".", table, paths)

	var client *mediawiki.Client
	if cfg.APIURL != "" {
		client = mediawiki.New(mediawiki.Config{
			APIURL:                      cfg.APIURL,
			Username:                    cfg.Username,
			Password:                    cfg.Password,
			UserAgent:                   cfg.UserAgent,
			RateLimitPerSecond:          cfg.RateLimitPerSecond,
			RateLimitBurst:              cfg.RateLimitBurst,
			WikimediaRateLimitPerSecond: cfg.WikimediaRateLimitPerSecond,
			MaxRetries:                  cfg.MaxRetries,
			RetryBaseDelay:              time.Duration(cfg.RetryBaseDelayMS) * time.Millisecond,
		}, slog.Default())
	}

	e := engine.New(s, f, client, table, paths, interwiki)
	ctx := context.Background()
	namespaces := parseNamespaces(*namespacesFlag, table)

	switch *op {
	case "pull":
		result, err := e.Pull(ctx, engine.PullOptions{
			Namespaces:       namespaces,
			Category:         *category,
			Full:             *full,
			OverwriteLocal:   *overwriteLocal,
			IncludeTemplates: *includeTemplates,
			OnProgress: func(processed, total int) {
				slog.Debug("pull progress", "processed", processed, "total", total)
			},
		})
		if err != nil {
			fatal("pull failed", "error", err)
		}
		fmt.Printf("pull complete: %s created, %s updated, %s skipped, %d errors\n",
			humanize.Comma(int64(result.Created)), humanize.Comma(int64(result.Updated)),
			humanize.Comma(int64(result.Skipped)), len(result.Errors))
		for _, pageErr := range result.Errors {
			slog.Warn("pull error", "title", pageErr.Title, "message", pageErr.Message)
		}

	case "push":
		if strings.TrimSpace(*summary) == "" {
			fatal("push requires -summary")
		}
		result, err := e.Push(ctx, engine.PushOptions{
			Summary:          *summary,
			DryRun:           *dryRun,
			Force:            *force,
			Delete:           *deleteFlag,
			IncludeTemplates: *includeTemplates,
			Namespaces:       namespaces,
			OnProgress: func(processed, total int) {
				slog.Debug("push progress", "processed", processed, "total", total)
			},
		})
		if err != nil {
			fatal("push failed", "error", err)
		}
		fmt.Printf("push complete: %s pushed, %d conflicts, %d errors, success=%v\n",
			humanize.Comma(int64(result.Pushed)), len(result.Conflicts), len(result.Errors), result.Success)
		for _, title := range result.Conflicts {
			slog.Warn("push conflict", "title", title)
		}

	case "init":
		result, err := e.InitFromFiles(ctx, engine.InitFromFilesOptions{IncludeTemplates: *includeTemplates})
		if err != nil {
			fatal("init failed", "error", err)
		}
		fmt.Printf("init complete: %s created, %s already synced, %d errors\n",
			humanize.Comma(int64(result.Created)), humanize.Comma(int64(result.Synced)), len(result.Errors))

	case "status":
		changes, err := e.GetChanges(ctx, engine.ChangesOptions{Namespaces: namespaces, IncludeTemplates: *includeTemplates})
		if err != nil {
			fatal("status failed", "error", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(changes); err != nil {
			fatal("failed to encode status", "error", err)
		}

	case "rebuild-index":
		result, err := index.RebuildIndex(ctx, e.IndexDeps, index.RebuildOptions{
			OnProgress: func(processed, total int) {
				slog.Debug("rebuild progress", "processed", processed, "total", total)
			},
		})
		if err != nil {
			fatal("rebuild-index failed", "error", err)
		}
		fmt.Printf("rebuild complete: %s processed, %s succeeded, %d errors\n",
			humanize.Comma(int64(result.Processed)), humanize.Comma(int64(result.Succeeded)), len(result.Errors))

	default:
		fatal("unknown -op, expected one of: pull, push, status, rebuild-index, init")
	}
}
