package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/plagscan/internal/compare"
	"github.com/standardbeagle/plagscan/internal/config"
	"github.com/standardbeagle/plagscan/internal/debug"
	"github.com/standardbeagle/plagscan/internal/ingest"
	"github.com/standardbeagle/plagscan/internal/orchestrate"
	"github.com/standardbeagle/plagscan/internal/parser"
	"github.com/standardbeagle/plagscan/pkg/pathutil"
)

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Run a one-shot (or --watch) structural comparison over a set of files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "archive",
				Usage: "Path to a zip archive to analyze instead of --root",
			},
			&cli.StringSliceFlag{
				Name:  "remote",
				Usage: "GitHub repository URL to fetch and include (repeat for each submission)",
			},
			&cli.StringFlag{
				Name:  "sheet",
				Usage: "Published Google Sheet URL listing a roster of GitHub repositories",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Re-run the analysis whenever --root changes on disk (local directory mode only)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the JSON response here instead of stdout",
			},
		},
		Action: analyzeAction,
	}
}

func analyzeAction(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	registry := parser.NewRegistry()

	files, err := gatherFiles(c, cfg)
	if err != nil {
		return err
	}

	opts := buildOptions(cfg)
	if err := runOnce(c.Context, registry, files, opts, c.String("output")); err != nil {
		return err
	}

	if !c.Bool("watch") {
		return nil
	}
	if c.String("archive") != "" || c.String("sheet") != "" || len(c.StringSlice("remote")) > 0 {
		return fmt.Errorf("--watch only supports local directory mode (no --archive/--remote/--sheet)")
	}

	watcher, err := ingest.NewWatcher(cfg)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	watcher.OnChange(func(changes map[string]ingest.ChangeEventType) {
		debug.LogIngest("watch: %d path(s) changed, re-analyzing\n", len(changes))
		files, err := gatherFiles(c, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "re-analyze failed: %v\n", err)
			return
		}
		if err := runOnce(c.Context, registry, files, opts, c.String("output")); err != nil {
			fmt.Fprintf(os.Stderr, "re-analyze failed: %v\n", err)
		}
	})
	if err := watcher.Start(cfg.Project.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.Project.Root, err)
	}
	defer watcher.Stop()

	fmt.Printf("Watching %s for changes, Ctrl-C to stop\n", cfg.Project.Root)
	select {}
}

// gatherFiles routes to the right ingest collaborator based on which flags
// were set; exactly one of --archive/--remote/--sheet/(bare --root) applies.
func gatherFiles(c *cli.Context, cfg *config.Config) ([]orchestrate.SourceFile, error) {
	switch {
	case c.String("archive") != "":
		data, err := os.ReadFile(c.String("archive"))
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		result, err := ingest.FromZip(data, cfg)
		if err != nil {
			return nil, err
		}
		return result.Files, nil

	case c.String("sheet") != "":
		csvText, err := ingest.DownloadSheetCSV(c.Context, c.String("sheet"))
		if err != nil {
			return nil, err
		}
		repos, warnings, err := ingest.ParseRosterCSV(csvText)
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "roster warning:", w)
		}
		fetcher := ingest.NewRepoFetcher()
		var files []orchestrate.SourceFile
		for _, repo := range repos {
			result, err := fetcher.FetchRepo(c.Context, repo.SourceURL)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", repo.URN, err)
				continue
			}
			for _, f := range result.Files {
				f.Path = repo.URN + "/" + f.Path
				files = append(files, f)
			}
		}
		return files, nil

	case len(c.StringSlice("remote")) > 0:
		fetcher := ingest.NewRepoFetcher()
		var files []orchestrate.SourceFile
		for _, url := range c.StringSlice("remote") {
			result, err := fetcher.FetchRepo(c.Context, url)
			if err != nil {
				return nil, err
			}
			files = append(files, result.Files...)
		}
		return files, nil

	default:
		if cwd, err := os.Getwd(); err == nil {
			fmt.Fprintf(os.Stderr, "analyzing %s\n", pathutil.ToRelative(cfg.Project.Root, cwd))
		}
		result, err := ingest.FromDirectory(cfg.Project.Root, cfg)
		if err != nil {
			return nil, err
		}
		for _, w := range result.Errors {
			fmt.Fprintln(os.Stderr, "ingest warning:", w)
		}
		return result.Files, nil
	}
}

func buildOptions(cfg *config.Config) orchestrate.Options {
	opts := orchestrate.DefaultOptions()
	opts.Weights = compare.Weights{
		AST:       cfg.Weights.AST,
		CFG:       cfg.Weights.CFG,
		DFG:       cfg.Weights.DFG,
		Threshold: cfg.Weights.PlagiarismThresh,
	}
	opts.GraphThreshold = cfg.Weights.GraphThresh
	opts.ClusterThreshold = cfg.Weights.ClusterThresh
	if cfg.Server.ParallelWorkers > 0 {
		opts.Concurrency = cfg.Server.ParallelWorkers
	}
	opts.AnalysisType = "cli"
	return opts
}

func runOnce(ctx context.Context, registry *parser.Registry, files []orchestrate.SourceFile, opts orchestrate.Options, outputPath string) error {
	resp, _, err := orchestrate.Run(ctx, registry, files, opts)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}

	if outputPath == "" {
		fmt.Println(string(encoded))
		return nil
	}
	return os.WriteFile(outputPath, encoded, 0o644)
}
