package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"golang.org/x/term"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options are the command-line settings that are not part of Config.
type options struct {
	configPath string
	tui        bool
	tree       bool
	verbose    bool
	setup      bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("media-ingest", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.Usage = func() {
		fmt.Fprintln(stderr, "usage: media-ingest [flags] <root>")
		fset.PrintDefaults()
	}

	var (
		opts        options
		library     string
		copyMode    bool
		dryRun      bool
		pruneEmpty  bool
		useExiftool bool
		strict      bool
	)
	fset.StringVar(&opts.configPath, "config", "", "YAML config file (default ~/.media-ingest.yaml)")
	fset.StringVar(&library, "library", "", "Base directory of the library")
	fset.BoolVar(&copyMode, "copy", false, "Copy files, then delete the source, instead of renaming")
	fset.BoolVar(&dryRun, "dry-run", false, "Plan only, change nothing")
	fset.BoolVar(&opts.tui, "tui", false, "Show a progress view when stdout is a terminal")
	fset.BoolVar(&opts.tree, "tree", false, "Print the placements as a tree when done")
	fset.BoolVar(&pruneEmpty, "prune-empty", false, "Remove source directories left empty")
	fset.BoolVar(&useExiftool, "exiftool", false, "Also read capture dates with exiftool")
	fset.BoolVar(&strict, "strict", false, "Exit 1 when any file was left in place")
	fset.BoolVar(&opts.verbose, "v", false, "Debug logging")
	fset.BoolVar(&opts.setup, "setup", false, "Run the interactive setup and save the config")

	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	configPath := opts.configPath
	if configPath == "" {
		configPath = getConfigPath()
	}

	if opts.setup {
		if _, err := runSetupWizard(stdin, stdout, configPath); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	if fset.NArg() != 1 {
		fset.Usage()
		return exitUsage
	}
	root := fset.Arg(0)

	// defaults <- file <- flags that were given
	cfg := DefaultConfig()
	cf, err := loadConfigFile(configPath, opts.configPath != "")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	cfg.Apply(cf)
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "library":
			cfg.LibraryBase = library
		case "copy":
			if copyMode {
				cfg.Mode = ModeCopy
			}
		case "exiftool":
			cfg.UseExiftool = useExiftool
		}
	})
	cfg.DryRun = dryRun
	cfg.PruneEmpty = pruneEmpty
	cfg.Strict = strict

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	useTUI := opts.tui && isTerminal(stdout)
	logger := newLogger(stdout, opts.verbose, useTUI)

	fs := afero.NewOsFs()
	reader, err := newMetadataReader(fs, cfg.UseExiftool)
	if err != nil {
		logger.Warn("metadata", "err", err)
	}
	defer reader.Close()

	session, err := NewSession(cfg, fs, reader, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer session.Close()

	var sum Summary
	if useTUI {
		sum, err = runTUI(session, root)
	} else {
		sum, err = session.Ingest(root)
	}

	printSummary(stdout, sum)
	if opts.tree {
		if placements, perr := session.Placements(); perr == nil {
			fmt.Fprintln(stdout)
			fmt.Fprint(stdout, renderPlacements(cfg.LibraryBase, placements))
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(stderr, "Interrupted.")
		return exitInterrupted
	case err != nil:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	case cfg.Strict && sum.Errors > 0:
		return exitFailure
	}
	return exitOK
}

func newLogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	if quiet {
		// The progress view owns the terminal.
		w = io.Discard
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printSummary writes the end-of-run report.
func printSummary(w io.Writer, sum Summary) {
	fmt.Fprintln(w)
	title := "Ingest Summary"
	if sum.DryRun {
		title += " (DRY RUN, nothing was changed)"
	}
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, "==============")
	fmt.Fprintf(w, "  Run:        %s (%s)\n", sum.RunID, sum.RunDate)

	buckets := make([]string, 0, len(sum.Placed))
	for b := range sum.Placed {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)
	for _, b := range buckets {
		fmt.Fprintf(w, "  %-11s %s\n", b+":", humanize.Comma(int64(sum.Placed[b])))
	}

	fmt.Fprintf(w, "  Placed:     %s files, %s\n", humanize.Comma(int64(sum.Total())), humanize.Bytes(uint64(sum.Bytes)))
	fmt.Fprintf(w, "  Duplicates: %d\n", sum.Duplicates)
	if sum.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped:    %d\n", sum.Skipped)
	}
	fmt.Fprintf(w, "  Errors:     %d\n", sum.Errors)
	fmt.Fprintf(w, "  Took:       %s\n", sum.Duration.Round(time.Millisecond))
}
