// Package main provides the CLI entrypoint for schemafix.
//
// schemafix rewrites tool input schema blocks into one canonical shape:
//   - Finds the schema builder block of every selected file
//   - Resolves the required fields from explicit lists, markers or error codes
//   - Rewrites the block and verifies the result before writing it back
//
// Settings are layered: defaults, then schemafix.yaml, then SCHEMAFIX_*
// variables (also read from .env), then command-line flags.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"schemafix/internal/batch"
	"schemafix/internal/config"
)

const exitFatal = 2

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	code := 0

	cmd := newRootCmd(stdout, stderr, &code)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "schemafix:", err)
		return exitFatal
	}

	return code
}

type flags struct {
	configPath    string
	envFile       string
	root          string
	include       []string
	exclude       []string
	files         []string
	dryRun        bool
	workers       int
	encoding      string
	dialect       string
	strategy      string
	report        string
	unique        bool
	ensureImports bool
	closed        bool
	verbose       bool
}

func newRootCmd(stdout, stderr io.Writer, code *int) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "schemafix",
		Short: "Rewrite tool input schemas into canonical form",
		Long: "schemafix locates schema builder blocks, resolves their required fields and\n" +
			"rewrites them into a single canonical shape. Files that are already canonical\n" +
			"are left untouched, so running it twice is safe.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if f.verbose {
				level = slog.LevelDebug
			}

			log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

			opts, err := cfg.RunnerOptions(log)
			if err != nil {
				return err
			}

			runner, err := batch.New(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rep, err := runner.Run(ctx)
			if rep == nil {
				return err
			}

			if err != nil {
				log.Warn("batch interrupted", slog.Any("error", err))
			}

			if err := rep.Write(stdout, cfg.Report); err != nil {
				return err
			}

			*code = rep.ExitCode()

			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "schemafix.yaml", "YAML config file (ignored when the default is missing)")
	fl.StringVar(&f.envFile, "env-file", ".env", "dotenv file with SCHEMAFIX_* variables")
	fl.StringVar(&f.root, "root", ".", "root directory")
	fl.StringSliceVar(&f.include, "include", []string{config.DefaultInclude}, "include glob relative to root (repeatable)")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "exclude glob relative to root (repeatable)")
	fl.StringSliceVar(&f.files, "file", nil, "explicit file to process instead of globbing (repeatable)")
	fl.BoolVar(&f.dryRun, "dry-run", false, "run the whole pipeline without writing files")
	fl.IntVar(&f.workers, "workers", 0, "concurrent documents (default: number of CPUs)")
	fl.StringVar(&f.encoding, "encoding", "utf-8", "text encoding of the documents")
	fl.StringVar(&f.dialect, "dialect", "kotlin", "host notation: kotlin or generic")
	fl.StringVar(&f.strategy, "strategy", "standard", "required-field sources: standard, no-heuristic or explicit-only")
	fl.StringVar(&f.report, "report", "text", "report format: text, json or yaml")
	fl.BoolVar(&f.unique, "unique", true, "fail files holding several unrelated schema blocks; when false every block is fixed")
	fl.BoolVar(&f.ensureImports, "ensure-imports", true, "add imports the canonical form needs")
	fl.BoolVar(&f.closed, "closed", false, "close rewritten schemas against additional properties")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "log every document")

	return cmd
}

// loadConfig layers the config file, the environment and the flags that
// were set explicitly.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	def := config.Default()
	cfg := &def

	if f.configPath != "" {
		loaded, err := config.LoadFile(f.configPath)

		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		default:
			return nil, err
		}
	}

	env, err := config.ReadEnv(f.envFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(env); err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed

	if changed("root") {
		cfg.Root = f.root
	}

	if changed("include") {
		cfg.Include = f.include
	}

	if changed("exclude") {
		cfg.Exclude = f.exclude
	}

	if changed("file") {
		cfg.Files = f.files
	}

	if changed("dry-run") {
		cfg.DryRun = f.dryRun
	}

	if changed("workers") {
		cfg.Workers = f.workers
	}

	if changed("encoding") {
		cfg.Encoding = f.encoding
	}

	if changed("dialect") {
		cfg.Dialect = f.dialect
	}

	if changed("strategy") {
		cfg.Strategy = f.strategy
	}

	if changed("report") {
		cfg.Report = f.report
	}

	if changed("unique") {
		cfg.Unique = f.unique
	}

	if changed("ensure-imports") {
		cfg.EnsureImports = f.ensureImports
	}

	if changed("closed") {
		cfg.Closed = f.closed
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
