// Package cli implements the watercolumn command line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"watercolumn/internal/blob"
	"watercolumn/internal/config"
	"watercolumn/internal/core"
)

var (
	cfgFile   string
	verbose   bool
	traceRuns bool

	flagSourceDriver string
	flagBlobDriver   string
	flagFSRoot       string

	// Loaded configuration.
	cfg *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "watercolumn",
	Short: "Pull water quality measurements and export analysis-ready CSV artifact sets",
	Long: `watercolumn runs the water column measurement pipelines: it pulls
long-form results from a warehouse, nulls fatally qualified values, pivots to
one row per sampling event with paired value/qualifier columns, annotates
stations with nutrient and dissolved-oxygen criteria, and stores the frames
as deterministically named CSV artifact sets.`,
}

// Execute is the entry point called by main.main().
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default ./"+config.DefaultFile+")")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	f.BoolVar(&traceRuns, "trace", false, "write pipeline trace spans to stderr as JSON lines")
	f.StringVar(&flagSourceDriver, "source-driver", "", "measurement source driver: memory|sqlite|postgres (overrides config)")
	f.StringVar(&flagBlobDriver, "blob-driver", "", "artifact store driver: fs|s3|memory (overrides config)")
	f.StringVar(&flagFSRoot, "fs-root", "", "artifact directory for the fs driver (overrides config)")
}

func loadConfig() {
	c, err := config.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands that need no configuration still run.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		c = &config.Settings{}
	}
	cfg = c

	// CLI overrides beat both the environment and the config file.
	f := rootCmd.PersistentFlags()
	if f.Changed("source-driver") {
		cfg.SourceDriver = flagSourceDriver
	}
	if f.Changed("blob-driver") {
		cfg.BlobDriver = flagBlobDriver
	}
	if f.Changed("fs-root") {
		cfg.BlobFSRoot = flagFSRoot
	}
	cfg.Export()
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func serviceOptions() []core.ServiceOption {
	opts := []core.ServiceOption{core.WithLogger(newLogger())}
	if traceRuns {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(os.Stderr)))
	}
	return opts
}

// openSource connects and health-checks the configured measurement source.
// The caller owns the returned source and must close it.
func openSource(ctx context.Context) (core.ResultSource, error) {
	source, err := core.OpenResultSource()
	if err != nil {
		return nil, fmt.Errorf("open measurement source: %w", err)
	}
	if err := source.Ping(ctx); err != nil {
		source.Close()
		return nil, fmt.Errorf("measurement source unreachable: %w", err)
	}
	return source, nil
}

func openStore(ctx context.Context) (blob.Store, error) {
	store, err := blob.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	return store, nil
}

// exportPrefix resolves the artifact key prefix: the command flag when set,
// otherwise the configured export_prefix.
func exportPrefix() string {
	if flagPrefix != "" {
		return flagPrefix
	}
	if cfg != nil {
		return cfg.ExportPrefix
	}
	return ""
}
