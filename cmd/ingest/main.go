// Package main is the entry point of the ingest CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Batch ingest of bibliographic records into the institutional repository",
	Long: `ingest retrieves publication identifiers from a bibliographic source,
reconciles and deduplicates them, resolves their metadata, creates or matches
repository works, attaches full text and reports every outcome.

A run lives in its output directory. Stop it at any time and continue it
with --mode resume.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
