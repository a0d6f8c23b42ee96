package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/pipeline"
	"github.com/helixir/bibliographic-ingest/internal/report"
)

var (
	reportDir    string
	reportRowCap int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the report of a run from its outcome log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		result, err := pipeline.Report(reportDir, reportRowCap)
		if err != nil {
			return fmt.Errorf("build report: %w", err)
		}

		out := cmd.OutOrStdout()
		printCounts(out, result.Summary.Counts)
		fmt.Fprintf(out, "total %d, successes %d\n", result.Summary.Total, result.Summary.Successes())
		fmt.Fprintf(out, "report: %s\n", result.ArchivePath)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDir, "output-dir", "", "run directory")
	reportCmd.Flags().IntVar(&reportRowCap, "row-cap", report.DefaultRowCap, "sample rows kept per category")
	_ = reportCmd.MarkFlagRequired("output-dir")
	rootCmd.AddCommand(reportCmd)
}

// printCounts writes the non-zero counts in category order.
func printCounts(out io.Writer, counts map[domain.Category]int) {
	for _, cat := range domain.Categories() {
		if n := counts[cat]; n > 0 {
			fmt.Fprintf(out, "  %-40s %d\n", cat, n)
		}
	}
}
