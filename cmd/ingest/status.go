package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/bibliographic-ingest/internal/tracker"
)

var statusDir string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the progress of a run directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		progress, err := tracker.Load(statusDir)
		if err != nil {
			return fmt.Errorf("load run: %w", err)
		}
		printProgress(cmd, progress)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusDir, "output-dir", "", "run directory")
	_ = statusCmd.MarkFlagRequired("output-dir")
	rootCmd.AddCommand(statusCmd)
}

func printProgress(cmd *cobra.Command, p *tracker.Progress) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run:          %s\n", p.RunID)
	fmt.Fprintf(out, "source:       %s\n", p.Source)
	if p.DateRange.From != "" || p.DateRange.To != "" {
		fmt.Fprintf(out, "dates:        %s .. %s\n", p.DateRange.From, p.DateRange.To)
	}
	fmt.Fprintf(out, "admin set:    %s\n", p.AdminSet)
	fmt.Fprintf(out, "started:      %s\n", p.StartTime.Format("2006-01-02 15:04:05"))
	if p.RestartTime != nil {
		fmt.Fprintf(out, "restarted:    %s\n", p.RestartTime.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(out, "deduplicated: %t\n", p.DedupCompleted)
	fmt.Fprintf(out, "notified:     %t\n", p.NotificationSent)

	for _, name := range p.StageNames() {
		st := p.Stages[name]
		if st.Total > 0 {
			fmt.Fprintf(out, "  %-28s %-12s %d/%d\n", name, st.Status, st.Cursor, st.Total)
			continue
		}
		fmt.Fprintf(out, "  %-28s %-12s %d\n", name, st.Status, st.Cursor)
	}
}
