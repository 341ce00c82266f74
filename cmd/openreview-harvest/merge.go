// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/openreview-harvest/internal/merge"
	"github.com/pdiddy/openreview-harvest/internal/output"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge reviewer ratings into the accepted-paper datasets",
	Long: `Merge reads the accepted-paper JSON and CSV files and a ratings file keyed
by paper_id. Accepted papers with ratings receive ratings, min_rating,
max_rating, avg_rating and reviewer_count; CSV rows without ratings get
empty cells and "[]". Every ratings record gets accepted_flag, recomputed
from the accepted ids on each run. All three files are rewritten in place.

Running merge twice with the same inputs yields the same files.`,
	RunE: runMerge,
}

func init() {
	f := mergeCmd.Flags()
	f.String("accepted-json", "", "accepted papers JSON (default iclr26_all_papers.json)")
	f.String("accepted-csv", "", "accepted papers CSV (default iclr26_all_papers.csv)")
	f.String("ratings", "", "ratings JSON (default iclr26_all_papers_with_ratings.json)")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg := pipelineCfg.Merge

	summary, err := merge.Files(cfg, logger)
	if err != nil {
		return err
	}

	printer.Header("Merge summary")
	tbl := output.NewTable(printer, []string{"Metric", "Value"})
	tbl.AddRow("updated records (json)", strconv.Itoa(summary.UpdatedStructured))
	tbl.AddRow("updated rows (csv)", strconv.Itoa(summary.UpdatedRows))
	tbl.AddRow("rated papers", strconv.Itoa(summary.Total))
	tbl.AddRow("accepted", strconv.Itoa(summary.Accepted))
	tbl.AddRow("rejected", strconv.Itoa(summary.Rejected))
	if err := tbl.Render(); err != nil {
		return err
	}
	for _, f := range []string{cfg.AcceptedJSON, cfg.AcceptedCSV, cfg.Ratings} {
		printer.Success("wrote %s", f)
	}
	return nil
}
