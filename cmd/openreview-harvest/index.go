// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/openreview-harvest/internal/dataset"
	"github.com/pdiddy/openreview-harvest/internal/output"
	"github.com/pdiddy/openreview-harvest/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and query a SQLite index of the merged datasets",
	Long: `Index loads the merged accepted-paper JSON and the ratings file into a
local SQLite database, then answers filtered queries and per-area
statistics. Rebuilding replaces the previous contents.`,
}

// --- build subcommand ---

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Load the merged datasets into the index",
	RunE:  runIndexBuild,
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	accepted, err := dataset.ReadSubmissions(pipelineCfg.Merge.AcceptedJSON)
	if err != nil {
		return err
	}
	ratings, err := dataset.ReadRatings(pipelineCfg.Merge.Ratings)
	if errors.Is(err, os.ErrNotExist) {
		printer.Warning("no ratings file at %s; indexing accepted papers only", pipelineCfg.Merge.Ratings)
		ratings, err = nil, nil
	}
	if err != nil {
		return err
	}

	s, err := store.Open(pipelineCfg.Index)
	if err != nil {
		return err
	}
	defer s.Close()

	summary, err := s.Ingest(cmd.Context(), accepted, ratings, printer.Out())
	if err != nil {
		return err
	}
	logger.Info("index built", "db", pipelineCfg.Index.DBPath, "papers", summary.Total(), "skipped", summary.Skipped)
	printer.Success("indexed %d papers into %s", summary.Total(), pipelineCfg.Index.DBPath)
	return nil
}

// --- query subcommand ---

var indexQueryCmd = &cobra.Command{
	Use:   "query [text...]",
	Short: "Search indexed papers by text, area and rating",
	Long: `Query matches the text case-insensitively against title, abstract and
keywords and applies the given filters. Results are ordered by average
rating, highest first.`,
	RunE: runIndexQuery,
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	opts := store.QueryOptions{Query: strings.Join(args, " ")}
	opts.Area, _ = cmd.Flags().GetString("area")
	opts.MinRating, _ = cmd.Flags().GetFloat64("min-rating")
	opts.AcceptedOnly, _ = cmd.Flags().GetBool("accepted")
	opts.MaxResults = pipelineCfg.Index.MaxResults

	s, err := store.Open(pipelineCfg.Index)
	if err != nil {
		return err
	}
	defer s.Close()

	papers, err := s.Retrieve(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd, papers)
	}
	if len(papers) == 0 {
		printer.Info("No results found.")
		return nil
	}

	tbl := output.NewTable(printer, []string{"Avg", "Reviews", "Accepted", "Area", "Title", "ID"})
	for _, p := range papers {
		tbl.AddRow(
			formatRating(p.AvgRating),
			formatCount(p.ReviewerCount),
			printer.Flag(p.Accepted),
			truncate(p.PrimaryArea, 30),
			truncate(p.Title, 60),
			p.ID,
		)
	}
	return tbl.Render()
}

// --- areas subcommand ---

var indexAreasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Show paper count, mean rating and mean reply count per primary area",
	RunE:  runIndexAreas,
}

func runIndexAreas(cmd *cobra.Command, args []string) error {
	acceptedOnly, _ := cmd.Flags().GetBool("accepted")

	s, err := store.Open(pipelineCfg.Index)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.AreaStats(cmd.Context(), acceptedOnly)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd, stats)
	}

	tbl := output.NewTable(printer, []string{"Area", "Papers", "Rated", "Mean rating", "Mean replies"})
	for _, st := range stats {
		area := st.Area
		if area == "" {
			area = "(none)"
		}
		tbl.AddRow(
			truncate(area, 50),
			strconv.Itoa(st.Papers),
			strconv.Itoa(st.Rated),
			formatRating(st.MeanRating),
			strconv.FormatFloat(st.MeanReplyCount, 'f', 1, 64),
		)
	}
	return tbl.Render()
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func formatRating(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *f)
}

func formatCount(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func init() {
	indexBuildCmd.Flags().String("accepted-json", "", "merged accepted papers JSON (default iclr26_all_papers.json)")
	indexBuildCmd.Flags().String("ratings", "", "ratings JSON (default iclr26_all_papers_with_ratings.json)")

	indexQueryCmd.Flags().String("area", "", "exact primary area")
	indexQueryCmd.Flags().Float64("min-rating", 0, "minimum average rating")
	indexQueryCmd.Flags().Bool("accepted", false, "accepted papers only")
	indexQueryCmd.Flags().Bool("json", false, "output as JSON")
	indexQueryCmd.Flags().Int("max-results", 0, "maximum results (default 20)")

	indexAreasCmd.Flags().Bool("accepted", false, "accepted papers only")
	indexAreasCmd.Flags().Bool("json", false, "output as JSON")

	indexCmd.PersistentFlags().String("db", "", "index database (default iclr26.db)")
	indexCmd.AddCommand(indexBuildCmd, indexQueryCmd, indexAreasCmd)
	rootCmd.AddCommand(indexCmd)
}
