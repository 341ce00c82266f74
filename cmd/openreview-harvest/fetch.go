// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/openreview-harvest/internal/acquire"
	"github.com/pdiddy/openreview-harvest/internal/dataset"
	"github.com/pdiddy/openreview-harvest/internal/output"
	"github.com/pdiddy/openreview-harvest/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every submission of a venue into JSON and CSV",
	Long: `Fetch requests the first page of the notes API to learn the declared
total, then every remaining page in order, one request at a time with a
small capped pause between pages. Failed pages after the first are skipped
and reported; a failed first page aborts the run.

On success the submissions are written to the JSON and CSV outputs and a
YAML manifest describes the run. An interrupt (Ctrl-C) stops the run and
writes nothing.`,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.String("base-url", "", "notes endpoint (default https://api2.openreview.net/notes)")
	f.String("venue", "", "content.venue filter (default \"ICLR 2026\")")
	f.String("domain", "", "domain filter (default ICLR.cc/2026/Conference)")
	f.String("invitation", "", "invitation filter (default ICLR.cc/2026/Conference/-/Submission)")
	f.Int("limit", 0, "page size (default 25)")
	f.Duration("timeout", 0, "per-request timeout (default 30s)")
	f.Int("rate-limit-retries", 0, "re-send a request this many times after HTTP 429 (default 0)")
	f.Duration("base-delay", 0, "base pause between pages (default 0)")
	f.Duration("max-delay", 0, "cap on the pause between pages (default 2s)")
	f.String("output-json", "", "structured output file (default iclr26_all_papers.json)")
	f.String("output-csv", "", "row output file (default iclr26_all_papers.csv)")
	f.String("manifest", "", "run manifest file (default iclr26_all_papers.manifest.yaml)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := pipelineCfg.Acquisition

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := dataset.NewRunID()
	log := logger.With("run_id", runID)
	log.Info("starting acquisition",
		"venue", cfg.Source.Venue,
		"base_url", cfg.Source.BaseURL,
		"limit", cfg.Source.Limit,
	)

	var observer acquire.Observer
	if !printer.IsQuiet() {
		observer = output.NewProgress(printer)
	}

	started := time.Now().UTC()
	driver := acquire.NewDriver(acquire.NewClient(cfg, log), cfg, observer, log)
	res, err := driver.Run(ctx)

	switch {
	case res.State == acquire.StateInterrupted:
		printer.Warning("interrupted: %d of %d submissions fetched, nothing written", res.Obtained(), res.Total)
		return fmt.Errorf("acquisition interrupted: %w", err)
	case errors.Is(err, acquire.ErrAborted):
		printer.Error("first page unavailable, nothing written")
		return err
	case err != nil:
		return err
	case res.Total > 0 && res.Obtained() == 0:
		return fmt.Errorf("%d submissions declared but none obtained, nothing written", res.Total)
	}

	files, err := writeDataset(cfg, res.Submissions)
	if err != nil {
		return err
	}
	if cfg.Manifest != "" {
		m := &dataset.Manifest{
			RunID:           runID,
			StartedAt:       started,
			FinishedAt:      time.Now().UTC(),
			Source:          cfg.Source,
			Declared:        res.Total,
			Obtained:        res.Obtained(),
			Pages:           res.Pages,
			SuccessfulPages: res.SuccessfulPages,
			FailedPages:     res.FailedPages,
			SkippedOffsets:  res.SkippedOffsets,
			MissingIDs:      res.MissingIDs,
			Files:           files,
		}
		if err := dataset.WriteManifest(cfg.Manifest, m); err != nil {
			return err
		}
		files = append(files, cfg.Manifest)
	}

	if err := printFetchSummary(res); err != nil {
		return err
	}
	for _, f := range files {
		printer.Success("wrote %s", f)
	}
	if res.FailedPages > 0 {
		printer.Warning("%d page(s) skipped; %d declared submissions missing", res.FailedPages, res.Shortfall())
	}
	return nil
}

// writeDataset writes subs to both outputs and returns the paths written.
func writeDataset(cfg types.AcquisitionConfig, subs []types.Submission) ([]string, error) {
	if err := dataset.WriteSubmissions(cfg.OutputJSON, subs); err != nil {
		return nil, err
	}
	tbl, err := dataset.SubmissionTable(subs)
	if err != nil {
		return []string{cfg.OutputJSON}, err
	}
	if err := dataset.WriteCSV(cfg.OutputCSV, tbl); err != nil {
		return []string{cfg.OutputJSON}, err
	}
	return []string{cfg.OutputJSON, cfg.OutputCSV}, nil
}

func printFetchSummary(res acquire.Result) error {
	printer.Header("Fetch summary")
	tbl := output.NewTable(printer, []string{"Metric", "Value"})
	tbl.AddRow("declared", strconv.Itoa(res.Total))
	tbl.AddRow("obtained", strconv.Itoa(res.Obtained()))
	tbl.AddRow("pages", strconv.Itoa(res.Pages))
	tbl.AddRow("successful pages", strconv.Itoa(res.SuccessfulPages))
	tbl.AddRow("failed pages", strconv.Itoa(res.FailedPages))
	if len(res.SkippedOffsets) > 0 {
		offsets := make([]string, len(res.SkippedOffsets))
		for i, o := range res.SkippedOffsets {
			offsets[i] = strconv.Itoa(o)
		}
		tbl.AddRow("skipped offsets", strings.Join(offsets, ", "))
	}
	if res.MissingIDs > 0 {
		tbl.AddRow("records without id", strconv.Itoa(res.MissingIDs))
	}
	return tbl.Render()
}
