//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Pipeline runs the CLI stages against the data/ directory.
type Pipeline mg.Namespace

var (
	papersJSON  = filepath.Join(dataDir, "iclr26_all_papers.json")
	papersCSV   = filepath.Join(dataDir, "iclr26_all_papers.csv")
	manifest    = filepath.Join(dataDir, "iclr26_all_papers.manifest.yaml")
	ratingsJSON = filepath.Join(dataDir, "iclr26_all_papers_with_ratings.json")
	indexDB     = filepath.Join(dataDir, "index", "iclr26.db")
)

func harvest(args ...string) error {
	return sh.RunV(filepath.Join(binDir, binName), args...)
}

// Fetch downloads every submission into data/.
func (Pipeline) Fetch() error {
	mg.Deps(Build)
	return harvest("fetch",
		"--output-json", papersJSON,
		"--output-csv", papersCSV,
		"--manifest", manifest,
	)
}

// Merge joins data/iclr26_all_papers_with_ratings.json into the fetched datasets.
func (Pipeline) Merge() error {
	mg.Deps(Build)
	return harvest("merge",
		"--accepted-json", papersJSON,
		"--accepted-csv", papersCSV,
		"--ratings", ratingsJSON,
	)
}

// Index rebuilds the SQLite index from the merged datasets.
func (Pipeline) Index() error {
	mg.Deps(Build)
	return harvest("index", "build",
		"--accepted-json", papersJSON,
		"--ratings", ratingsJSON,
		"--db", indexDB,
	)
}

// All runs fetch, merge and index in order.
func (Pipeline) All() {
	mg.SerialDeps(Pipeline.Fetch, Pipeline.Merge, Pipeline.Index)
}
