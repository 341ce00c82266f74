// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"github.com/pdiddy/openreview-harvest/internal/acquire"
)

// Progress prints one line per fetched page. It implements
// acquire.Observer.
type Progress struct {
	p     *Printer
	pages int
	seen  int
}

// NewProgress returns a progress reporter writing through p.
func NewProgress(p *Printer) *Progress {
	return &Progress{p: p}
}

func (pr *Progress) Started(total, pages int) {
	pr.pages = pages
	pr.seen = 0
	pr.p.Info("%d submissions declared, %d pages", total, pages)
}

func (pr *Progress) PageDone(ev acquire.PageEvent) {
	pr.seen++
	if ev.Err != nil {
		pr.p.Warning("page %d/%d (offset %d) skipped: %v", pr.seen, pr.pages, ev.Offset, ev.Err)
		return
	}
	pr.p.Print("page %d/%d  offset %-6d +%-3d %d/%d", pr.seen, pr.pages, ev.Offset, ev.Records, ev.Obtained, ev.Total)
}
