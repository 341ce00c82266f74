// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"time"

	"github.com/pdiddy/openreview-harvest/pkg/types"
)

// Pacer spaces consecutive page requests with a mildly increasing, capped
// delay. It is a politeness schedule, not a retry policy.
type Pacer struct {
	Base      time.Duration
	PerOffset time.Duration
	Max       time.Duration

	// Sleep waits for d or until ctx is done. Tests replace it to record
	// delays without sleeping. Nil uses SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer builds a Pacer from cfg.
func NewPacer(cfg types.PacingConfig) Pacer {
	return Pacer{
		Base:      cfg.BaseDelay,
		PerOffset: cfg.PerOffset,
		Max:       cfg.MaxDelay,
	}
}

// Delay returns min(Base + offset*PerOffset, Max). A zero Max means no cap.
func (p Pacer) Delay(offset int) time.Duration {
	d := p.Base + time.Duration(offset)*p.PerOffset
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	if d < 0 {
		return 0
	}
	return d
}

// Wait sleeps for Delay(offset). It returns ctx.Err() if the context is
// cancelled first.
func (p Pacer) Wait(ctx context.Context, offset int) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, p.Delay(offset))
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
