package job

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Reaper removes terminal jobs after a retention window so the job
// table and the artifact directory do not grow without bound.
type Reaper struct {
	store     Store
	retention time.Duration
	interval  time.Duration
	logger    *log.Logger

	// OnReap, when set, is called with each removed job so the owner
	// can delete the matching artifact.
	OnReap func(j *Job)
}

// NewReaper builds a reaper that removes terminal jobs older than
// retention, sweeping every interval.
func NewReaper(store Store, retention, interval time.Duration, logger *log.Logger) *Reaper {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Reaper{store: store, retention: retention, interval: interval, logger: logger}
}

// Run sweeps until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(ctx); n > 0 {
				r.logger.Info("reaped finished jobs", "count", n)
			}
		}
	}
}

// Sweep removes expired terminal jobs once and returns how many were
// removed.
func (r *Reaper) Sweep(ctx context.Context) int {
	jobs, err := r.store.List(ctx)
	if err != nil {
		r.logger.Warn("reaper list failed", "error", err)
		return 0
	}

	cutoff := time.Now().UTC().Add(-r.retention)
	removed := 0
	for _, j := range jobs {
		if !j.Status.Terminal() || j.CompletedAt == nil || j.CompletedAt.After(cutoff) {
			continue
		}
		if err := r.store.Delete(ctx, j.ID); err != nil {
			r.logger.Warn("reaper delete failed", "job", j.ID, "error", err)
			continue
		}
		if r.OnReap != nil {
			r.OnReap(j)
		}
		removed++
	}
	return removed
}
