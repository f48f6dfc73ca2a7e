package job

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultPollInterval is how often watchers sample the store. Progress
// granularity below half a second is invisible to clients.
const DefaultPollInterval = 500 * time.Millisecond

// Watcher turns the versioned job record into an event stream by
// polling the store. Identical consecutive snapshots are suppressed,
// so subscribers only see actual change.
type Watcher struct {
	store    Store
	interval time.Duration
	logger   *log.Logger
}

// NewWatcher builds a watcher over store. A non-positive interval
// falls back to DefaultPollInterval.
func NewWatcher(store Store, interval time.Duration, logger *log.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Watcher{store: store, interval: interval, logger: logger}
}

// Watch streams snapshots of the job until it reaches a terminal
// status, the job disappears, or ctx is cancelled. The current state
// is always emitted first; the channel closes after the terminal
// snapshot.
func (w *Watcher) Watch(ctx context.Context, id string) <-chan *Job {
	out := make(chan *Job, 1)

	go func() {
		defer close(out)
		var lastVersion int64

		emit := func(j *Job) bool {
			if j.Version == lastVersion {
				return true
			}
			lastVersion = j.Version
			select {
			case out <- j:
				return true
			case <-ctx.Done():
				return false
			}
		}

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			j, err := w.store.Get(ctx, id)
			if err != nil {
				// Reaped mid-watch or never existed. Either way there
				// is nothing more to stream.
				w.logger.Debug("watch ended", "job", id, "error", err)
				return
			}
			if !emit(j) {
				return
			}
			if j.Status.Terminal() {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out
}
