package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/achalasani15/gut-check-app/internal/journal"
)

// SnapshotSource is the log store as seen by the watcher.
type SnapshotSource interface {
	Snapshot(petID string) (*journal.Snapshot, error)
	JournalVersion() (int64, error)
}

// Watcher polls a store and emits a fresh dashboard whenever the journal
// version changes.
type Watcher struct {
	src      SnapshotSource
	petID    string
	interval time.Duration
	memo     *Memo
	now      func() time.Time
}

// NewWatcher creates a watcher for one pet.
func NewWatcher(src SnapshotSource, petID string, interval time.Duration, opts Options) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{
		src:      src,
		petID:    petID,
		interval: interval,
		memo:     NewMemo(opts),
		now:      time.Now,
	}
}

// Run calls emit with the current dashboard, then again after every change,
// until ctx is done.
func (w *Watcher) Run(ctx context.Context, emit func(*Dashboard)) error {
	last := int64(-1)
	check := func() error {
		version, err := w.src.JournalVersion()
		if err != nil {
			return fmt.Errorf("reading journal version: %w", err)
		}
		if version == last {
			return nil
		}
		snap, err := w.src.Snapshot(w.petID)
		if err != nil {
			return fmt.Errorf("loading snapshot: %w", err)
		}
		last = snap.Version
		emit(w.memo.Dashboard(*snap, w.now()))
		return nil
	}

	if err := check(); err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := check(); err != nil {
				return err
			}
		}
	}
}
