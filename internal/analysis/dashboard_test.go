package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/achalasani15/gut-check-app/internal/journal"
)

func TestMemoHitsOnSameVersion(t *testing.T) {
	m := NewMemo(Options{Location: time.UTC})
	snap := journal.Snapshot{PetID: "p", Version: 1, Logs: []journal.LogRecord{
		food("f", t0, "Chicken", false, false),
	}}

	first := m.Dashboard(snap, t0)
	second := m.Dashboard(snap, t0.Add(time.Hour))
	if first != second {
		t.Error("expected cached dashboard for unchanged version and day")
	}
	if m.Hits() != 1 {
		t.Errorf("expected 1 hit, got %d", m.Hits())
	}

	snap.Version = 2
	third := m.Dashboard(snap, t0)
	if third == first {
		t.Error("expected rebuild after version change")
	}

	fourth := m.Dashboard(snap, t0.Add(24*time.Hour))
	if fourth == third {
		t.Error("expected rebuild after day change")
	}
	if m.Hits() != 1 {
		t.Errorf("expected hits to stay at 1, got %d", m.Hits())
	}
}

func TestDashboardToday(t *testing.T) {
	snap := journal.Snapshot{PetID: "p", Logs: []journal.LogRecord{stool("s", t0, 5)}}
	d := Build(snap, t0, Options{Location: time.UTC})
	if d.Today().Score != 40 {
		t.Errorf("expected today's score 40, got %d", d.Today().Score)
	}
	if len(d.Triggers) != 1 {
		t.Errorf("expected triggers for the bad stool, got %d", len(d.Triggers))
	}
	var empty Dashboard
	if empty.Today().Score != 100 {
		t.Errorf("expected 100 for empty series, got %d", empty.Today().Score)
	}
}

type fakeSource struct {
	mu      sync.Mutex
	version int64
	logs    []journal.LogRecord
	err     error
}

func (f *fakeSource) Snapshot(petID string) (*journal.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	logs := make([]journal.LogRecord, len(f.logs))
	copy(logs, f.logs)
	return &journal.Snapshot{PetID: petID, Version: f.version, Logs: logs}, nil
}

func (f *fakeSource) JournalVersion() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version, f.err
}

func (f *fakeSource) add(r journal.LogRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, r)
	f.version++
}

func TestWatcherEmitsOnChange(t *testing.T) {
	src := &fakeSource{version: 1}
	w := NewWatcher(src, "p", 10*time.Millisecond, Options{Location: time.UTC})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Dashboard, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(d *Dashboard) { got <- d })
	}()

	first := <-got
	if first.Version != 1 {
		t.Fatalf("expected initial version 1, got %d", first.Version)
	}

	src.add(stool("s", time.Now(), 5))

	select {
	case d := <-got:
		if d.Version != 2 {
			t.Errorf("expected version 2, got %d", d.Version)
		}
		if len(d.Triggers) != 1 {
			t.Errorf("expected the new stool to be analysed, got %d trigger sets", len(d.Triggers))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}

	select {
	case d := <-got:
		t.Errorf("unexpected emission without change: version %d", d.Version)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected nil error on cancel, got %v", err)
	}
}

func TestWatcherStoreError(t *testing.T) {
	src := &fakeSource{err: errors.New("disk gone")}
	w := NewWatcher(src, "p", time.Millisecond, Options{})
	err := w.Run(context.Background(), func(*Dashboard) {
		t.Error("emit should not be called")
	})
	if err == nil {
		t.Fatal("expected error from failing store")
	}
	if !errors.Is(err, src.err) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}
