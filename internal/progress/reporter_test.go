package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/akilaramal69-beep/telelinkworking/types"
)

// captureStore records every write so tests can inspect the sequence
// observers would have seen.
type captureStore struct {
	mu   sync.Mutex
	recs []types.ProgressRecord
}

func (c *captureStore) Set(userID int64, rec *types.ProgressRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, *rec)
	return nil
}

func (c *captureStore) Get(userID int64) (*types.ProgressRecord, error) { return nil, nil }
func (c *captureStore) SetTerminal(userID int64, rec *types.ProgressRecord, retention time.Duration) error {
	return c.Set(userID, rec)
}
func (c *captureStore) Delete(userID int64) error { return nil }

func (c *captureStore) all() []types.ProgressRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.ProgressRecord, len(c.recs))
	copy(out, c.recs)
	return out
}

func TestBytesMonotonicWithinPhase(t *testing.T) {
	store := &captureStore{}
	rep := NewReporter(store, 1, time.Nanosecond)

	rep.Phase("Downloading...", types.StateAcquiring)
	rep.Bytes("Downloading...", 500, 1000)
	rep.Bytes("Downloading...", 300, 1000) // stale update must not regress
	rep.Bytes("Downloading...", 900, 1000)

	recs := store.all()
	last := -1.0
	for i, r := range recs {
		if r.Percentage < last {
			t.Fatalf("record %d regressed: %.1f after %.1f", i, r.Percentage, last)
		}
		last = r.Percentage
	}
	if last < 90 {
		t.Errorf("final percentage = %.1f, want >= 90", last)
	}
}

func TestBytesNeverReportsHundredMidPhase(t *testing.T) {
	store := &captureStore{}
	rep := NewReporter(store, 1, time.Nanosecond)

	rep.Phase("Downloading...", types.StateAcquiring)
	rep.Bytes("Downloading...", 1000, 1000)

	recs := store.all()
	final := recs[len(recs)-1]
	if final.Percentage >= 100 {
		t.Errorf("mid-phase percentage = %.1f, want < 100", final.Percentage)
	}
}

func TestPhaseTransitionResetsPercentage(t *testing.T) {
	store := &captureStore{}
	rep := NewReporter(store, 1, time.Nanosecond)

	rep.Phase("Downloading...", types.StateAcquiring)
	rep.Bytes("Downloading...", 900, 1000)
	rep.Phase("Uploading...", types.StateUploading)

	recs := store.all()
	final := recs[len(recs)-1]
	if final.Percentage != 0 {
		t.Errorf("percentage after phase change = %.1f, want 0", final.Percentage)
	}
	if final.State != types.StateUploading {
		t.Errorf("state after phase change = %q, want %q", final.State, types.StateUploading)
	}

	// The new phase starts its own baseline.
	rep.Bytes("Uploading...", 100, 1000)
	recs = store.all()
	final = recs[len(recs)-1]
	if final.Percentage != 10 {
		t.Errorf("first upload percentage = %.1f, want 10", final.Percentage)
	}
}

func TestPulseIsMonotoneAndBounded(t *testing.T) {
	store := &captureStore{}
	rep := NewReporter(store, 1, time.Nanosecond)

	rep.Phase("Weaving Stream together...", types.StateAcquiring)
	last := -1.0
	for _, secs := range []int{1, 5, 30, 120, 600} {
		rep.Pulse("Weaving Stream together...", time.Duration(secs)*time.Second)
		recs := store.all()
		final := recs[len(recs)-1]
		if final.Percentage < last {
			t.Fatalf("pulse regressed at %ds: %.1f after %.1f", secs, final.Percentage, last)
		}
		if final.Percentage >= 100 {
			t.Fatalf("pulse reached %.1f at %ds, must stay below 100", final.Percentage, secs)
		}
		last = final.Percentage
	}
	if last < 50 {
		t.Errorf("pulse after 600s = %.1f, want well past half", last)
	}
}

func TestUnknownTotalKeepsLastPercentage(t *testing.T) {
	store := &captureStore{}
	rep := NewReporter(store, 1, time.Nanosecond)

	rep.Phase("Downloading...", types.StateAcquiring)
	rep.Bytes("Downloading...", 500, 1000)
	rep.Bytes("Downloading...", 600, -1)

	recs := store.all()
	final := recs[len(recs)-1]
	if final.Percentage != 50 {
		t.Errorf("percentage with unknown total = %.1f, want 50", final.Percentage)
	}
	if final.Total != "Unknown" {
		t.Errorf("total = %q, want Unknown", final.Total)
	}
}

func TestThrottleSuppressesIntermediateWrites(t *testing.T) {
	store := &captureStore{}
	rep := NewReporter(store, 1, time.Hour)

	rep.Phase("Downloading...", types.StateAcquiring)
	rep.Bytes("Downloading...", 100, 1000) // first write after a phase always lands
	rep.Bytes("Downloading...", 200, 1000)
	rep.Bytes("Downloading...", 300, 1000)

	if got := len(store.all()); got != 2 {
		t.Errorf("writes = %d, want 2 (phase + first bytes)", got)
	}
}
