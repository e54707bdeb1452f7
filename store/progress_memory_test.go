package store

import (
	"testing"
	"time"

	"github.com/akilaramal69-beep/telelinkworking/types"
)

func TestMemoryProgressStoreSetGet(t *testing.T) {
	s := NewMemoryProgressStore()

	if rec, err := s.Get(42); err != nil || rec != nil {
		t.Fatalf("Get on empty store = (%v, %v), want (nil, nil)", rec, err)
	}

	in := &types.ProgressRecord{Action: "Downloading...", Percentage: 42.5, State: types.StateAcquiring}
	if err := s.Set(42, in); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(42)
	if err != nil {
		t.Fatal(err)
	}
	if got.Action != in.Action || got.Percentage != in.Percentage || got.State != in.State {
		t.Errorf("Get = %+v, want %+v", got, in)
	}

	// Records are copied, not shared.
	in.Percentage = 99
	got2, _ := s.Get(42)
	if got2.Percentage != 42.5 {
		t.Errorf("stored record aliases caller's: %.1f", got2.Percentage)
	}
}

func TestMemoryProgressStoreRetention(t *testing.T) {
	s := NewMemoryProgressStore()

	terminal := &types.ProgressRecord{Action: types.ActionComplete, Percentage: 100, State: types.StateComplete}
	if err := s.SetTerminal(7, terminal, 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	// Within the retention window the terminal record is visible.
	got, err := s.Get(7)
	if err != nil || got == nil {
		t.Fatalf("terminal record missing inside retention window: (%v, %v)", got, err)
	}
	if got.Action != types.ActionComplete {
		t.Errorf("action = %q, want %q", got.Action, types.ActionComplete)
	}

	// After it, the key reads as absent so pollers see idle again.
	deadline := time.After(2 * time.Second)
	for {
		got, _ = s.Get(7)
		if got == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("terminal record never expired")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestMemoryProgressStoreNewTaskCancelsRetention(t *testing.T) {
	s := NewMemoryProgressStore()

	_ = s.SetTerminal(7, &types.ProgressRecord{Action: types.ActionComplete, State: types.StateComplete}, 20*time.Millisecond)
	_ = s.Set(7, &types.ProgressRecord{Action: "Downloading...", State: types.StateAcquiring})

	time.Sleep(60 * time.Millisecond)
	got, _ := s.Get(7)
	if got == nil {
		t.Fatal("live record was removed by the stale retention timer")
	}
	if got.Action != "Downloading..." {
		t.Errorf("action = %q, want live record", got.Action)
	}
}

func TestMemoryProgressStoreDelete(t *testing.T) {
	s := NewMemoryProgressStore()
	_ = s.Set(1, &types.ProgressRecord{Action: "Uploading..."})
	if err := s.Delete(1); err != nil {
		t.Fatal(err)
	}
	if rec, _ := s.Get(1); rec != nil {
		t.Errorf("record survived delete: %+v", rec)
	}
}
