package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/akilaramal69-beep/telelinkworking/internal/messages"
	"github.com/akilaramal69-beep/telelinkworking/types"
)

// speedSmoothing is the EWMA weight given to the newest throughput
// sample.
const speedSmoothing = 0.3

// Reporter is the single writer of one task's ProgressRecord. It
// rate-bounds store writes, keeps the percentage monotonically
// non-decreasing within a phase, and resets it to zero on every phase
// transition (the Acquiring→Uploading boundary included).
type Reporter struct {
	store    types.ProgressStore
	userID   int64
	interval time.Duration

	mu        sync.Mutex
	state     types.TaskState
	maxPct    float64
	lastWrite time.Time
	lastBytes int64
	lastTime  time.Time
	speed     float64
}

func NewReporter(store types.ProgressStore, userID int64, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Reporter{
		store:    store,
		userID:   userID,
		interval: interval,
	}
}

// Phase starts a new phase: the monotonic baseline and the smoothed
// speed reset, and the transition is written out immediately.
func (r *Reporter) Phase(action string, state types.TaskState) {
	r.mu.Lock()
	r.state = state
	r.maxPct = 0
	r.lastBytes = 0
	r.lastTime = time.Now()
	r.speed = 0
	r.lastWrite = time.Time{}
	r.mu.Unlock()

	r.write(&types.ProgressRecord{
		Action:     action,
		Percentage: 0,
		Current:    "0 B",
		State:      state,
	}, true)
}

// Bytes reports byte progress for the current phase. total <= 0 means
// the size is unknown. Intermediate updates are capped just below 100
// so observers never see a finished phase that is still running.
func (r *Reporter) Bytes(action string, current, total int64) {
	r.mu.Lock()
	pct := r.maxPct
	if total > 0 {
		pct = float64(current) / float64(total) * 100
		if pct > 99.9 {
			pct = 99.9
		}
	}
	if pct < r.maxPct {
		pct = r.maxPct
	}
	r.maxPct = pct

	now := time.Now()
	if dt := now.Sub(r.lastTime).Seconds(); dt > 0 && current > r.lastBytes {
		inst := float64(current-r.lastBytes) / dt
		if r.speed == 0 {
			r.speed = inst
		} else {
			r.speed = speedSmoothing*inst + (1-speedSmoothing)*r.speed
		}
		r.lastBytes = current
		r.lastTime = now
	}

	throttled := !r.lastWrite.IsZero() && now.Sub(r.lastWrite) < r.interval
	rec := &types.ProgressRecord{
		Action:     action,
		Percentage: round1(pct),
		Current:    messages.HumanBytes(current),
		State:      r.state,
	}
	if total > 0 {
		rec.Total = messages.HumanBytes(total)
	} else {
		rec.Total = "Unknown"
	}
	if r.speed > 0 {
		rec.Speed = fmt.Sprintf("%s/s", messages.HumanBytes(int64(r.speed)))
	}
	r.mu.Unlock()

	if throttled {
		return
	}
	r.write(rec, false)
}

// Pulse reports liveness for phases with no byte totals (manifest
// remux): the percentage follows a saturating curve of elapsed time, so
// it keeps creeping upward without ever reaching completion and stays
// monotone like every other phase.
func (r *Reporter) Pulse(action string, elapsed time.Duration) {
	r.mu.Lock()
	state := r.state
	now := time.Now()
	throttled := !r.lastWrite.IsZero() && now.Sub(r.lastWrite) < r.interval
	pct := 99.9 * elapsed.Seconds() / (elapsed.Seconds() + 30)
	if pct < r.maxPct {
		pct = r.maxPct
	}
	r.maxPct = pct
	r.mu.Unlock()
	if throttled {
		return
	}

	r.write(&types.ProgressRecord{
		Action:     action,
		Percentage: round1(pct),
		Current:    messages.TimeFormat(int64(elapsed.Seconds())),
		Total:      "Unknown",
		Speed:      "Streaming",
		State:      state,
	}, false)
}

func (r *Reporter) write(rec *types.ProgressRecord, force bool) {
	_ = r.store.Set(r.userID, rec)
	r.mu.Lock()
	if force {
		// Phase transitions always land; the throttle restarts after.
		r.lastWrite = time.Time{}
	} else {
		r.lastWrite = time.Now()
	}
	r.mu.Unlock()
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
