package geiger

import (
	"log/slog"
	"sync"
	"time"

	Gt "github.com/maroda/geigerlive/types"
)

// Engine owns all mutable acquisition state for one detector.
// Pulses arrive from the Source callback, observers read point-in-time
// Snapshots, and either side may Reset at any moment. A single Mutex
// serializes the three operations; every buffer is a bounded Ring so
// the lock is only ever held for O(1) amortized work.

type Acquirer interface {
	RecordPulse(ts time.Time)
	Snapshot() Gt.Snapshot
	Reset()
	OnPulse(cb func(Gt.PulseEvent))
}

type Engine struct {
	MU  sync.Mutex
	now func() time.Time // swappable clock for deterministic tests

	t0      time.Time // epoch for elapsed time and per-second bucketing
	total   int64
	lastTS  time.Time
	hasLast bool

	deltas      *Ring[float64] // inter-pulse intervals, seconds
	perSecond   *Ring[int64]   // pulse count per whole second since t0
	runningMean *Ring[float64] // cumulative mean per bucket, same length
	visibleSum  int64          // sum of all entries in perSecond
	baseSecond  int            // whole seconds evicted off the front

	callbacks []func(Gt.PulseEvent)
	verbose   bool
}

// NewEngine builds an Engine with empty buffers and t0 = now.
// Multiple independent Engines can coexist, there is no package state.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		now:         time.Now,
		deltas:      NewRing[float64](cfg.MaxDeltas),
		perSecond:   NewRing[int64](cfg.MaxSeries),
		runningMean: NewRing[float64](cfg.MaxSeries),
		verbose:     cfg.Verbose,
	}
	e.t0 = e.now()
	return e
}

// OnPulse registers a handler that runs once per recorded pulse,
// after the mutation has committed and outside the state lock.
// Handlers survive a Reset.
func (e *Engine) OnPulse(cb func(Gt.PulseEvent)) {
	e.MU.Lock()
	e.callbacks = append(e.callbacks, cb)
	e.MU.Unlock()
}

// RecordPulse folds one pulse into the acquisition state.
// It is total over its input: out-of-order timestamps clamp their
// derived delta and elapsed values to zero instead of failing, because
// the pulse path must never raise mid-interrupt.
func (e *Engine) RecordPulse(ts time.Time) {
	e.MU.Lock()

	elapsed := ts.Sub(e.t0).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	idx := int(elapsed)
	e.extendTo(idx)

	// Address the bucket by elapsed-seconds-since-start, re-based
	// past any eviction. A pulse older than the visible window lands
	// in the oldest surviving bucket.
	pos := idx - e.baseSecond
	if pos < 0 {
		pos = 0
	}
	e.perSecond.SetAt(pos, e.perSecond.At(pos)+1)
	e.visibleSum++
	e.runningMean.SetAt(pos, e.meanAt(pos))

	var delta float64
	if e.hasLast {
		delta = ts.Sub(e.lastTS).Seconds()
		if delta < 0 {
			delta = 0
		}
		e.deltas.Append(delta)
	}
	e.lastTS = ts
	e.hasLast = true
	e.total++

	ev := Gt.PulseEvent{Timestamp: ts, Delta: delta, Seq: e.total}
	cbs := e.callbacks
	verbose := e.verbose
	e.MU.Unlock()

	if verbose {
		slog.Debug("pulse", slog.Int64("seq", ev.Seq), slog.Float64("delta", ev.Delta))
	}
	for _, cb := range cbs {
		cb(ev)
	}
}

// extendTo grows the bucket series with zero-filled seconds until the
// bucket for idx exists, evicting from the front at capacity. When the
// gap is larger than the whole window (a long idle stretch), the series
// is rebuilt instead of walked second by second.
func (e *Engine) extendTo(idx int) {
	missing := idx - (e.baseSecond + e.perSecond.Len()) + 1
	if missing <= 0 {
		return
	}

	if missing >= e.perSecond.MaxSize {
		e.perSecond.Clear()
		e.runningMean.Clear()
		e.visibleSum = 0
		e.baseSecond = idx - e.perSecond.MaxSize + 1
		missing = e.perSecond.MaxSize
	}

	for i := 0; i < missing; i++ {
		if old, evicted := e.perSecond.Append(0); evicted {
			e.baseSecond++
			e.visibleSum -= old
		}
		e.runningMean.Append(0)
		// the freshly appended zero bucket still gets a mean entry
		e.runningMean.SetAt(e.runningMean.Len()-1, e.meanAt(e.perSecond.Len()-1))
	}
}

// meanAt derives the cumulative mean entry for one bucket position:
// the sum of visible buckets up to and including pos, divided by the
// number of visible seconds up to pos. The common case is the newest
// bucket, answered from the maintained visibleSum without a walk.
func (e *Engine) meanAt(pos int) float64 {
	n := e.perSecond.Len()
	if n == 0 {
		return 0
	}
	if pos == n-1 {
		return float64(e.visibleSum) / float64(n)
	}
	var sum int64
	for i := 0; i <= pos; i++ {
		sum += e.perSecond.At(i)
	}
	return float64(sum) / float64(pos+1)
}

// Snapshot captures a consistent point-in-time view. Every sequence in
// the result is a copy, so callers never observe a live buffer, and
// PerSecond and RunningMean always agree on length.
func (e *Engine) Snapshot() Gt.Snapshot {
	e.MU.Lock()
	defer e.MU.Unlock()

	now := e.now()
	elapsed := now.Sub(e.t0).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	snap := Gt.Snapshot{
		Type:        "snapshot",
		Total:       e.total,
		Elapsed:     elapsed,
		PerSecond:   e.perSecond.Snapshot(),
		RunningMean: e.runningMean.Snapshot(),
		Deltas:      e.deltas.Snapshot(),
	}
	if e.hasLast {
		age := now.Sub(e.lastTS).Seconds()
		if age < 0 {
			age = 0
		}
		snap.LastAge = &age
	}
	snap.RateBq, snap.RateErr = ActivityRate(e.total, elapsed)

	return snap
}

// Reset re-initializes the acquisition state in place: counters zeroed,
// buffers emptied, epoch moved to now. A pulse racing the reset is
// either fully applied before it or fully discarded by it, never half.
func (e *Engine) Reset() {
	e.MU.Lock()
	defer e.MU.Unlock()

	e.t0 = e.now()
	e.total = 0
	e.hasLast = false
	e.deltas.Clear()
	e.perSecond.Clear()
	e.runningMean.Clear()
	e.visibleSum = 0
	e.baseSecond = 0
}
