package geiger

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrNoHardware is returned when no pulse hardware backend is compiled
// into this build. The caller decides whether to fail or fall back to
// the synthetic source; the Engine itself never hears about it.
var ErrNoHardware = errors.New("no hardware pulse source available")

// PulseFunc receives the arrival timestamp of one detected pulse.
type PulseFunc func(ts time.Time)

// Source is the pulse source adapter contract. Implementations deliver
// one callback per detected transition, debounced on their side, and
// guarantee no further callbacks once Stop has returned.
type Source interface {
	SetCallback(cb PulseFunc)
	Start() error
	Stop()
}

// NewSource picks the pulse backend for this configuration.
// Hardware edge detection is owned by platform-specific builds; when
// none is present the mock flag is the only way to get pulses.
func NewSource(cfg Config) (Source, error) {
	if cfg.Mock {
		return NewSynthSource(cfg.MockRate), nil
	}
	return nil, ErrNoHardware
}

// SynthSource generates pulses with exponentially distributed
// inter-arrival times, a Poisson process at the configured mean rate.
// Indistinguishable to the Engine from a real detector.
type SynthSource struct {
	Rate float64 // mean pulses per second

	MU       sync.Mutex
	cb       PulseFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
}

func NewSynthSource(rate float64) *SynthSource {
	return &SynthSource{Rate: rate}
}

// SetCallback registers the pulse handler. Safe to call at any time,
// the next emitted pulse uses the new callback.
func (s *SynthSource) SetCallback(cb PulseFunc) {
	s.MU.Lock()
	s.cb = cb
	s.MU.Unlock()
}

// Start launches the generator goroutine. Calling Start on a running
// source is a no-op.
func (s *SynthSource) Start() error {
	s.MU.Lock()
	defer s.MU.Unlock()

	if s.started {
		return nil
	}
	s.started = true
	s.stopChan = make(chan struct{})

	slog.Info("Synthetic pulse source starting", slog.Float64("rate", s.Rate))

	s.wg.Add(1)
	go s.run(s.stopChan)
	return nil
}

// Stop halts the generator and waits for it to exit, so no callback is
// in flight after Stop returns. Idempotent; a stopped source can be
// started again.
func (s *SynthSource) Stop() {
	s.MU.Lock()
	if !s.started {
		s.MU.Unlock()
		return
	}
	s.started = false
	close(s.stopChan)
	s.MU.Unlock()

	s.wg.Wait()
}

func (s *SynthSource) run(stop chan struct{}) {
	defer s.wg.Done()

	timer := time.NewTimer(s.nextWait())
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			s.emit(time.Now())
			timer.Reset(s.nextWait())
		}
	}
}

// nextWait draws one exponential inter-arrival interval.
func (s *SynthSource) nextWait() time.Duration {
	lam := s.Rate
	if lam < 0.0001 {
		lam = 0.0001
	}
	return time.Duration(rand.ExpFloat64() / lam * float64(time.Second))
}

func (s *SynthSource) emit(ts time.Time) {
	s.MU.Lock()
	cb := s.cb
	s.MU.Unlock()

	if cb != nil {
		cb(ts)
	}
}
