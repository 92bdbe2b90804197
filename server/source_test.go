package geiger_test

import (
	"sync/atomic"
	"testing"
	"time"

	Gs "github.com/maroda/geigerlive/server"
)

func TestNewSource(t *testing.T) {
	t.Run("Mock config yields the synthetic source", func(t *testing.T) {
		src, err := Gs.NewSource(Gs.Config{Mock: true, MockRate: 5})
		assertError(t, err, nil)
		if _, ok := src.(*Gs.SynthSource); !ok {
			t.Errorf("expected a *SynthSource, got %T", src)
		}
	})

	t.Run("Hardware config reports no backend", func(t *testing.T) {
		_, err := Gs.NewSource(Gs.Config{Mock: false})
		if err != Gs.ErrNoHardware {
			t.Errorf("expected ErrNoHardware, got %v", err)
		}
	})
}

func TestSynthSource_DeliversPulses(t *testing.T) {
	// hot rate so the test finishes fast
	src := Gs.NewSynthSource(500)

	var count atomic.Int64
	src.SetCallback(func(ts time.Time) {
		count.Add(1)
	})

	err := src.Start()
	assertError(t, err, nil)
	defer src.Stop()

	deadline := time.After(3 * time.Second)
	for count.Load() < 5 {
		select {
		case <-deadline:
			t.Fatalf("expected pulses within 3s, got %d", count.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSynthSource_StopIsClean(t *testing.T) {
	src := Gs.NewSynthSource(500)

	var count atomic.Int64
	src.SetCallback(func(ts time.Time) {
		count.Add(1)
	})

	assertError(t, src.Start(), nil)
	time.Sleep(100 * time.Millisecond)

	t.Run("No callbacks after Stop returns", func(t *testing.T) {
		src.Stop()
		after := count.Load()
		time.Sleep(200 * time.Millisecond)
		if count.Load() != after {
			t.Errorf("callback fired after Stop: %d -> %d", after, count.Load())
		}
	})

	t.Run("Stop is idempotent", func(t *testing.T) {
		src.Stop()
		src.Stop()
	})

	t.Run("Source restarts after Stop", func(t *testing.T) {
		before := count.Load()
		assertError(t, src.Start(), nil)
		defer src.Stop()

		deadline := time.After(3 * time.Second)
		for count.Load() == before {
			select {
			case <-deadline:
				t.Fatal("no pulses after restart")
			case <-time.After(10 * time.Millisecond):
			}
		}
	})
}

func TestSynthSource_StartTwice(t *testing.T) {
	src := Gs.NewSynthSource(1)
	assertError(t, src.Start(), nil)
	assertError(t, src.Start(), nil) // no-op, no second goroutine
	src.Stop()
}
