package geiger

import (
	"sync"
	"time"
)

// BroadcastSupervisor pushes a snapshot to every observer at a fixed
// cadence, whether or not any pulses arrived. Idle periods still move
// elapsed time and the chart windows on connected clients.
type BroadcastSupervisor struct {
	View     *View
	Interval time.Duration
	Ticker   *time.Ticker
	StopChan chan struct{}
	WG       sync.WaitGroup
}

// NewBroadcastSupervisor is a wrapper around the View that manages the
// snapshot ticker goroutine. They are strongly coupled, one knows about
// the other.
func (v *View) NewBroadcastSupervisor() *BroadcastSupervisor {
	bs := &BroadcastSupervisor{
		View:     v,
		Interval: 1 * time.Second,
	}
	v.Supervisor = bs
	return bs
}

// BroadcastSnapshot captures one snapshot and fans it out, timing the
// whole trip for the stats histogram.
func (v *View) BroadcastSnapshot() {
	start := time.Now()
	v.Hub.Broadcast(v.Engine.Snapshot())
	v.Stats.RecSnapTimer(time.Since(start).Seconds())
}

// Start the BroadcastSupervisor
func (b *BroadcastSupervisor) Start() {
	b.StopChan = make(chan struct{})
	b.Ticker = time.NewTicker(b.Interval)

	b.WG.Add(1)
	go func() {
		defer b.WG.Done()
		defer b.Ticker.Stop()

		for {
			select {
			case <-b.Ticker.C:
				b.View.BroadcastSnapshot()
			case <-b.StopChan:
				return
			}
		}
	}()
}

// Stop the BroadcastSupervisor, idempotent
func (b *BroadcastSupervisor) Stop() {
	if b.StopChan != nil {
		close(b.StopChan)
		b.WG.Wait()
		b.StopChan = nil
	}
}

// Restart the BroadcastSupervisor
func (b *BroadcastSupervisor) Restart() {
	b.Stop()
	b.Start()
}
