package types

/*

	These are the "immutable" core types of Geiger Live,
	provided for cross-package use (e.g. Plugins) and testing.

	There are no functions defined here.
	Struct constructors are housed in their own packages.

*/

import "time"

// PulseEvent is one detected ionizing event.
// Seq is the position of the pulse in the count since the last reset,
// which keeps every event unique even when two arrive in the same nanosecond.
type PulseEvent struct {
	Timestamp time.Time // arrival time, carries the monotonic clock reading
	Delta     float64   // seconds since the previous pulse, 0 for the first
	Seq       int64     // 1-based count position since the last reset
}

// Snapshot is an atomically captured, self-consistent copy of the
// acquisition statistics at one instant. It doubles as the wire shape
// pushed to websocket observers and served on /api/snapshot.
type Snapshot struct {
	Type        string    `json:"type"`
	Total       int64     `json:"total"`
	Elapsed     float64   `json:"elapsed"`
	LastAge     *float64  `json:"last_age"` // nil until the first pulse
	PerSecond   []int64   `json:"per_second"`
	RunningMean []float64 `json:"running_mean"`
	Deltas      []float64 `json:"deltas"`
	RateBq      float64   `json:"rate_bq"`
	RateErr     float64   `json:"rate_err"`
}
