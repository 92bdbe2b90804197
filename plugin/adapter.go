package plugin

/*

	The Adapter sits aside /geigerlive/
	Contains core interfaces for Plugin

*/

import (
	"time"

	Gt "github.com/maroda/geigerlive/types"
)

// OutputAdapter defines a place for pulse data to go,
// pulse-by-pulse or in batches if supported by the output type.
// Outputs are write-only observers: nothing is ever read back into
// the acquisition engine.
type OutputAdapter interface {
	WritePulse(pulse *Gt.PulseEvent) error                     // Write singleton pulse data
	WriteBatch(pulses []*Gt.PulseEvent) error                  // Write batches of pulses
	QueryRange(start, end time.Time) ([]*Gt.PulseEvent, error) // Time range query tool
	Flush() error                                              // Flush any buffered data
	Close() error                                              // Close the adapter and release resources
	Type() string                                              // ID for output
}
