//go:build nomidi

package plugin

import (
	"fmt"
	"time"

	Gt "github.com/maroda/geigerlive/types"
)

type MIDIOutput struct{}

func NewMIDIOutput(port int, note uint8) (*MIDIOutput, error) {
	return nil, fmt.Errorf("MIDI support not compiled in this build")
}

func (m *MIDIOutput) WritePulse(pulse *Gt.PulseEvent) error {
	return fmt.Errorf("MIDI support not compiled in this build")
}

func (m *MIDIOutput) WriteBatch(pulses []*Gt.PulseEvent) error {
	return fmt.Errorf("MIDI support not compiled in this build")
}

func (m *MIDIOutput) QueryRange(start, end time.Time) ([]*Gt.PulseEvent, error) {
	return nil, fmt.Errorf("MIDI support not compiled in this build")
}

func (m *MIDIOutput) Flush() error { return nil }
func (m *MIDIOutput) Close() error { return nil }
func (m *MIDIOutput) Type() string { return "midi-disabled" }
