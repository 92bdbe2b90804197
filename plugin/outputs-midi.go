//go:build !nomidi

package plugin

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	Gt "github.com/maroda/geigerlive/types"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// clickLength is how long one geiger click note rings
const clickLength = 30 * time.Millisecond

// MIDIOutput turns every pulse into a short note, the audible click
// of the counter. Each click is a fire-and-forget goroutine so the
// pulse path never waits on the MIDI driver.
type MIDIOutput struct {
	Port     drivers.Out
	Send     func(msg midi.Message) error
	Channel  uint8
	Note     uint8
	Velocity uint8
	WG       sync.WaitGroup
}

func NewMIDIOutput(port int, note uint8) (*MIDIOutput, error) {
	out, err := midi.OutPort(port)
	if err != nil {
		slog.Error("Error opening MIDI port", slog.Int("port", port))
		return nil, fmt.Errorf("error opening MIDI port: %q", err)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		slog.Error("Error sending to MIDI port", slog.Int("port", port))
		return nil, fmt.Errorf("error sending to MIDI port: %q", err)
	}

	return &MIDIOutput{
		Port:     out,
		Send:     send,
		Channel:  0,
		Note:     note,
		Velocity: 100,
	}, nil
}

func (mo *MIDIOutput) SendNoteOnMIDI(midic, midin, midiv uint8) error {
	return mo.Send(midi.NoteOn(midic, midin, midiv))
}

func (mo *MIDIOutput) SendNoteOffMIDI(midic, midin uint8) error {
	return mo.Send(midi.NoteOff(midic, midin))
}

func (mo *MIDIOutput) WritePulse(pulse *Gt.PulseEvent) error {
	mo.WG.Add(1)
	go func() {
		defer mo.WG.Done()
		if err := mo.SendNoteOnMIDI(mo.Channel, mo.Note, mo.Velocity); err != nil {
			slog.Error("NoteOn event failed")
		}
		time.Sleep(clickLength)
		if err := mo.SendNoteOffMIDI(mo.Channel, mo.Note); err != nil {
			slog.Error("NoteOff event failed, attempting Flush")
			mo.Flush()
		}
	}()

	return nil
}

func (mo *MIDIOutput) WriteBatch(pulses []*Gt.PulseEvent) error {
	for _, p := range pulses {
		if err := mo.WritePulse(p); err != nil {
			return err
		}
	}
	return nil
}

// QueryRange exists to satisfy OutputAdapter, the clicker keeps nothing
func (mo *MIDIOutput) QueryRange(start, end time.Time) ([]*Gt.PulseEvent, error) {
	return nil, fmt.Errorf("MIDI output does not store pulses")
}

func (mo *MIDIOutput) Flush() error {
	return mo.Send(midi.ControlChange(0, midi.AllNotesOff, midi.Off))
}

func (mo *MIDIOutput) Close() error {
	mo.WG.Wait()

	if mo.Port != nil {
		mo.Port.Close()
		midi.CloseDriver()
	}
	return nil
}

func (mo *MIDIOutput) Type() string { return "MIDI" }
