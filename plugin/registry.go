package plugin

import "fmt"

// OutputConfig carries the knobs an output constructor might need.
type OutputConfig struct {
	Path      string // on-disk location for storage-backed outputs
	BatchSize int
	MIDIPort  int
	MIDINote  uint8
}

// Outputs is a global map of OutputAdapter constructors.
var Outputs = map[string]func(cfg OutputConfig) (OutputAdapter, error){
	"badger": func(cfg OutputConfig) (OutputAdapter, error) {
		bo, err := NewBadgerOutput(cfg.Path, cfg.BatchSize)
		if err != nil {
			return nil, err
		}
		return bo, nil
	},
	"midi": func(cfg OutputConfig) (OutputAdapter, error) {
		mo, err := NewMIDIOutput(cfg.MIDIPort, cfg.MIDINote)
		if err != nil {
			return nil, err
		}
		return mo, nil
	},
}

func OutputLookup(name string, cfg OutputConfig) (OutputAdapter, error) {
	factory, ok := Outputs[name]
	if !ok {
		return nil, fmt.Errorf("unknown output: %s", name)
	}
	return factory(cfg)
}
