package geiger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/sethvargo/go-envconfig"
)

// Config carries the runtime tuning for one detector. Every knob can
// come from the environment or from an on-disk JSON file; a file named
// by GEIGER_CONFIG replaces the env-derived Config wholesale, so an
// operator-pinned file always describes the whole runtime.
type Config struct {
	Mock       bool    `json:"mock" env:"GEIGER_MOCK"`
	MockRate   float64 `json:"mock_rate" env:"GEIGER_MOCK_RATE,default=5.0"`
	MaxDeltas  int     `json:"max_deltas" env:"GEIGER_MAX_DELTAS,default=2000"`
	MaxSeries  int     `json:"max_series" env:"GEIGER_MAX_SERIES,default=3600"`
	Verbose    bool    `json:"verbose" env:"GEIGER_VERBOSE"`
	Addr       string  `json:"addr" env:"GEIGER_ADDR,default=:8090"`
	TUI        bool    `json:"tui" env:"GEIGER_TUI"`
	Output     string  `json:"output" env:"GEIGER_OUTPUT"`      // "", "badger", "midi"
	OutputPath string  `json:"output_path" env:"GEIGER_OUTPUT_PATH,default=./geiger_db"`
}

// ConfigFromEnv fills a Config from GEIGER_* environment variables,
// applying defaults for anything unset.
func ConfigFromEnv(ctx context.Context) (Config, error) {
	var c Config
	if err := envconfig.Process(ctx, &c); err != nil {
		slog.Error("Could not read environment config", slog.Any("Error", err))
		return c, err
	}
	return c, nil
}

// LoadConfigFileName pulls a given filename config off local disk
// Validation is performed on the file before opening
func LoadConfigFileName(filename string) (Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	// validation
	err = validateLoad(file)
	if err != nil {
		slog.Error("Validation failed", slog.Any("Error", err))
		return Config{}, err
	}

	return LoadConfig(file)
}

func validateLoad(file *os.File) error {
	// validate file
	info, err := file.Stat()
	if err != nil {
		slog.Error("could not stat file")
		return err
	}

	// validate size
	if info.Size() == 0 {
		slog.Error("file is empty")
		return errors.New("file is empty")
	}

	return nil
}

func LoadConfig(file *os.File) (Config, error) {
	// open file
	cf, err := os.Open(file.Name())
	if err != nil {
		slog.Error("could not open file")
		return Config{}, err
	}
	defer cf.Close()

	// decode json
	var config Config
	decoder := json.NewDecoder(cf)
	if err := decoder.Decode(&config); err != nil {
		slog.Error("could not decode file")
		return Config{}, err
	}

	return config, nil
}
