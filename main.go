package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	Gd "github.com/maroda/geigerlive/display"
	Gb "github.com/maroda/geigerlive/obvy"
	Gp "github.com/maroda/geigerlive/plugin"
	Gs "github.com/maroda/geigerlive/server"
)

func main() {
	cfg, err := Gs.ConfigFromEnv(context.Background())
	if err != nil {
		slog.Error("Could not load configuration", slog.Any("Error", err))
		os.Exit(1)
	}

	// An on-disk config, when given, wins over the environment
	if path := os.Getenv("GEIGER_CONFIG"); path != "" {
		cfg, err = Gs.LoadConfigFileName(path)
		if err != nil {
			slog.Error("Could not load config file", slog.String("path", path), slog.Any("Error", err))
			os.Exit(1)
		}
	}

	fmt.Printf("Geiger Live initializing for ... %s\n", Gs.FillEnvVar("USER"))

	switch os.Getenv("GEIGER_OTEL") {
	case "1", "honeycomb":
		shutdown, err := Gb.InitOTelHNY()
		if err != nil {
			slog.Error("Tracing disabled", slog.Any("Error", err))
		} else {
			defer shutdown()
		}
	case "otlp":
		tp, err := Gb.InitOTelGRF()
		if err != nil {
			slog.Error("Tracing disabled", slog.Any("Error", err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	engine := Gs.NewEngine(cfg)
	view := Gd.NewView(engine)

	if cfg.Output != "" {
		output, err := Gp.OutputLookup(cfg.Output, Gp.OutputConfig{
			Path:      cfg.OutputPath,
			BatchSize: Gs.FillEnvVarInt("GEIGER_OUTPUT_BATCH", 10),
			MIDIPort:  Gs.FillEnvVarInt("GEIGER_MIDI_PORT", 0),
			MIDINote:  uint8(Gs.FillEnvVarInt("GEIGER_MIDI_NOTE", 76)),
		})
		if err != nil {
			slog.Error("Could not initialize output, continuing without",
				slog.String("output", cfg.Output), slog.Any("Error", err))
		} else {
			view.Output = output
			defer output.Close()
			slog.Info("Output adapter enabled", slog.String("output", output.Type()))
		}
	}

	view.AttachEngine()

	source, err := Gs.NewSource(cfg)
	if err != nil {
		// No hardware backend in this build: fall back to the
		// synthetic source so the app stays useful without a tube.
		slog.Warn("No hardware pulse source, using mock", slog.Any("Error", err))
		source = Gs.NewSynthSource(cfg.MockRate)
	}
	source.SetCallback(engine.RecordPulse)
	if err := source.Start(); err != nil {
		slog.Error("Could not start pulse source", slog.Any("Error", err))
		os.Exit(1)
	}
	defer source.Stop()

	if cfg.TUI {
		if err := view.StartGeigerView(cfg); err != nil {
			slog.Error("Problem running GeigerView", slog.Any("Error", err))
			os.Exit(1)
		}
		return
	}

	// Headless mode blocks in the server; drain it on a signal
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		slog.Info("Shutting down")
		source.Stop()
		if view.Supervisor != nil {
			view.Supervisor.Stop()
		}
		view.ShutdownServer()
	}()

	if err := view.StartWebNoTUI(cfg); err != nil {
		slog.Error("Problem running web server", slog.Any("Error", err))
		os.Exit(1)
	}
}
