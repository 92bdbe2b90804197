package geiger

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/mux"
	Gb "github.com/maroda/geigerlive/obvy"
	Gp "github.com/maroda/geigerlive/plugin"
	Gs "github.com/maroda/geigerlive/server"
	Gt "github.com/maroda/geigerlive/types"
)

// View is the distribution layer wrapped around one Engine.
// It fans pulses and snapshots out to websocket observers, serves the
// JSON API, and owns the optional TUI screen and output plugin.
type View struct {
	Engine     *Gs.Engine        // the acquisition engine, sole state owner
	Hub        *Hub              // connected websocket observers
	Stats      *Gb.StatsInternal // internal status for prometheus
	Output     Gp.OutputAdapter  // optional pulse journal/clicker
	Supervisor *BroadcastSupervisor
	server     *http.Server
	Screen     tcell.Screen // nil in headless web mode
}

// NewView wires a View around an Engine with a fresh hub and registry.
func NewView(e *Gs.Engine) *View {
	v := &View{
		Engine: e,
		Hub:    NewHub(),
		Stats:  Gb.NewStatsInternal(),
	}
	return v
}

// AttachEngine registers the per-pulse fan-out: stats, the immediate
// websocket notification, and the optional output adapter. It runs
// after each pulse commits, outside the engine lock.
func (v *View) AttachEngine() {
	v.Engine.OnPulse(func(ev Gt.PulseEvent) {
		v.Stats.RecPulse()
		v.Hub.Broadcast(PulseMsg{
			Type: "pulse",
			TS:   float64(ev.Timestamp.UnixNano()) / 1e9,
		})
		if v.Output != nil {
			if err := v.Output.WritePulse(&ev); err != nil {
				slog.Error("Output adapter failed to write pulse",
					slog.String("output", v.Output.Type()),
					slog.Any("error", err))
			}
		}
	})
}

// SetupMux handles all data serving:
// - Prometheus metric endpoint
// - Websocket feed for live observers
// - Version for programmatic use
// - Snapshot and Reset for the UI and scripting
func (v *View) SetupMux() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", v.Stats.Handler())
	r.HandleFunc("/ws", v.WebsocketHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(v.StatsMiddleware)
	api.HandleFunc("/version", v.VersionHandler).Methods(http.MethodGet)
	api.HandleFunc("/snapshot", v.SnapshotHandler).Methods(http.MethodGet)
	api.HandleFunc("/reset", v.ResetHandler).Methods(http.MethodPost)

	// Static files for the chart frontend
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("./web/")))

	return r
}

var Version = "dev"

func (v *View) VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": Version})
}

// SnapshotHandler serves the same value object the websocket pushes
func (v *View) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v.Engine.Snapshot())
}

// ResetHandler clears the acquisition state and tells every observer
func (v *View) ResetHandler(w http.ResponseWriter, r *http.Request) {
	v.Engine.Reset()
	v.Stats.RecReset()
	v.Hub.Broadcast(AckMsg{Type: "reset_ack"})
	slog.Info("Acquisition state reset via API")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// RespWriter is a wrapper with StatsMiddleware, used for Prometheus
type RespWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// Write is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) Write(b []byte) (int, error) {
	return w.ResponseWriter.Write(b)
}

func (v *View) StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &RespWriter{
			ResponseWriter: w,
			Status:         200,
		}
		next.ServeHTTP(wrapped, r)

		v.Stats.RecWWW(strconv.Itoa(wrapped.Status), r.Method)
	})
}
