package geiger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gdamore/tcell/v2"
	Gs "github.com/maroda/geigerlive/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const screenGutter = 2

// CountToRune maps a one-second pulse count to a display bar.
// The scale is tuned for background-to-hot tube counts.
func CountToRune(c int64) rune {
	switch {
	case c <= 0:
		return ' '
	case c < 2:
		return '▁'
	case c < 3:
		return '▂'
	case c < 5:
		return '▃'
	case c < 8:
		return '▄'
	case c < 13:
		return '▅'
	case c < 21:
		return '▆'
	case c < 34:
		return '▇'
	default:
		return '█'
	}
}

// drawText writes a string left to right at the given coordinates
func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	col := x
	for _, r := range text {
		s.SetContent(col, y, r, nil, style)
		col++
	}
}

// DrawDashboard paints the current snapshot: the headline numbers and
// the per-second sparkline, newest sample at the right edge.
func (v *View) DrawDashboard() {
	if v.Screen == nil {
		return
	}

	snap := v.Engine.Snapshot()
	width, _ := v.Screen.Size()

	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	textStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	barStyle := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	dimStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)

	v.Screen.Clear()
	drawText(v.Screen, screenGutter, 1, titleStyle, "GEIGER LIVE")

	lastAge := "-"
	if snap.LastAge != nil {
		lastAge = fmt.Sprintf("%.1fs", *snap.LastAge)
	}
	drawText(v.Screen, screenGutter, 3, textStyle,
		fmt.Sprintf("total %d   elapsed %.0fs   last pulse %s", snap.Total, snap.Elapsed, lastAge))
	drawText(v.Screen, screenGutter, 4, textStyle,
		fmt.Sprintf("activity %.2f ± %.2f Bq", snap.RateBq, snap.RateErr))

	// Sparkline of the newest counts that fit across the terminal
	cols := width - 2*screenGutter
	if cols < 1 {
		cols = 1
	}
	start := len(snap.PerSecond) - cols
	if start < 0 {
		start = 0
	}
	x := screenGutter
	for _, c := range snap.PerSecond[start:] {
		v.Screen.SetContent(x, 6, CountToRune(c), nil, barStyle)
		x++
	}

	drawText(v.Screen, screenGutter, 8, dimStyle, "r = reset   q/ESC = quit")
	v.Screen.Show()
}

// ResizeScreen redraws the dashboard after terminal changes
func (v *View) ResizeScreen() {
	v.Screen.Sync()
	v.DrawDashboard()
}

// run redraws once a second until the screen goes away
func (v *View) run(stop chan struct{}) {
	// Panic recovery and logging
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in run loop", slog.Any("panic", r))
			slog.Error("Recovered from panic", slog.String("stack", string(debug.Stack())))
		}
	}()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			v.DrawDashboard()
		case <-stop:
			return
		}
	}
}

// handleKeyboardEvent blocks on the tcell event loop until quit
func (v *View) handleKeyboardEvent() {
	for {
		ev := v.Screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventResize:
			v.ResizeScreen()
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape || ev.Rune() == 'q':
				return
			case ev.Key() == tcell.KeyCtrlL:
				v.Screen.Sync()
			case ev.Rune() == 'r' || ev.Rune() == 'R':
				v.Engine.Reset()
				v.Stats.RecReset()
				v.Hub.Broadcast(AckMsg{Type: "reset_ack"})
				v.DrawDashboard()
			}
		}
	}
}

// StartServer runs the data endpoint in the background.
// The whole router is wrapped for OTel tracing.
func (v *View) StartServer(addr string) {
	v.server = &http.Server{
		Addr:    addr,
		Handler: otelhttp.NewHandler(v.SetupMux(), "geigerlive-http"),
	}

	go func() {
		slog.Info("Starting Geiger Live data endpoint...", slog.String("Addr", addr))
		if err := v.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not start data endpoint", slog.Any("Error", err))
		}
	}()
}

// ShutdownServer drains the listener; safe when no server was started
func (v *View) ShutdownServer() {
	if v.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := v.server.Shutdown(ctx); err != nil {
		v.server.Close()
	}
}

// StartGeigerView runs the terminal dashboard alongside the data
// endpoint. It blocks until the operator quits.
func (v *View) StartGeigerView(cfg Gs.Config) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		slog.Error("Could not get new screen", slog.Any("Error", err))
		return err
	}
	if err := screen.Init(); err != nil {
		slog.Error("Could not initialize screen", slog.Any("Error", err))
		return err
	}

	defStyle := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorGreen)
	screen.SetStyle(defStyle)
	v.Screen = screen

	v.DrawDashboard()
	v.NewBroadcastSupervisor().Start()
	v.StartServer(cfg.Addr)

	stop := make(chan struct{})
	go v.run(stop)

	v.handleKeyboardEvent()

	close(stop)
	v.Supervisor.Stop()
	v.ShutdownServer()
	screen.Fini()

	return nil
}

// StartWebNoTUI serves observers headless; it blocks until the server
// goes down.
func (v *View) StartWebNoTUI(cfg Gs.Config) error {
	v.NewBroadcastSupervisor().Start()

	v.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: otelhttp.NewHandler(v.SetupMux(), "geigerlive-http"),
	}

	slog.Info("Starting Geiger Live web server...", slog.String("Addr", cfg.Addr))
	if err := v.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Could not start data endpoint", slog.Any("Error", err))
		return err
	}

	return nil
}
