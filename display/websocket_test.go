package geiger_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	Gd "github.com/maroda/geigerlive/display"
	Gs "github.com/maroda/geigerlive/server"
)

func TestWebsocketFeed(t *testing.T) {
	view := makeTestView(t)
	srv := httptest.NewServer(view.SetupMux())
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	t.Run("First message is a full snapshot", func(t *testing.T) {
		msg := readWS(t, conn)
		assertString(t, msg["type"].(string), "snapshot")

		// empty engine serializes empty sequences, not null
		if msg["per_second"] == nil {
			t.Error("per_second should be [], not null")
		}
		if msg["last_age"] != nil {
			t.Error("last_age should be null before any pulse")
		}
	})

	// the handler adds the client to the hub right after the snapshot
	time.Sleep(100 * time.Millisecond)

	t.Run("Observer counted in the hub", func(t *testing.T) {
		assertInt(t, view.Hub.Count(), 1)
	})

	t.Run("Each pulse fans out immediately", func(t *testing.T) {
		view.Engine.RecordPulse(time.Now())

		msg := readWS(t, conn)
		assertString(t, msg["type"].(string), "pulse")
		if ts, ok := msg["ts"].(float64); !ok || ts <= 0 {
			t.Errorf("pulse message should carry a unix timestamp, got %v", msg["ts"])
		}
	})

	t.Run("Reset is acknowledged to every observer", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/reset", "application/json", nil)
		assertError(t, err, nil)
		resp.Body.Close()
		assertStatus(t, resp.StatusCode, http.StatusOK)

		msg := readWS(t, conn)
		assertString(t, msg["type"].(string), "reset_ack")
	})
}

func TestHub_DropsDeadClients(t *testing.T) {
	view := makeTestView(t)
	srv := httptest.NewServer(view.SetupMux())
	defer srv.Close()

	conn := dialWS(t, srv)
	readWS(t, conn) // initial snapshot
	time.Sleep(100 * time.Millisecond)
	assertInt(t, view.Hub.Count(), 1)

	conn.Close()
	time.Sleep(100 * time.Millisecond)

	// the read loop notices the close and removes the client
	assertInt(t, view.Hub.Count(), 0)
}

func TestHub_BroadcastToMany(t *testing.T) {
	view := makeTestView(t)
	srv := httptest.NewServer(view.SetupMux())
	defer srv.Close()

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dialWS(t, srv)
		defer conns[i].Close()
		readWS(t, conns[i]) // initial snapshot
	}
	time.Sleep(100 * time.Millisecond)
	assertInt(t, view.Hub.Count(), 3)

	view.Engine.RecordPulse(time.Now())

	for i, conn := range conns {
		msg := readWS(t, conn)
		if msg["type"] != "pulse" {
			t.Errorf("observer %d expected pulse, got %v", i, msg["type"])
		}
	}
}

// Helpers //

func makeTestView(t *testing.T) *Gd.View {
	t.Helper()
	engine := Gs.NewEngine(Gs.Config{MaxDeltas: 100, MaxSeries: 60})
	view := Gd.NewView(engine)
	view.AttachEngine()
	return view
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("could not dial websocket: %v", err)
	}
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("could not read websocket message: %v", err)
	}
	return msg
}

func assertError(t testing.TB, got, want error) {
	t.Helper()
	if got != want {
		t.Errorf("got error %v, want %v", got, want)
	}
}

func assertStatus(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("got status %d, want %d", got, want)
	}
}

func assertInt(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func assertString(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
