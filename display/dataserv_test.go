package geiger_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	Gd "github.com/maroda/geigerlive/display"
)

func TestSetupMux(t *testing.T) {
	view := makeTestView(t)
	srv := httptest.NewServer(view.SetupMux())
	defer srv.Close()

	t.Run("Version endpoint reports the build", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/version")
		assertError(t, err, nil)
		defer resp.Body.Close()
		assertStatus(t, resp.StatusCode, http.StatusOK)

		var body map[string]string
		err = json.NewDecoder(resp.Body).Decode(&body)
		assertError(t, err, nil)
		assertString(t, body["version"], Gd.Version)
	})

	t.Run("Metrics endpoint serves the private registry", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		assertError(t, err, nil)
		defer resp.Body.Close()
		assertStatus(t, resp.StatusCode, http.StatusOK)
	})

	t.Run("Websocket endpoint rejects plain GET", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/ws")
		assertError(t, err, nil)
		defer resp.Body.Close()
		assertStatus(t, resp.StatusCode, http.StatusBadRequest)
	})

	t.Run("Reset rejects GET", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/reset")
		assertError(t, err, nil)
		defer resp.Body.Close()
		assertStatus(t, resp.StatusCode, http.StatusMethodNotAllowed)
	})
}

func TestSnapshotHandler(t *testing.T) {
	view := makeTestView(t)
	srv := httptest.NewServer(view.SetupMux())
	defer srv.Close()

	view.Engine.RecordPulse(time.Now())
	view.Engine.RecordPulse(time.Now())

	resp, err := http.Get(srv.URL + "/api/snapshot")
	assertError(t, err, nil)
	defer resp.Body.Close()
	assertStatus(t, resp.StatusCode, http.StatusOK)

	var snap map[string]any
	err = json.NewDecoder(resp.Body).Decode(&snap)
	assertError(t, err, nil)

	assertString(t, snap["type"].(string), "snapshot")
	if got := snap["total"].(float64); got != 2 {
		t.Errorf("got total %v, want 2", got)
	}
	for _, field := range []string{"elapsed", "per_second", "running_mean", "deltas", "rate_bq", "rate_err"} {
		if _, ok := snap[field]; !ok {
			t.Errorf("snapshot missing field %q", field)
		}
	}
}

func TestResetHandler(t *testing.T) {
	view := makeTestView(t)
	srv := httptest.NewServer(view.SetupMux())
	defer srv.Close()

	for range 5 {
		view.Engine.RecordPulse(time.Now())
	}

	resp, err := http.Post(srv.URL+"/api/reset", "application/json", nil)
	assertError(t, err, nil)
	defer resp.Body.Close()
	assertStatus(t, resp.StatusCode, http.StatusOK)

	var body map[string]bool
	err = json.NewDecoder(resp.Body).Decode(&body)
	assertError(t, err, nil)
	if !body["ok"] {
		t.Error("reset should answer ok: true")
	}

	snap := view.Engine.Snapshot()
	if snap.Total != 0 {
		t.Errorf("engine should be empty after reset, got total %d", snap.Total)
	}
}

func TestStatsMiddleware(t *testing.T) {
	view := makeTestView(t)
	srv := httptest.NewServer(view.SetupMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/version")
	assertError(t, err, nil)
	resp.Body.Close()

	// the request above shows up in the counter vector
	mresp, err := http.Get(srv.URL + "/metrics")
	assertError(t, err, nil)
	defer mresp.Body.Close()

	body, err := io.ReadAll(mresp.Body)
	assertError(t, err, nil)
	assertStringContains(t, string(body), "geiger_http_requests_total")
}

func assertStringContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("expected to find %q in response", want)
	}
}
