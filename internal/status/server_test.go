package status

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyprpal/wincycler/internal/cycle"
	"github.com/hyprpal/wincycler/internal/metrics"
	"github.com/hyprpal/wincycler/internal/state"
	"github.com/hyprpal/wincycler/internal/util"
)

type nopManager struct{}

func (nopManager) Focus(context.Context, state.WindowID) error            { return nil }
func (nopManager) MoveToScratchpad(context.Context, state.WindowID) error { return nil }

func newTestCycler(collector *metrics.Collector) *cycle.Cycler {
	c := cycle.New(nopManager{}, util.NewNopLogger(), cycle.Options{Metrics: collector})
	first := state.NewWindow(1, "first", state.FloatingAutoOff, nil)
	c.Initialize(&first)
	c.OnNew(state.NewWindow(2, "second", state.FloatingAutoOff, nil))
	return c
}

func TestStateEndpoint(t *testing.T) {
	collector := metrics.NewCollector(true)
	cycler := newTestCycler(collector)
	srv := NewServer(cycler, collector, nil, "i3", false)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Backend != "i3" || len(st.Cycler.History) != 2 || st.Cycler.History[0].Title != "second" {
		t.Fatalf("unexpected payload %+v", st)
	}
	if !st.Metrics.Enabled {
		t.Fatalf("expected metrics snapshot to be enabled")
	}
}

func TestStateEndpointRedacts(t *testing.T) {
	srv := NewServer(newTestCycler(nil), nil, nil, "", false)
	srv.SetRedactTitles(true)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if strings.Contains(rec.Body.String(), "second") {
		t.Fatalf("expected titles to be redacted, got %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.NewCollector(true)
	cycler := newTestCycler(collector)
	if err := cycler.HandleCommand(context.Background(), "next"); err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	srv := NewServer(cycler, collector, nil, "", false)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `wincycler_commands_total{command="next"} 1`) {
		t.Fatalf("expected command counter in metrics output, got:\n%s", body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(newTestCycler(nil), nil, nil, "", false)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", rec.Code)
	}
}

func TestClientStateAndStream(t *testing.T) {
	cycler := newTestCycler(nil)
	srv := NewServer(cycler, nil, util.NewLoggerWithWriter(util.LevelError, io.Discard), "hyprland", false)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client, err := NewClient(ts.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := client.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Backend != "hyprland" {
		t.Fatalf("unexpected backend %q", st.Backend)
	}

	var seen []Status
	errDone := errString("done")
	err = client.Stream(ctx, func(st Status) error {
		seen = append(seen, st)
		if len(seen) == 1 {
			cycler.Start()
			return nil
		}
		return errDone
	})
	if err != errDone {
		t.Fatalf("Stream: %v", err)
	}
	if seen[0].Cycler.Session.Active || !seen[1].Cycler.Session.Active {
		t.Fatalf("expected second push to show an active session: %+v", seen)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := NewServer(newTestCycler(nil), nil, nil, "", false)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return after cancel")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
