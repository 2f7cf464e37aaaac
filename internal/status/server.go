// Package status serves a read-only HTTP view of the cycler: the MRU list,
// current focus, session state, and counters.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyprpal/wincycler/internal/cycle"
	"github.com/hyprpal/wincycler/internal/metrics"
	"github.com/hyprpal/wincycler/internal/util"
)

const shutdownTimeout = 2 * time.Second

// StateSource provides cycler snapshots and change notifications.
type StateSource interface {
	State() cycle.State
	Subscribe() (<-chan cycle.State, func())
}

// Status is the payload served by /api/state and pushed on /api/stream.
type Status struct {
	Backend string           `json:"backend,omitempty"`
	Cycler  cycle.State      `json:"cycler"`
	Metrics metrics.Snapshot `json:"metrics"`
}

// Server hosts the status API.
type Server struct {
	router   *mux.Router
	source   StateSource
	metrics  *metrics.Collector
	logger   *util.Logger
	backend  string
	upgrader websocket.Upgrader
	redact   atomic.Bool
}

// NewServer builds the router. collector may be nil.
func NewServer(source StateSource, collector *metrics.Collector, logger *util.Logger, backend string, redactTitles bool) *Server {
	if logger == nil {
		logger = util.NewNopLogger()
	}
	s := &Server{
		router:  mux.NewRouter(),
		source:  source,
		metrics: collector,
		logger:  logger,
		backend: backend,
		upgrader: websocket.Upgrader{
			CheckOrigin: sameHostOrigin,
		},
	}
	s.redact.Store(redactTitles)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.handleStream)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	if s.metrics != nil {
		registry.MustRegister(s.metrics)
	}
	s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetRedactTitles toggles title masking in served payloads.
func (s *Server) SetRedactTitles(enabled bool) {
	s.redact.Store(enabled)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Infof("status API listening on http://%s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) status(st cycle.State) Status {
	if s.redact.Load() {
		st = st.Redacted()
	}
	return Status{
		Backend: s.backend,
		Cycler:  st,
		Metrics: s.metrics.Snapshot(),
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status(s.source.State())); err != nil {
		s.logger.Warnf("encode state: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.source.Subscribe()
	defer unsubscribe()

	// Drain client frames so close messages are noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// The subscription delivers the current state first.
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(s.status(st)); err != nil {
				s.logger.Debugf("websocket write error: %v", err)
				return
			}
		}
	}
}

// sameHostOrigin accepts non-browser clients and browsers on the same host.
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}
