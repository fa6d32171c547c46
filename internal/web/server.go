// Package web provides an HTTP status server for the adaptive-tx daemon.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/sweeney/adaptive-tx/internal/logic"
	"github.com/sweeney/adaptive-tx/internal/status"
)

// maxConfigBody bounds POST /config request bodies.
const maxConfigBody = 4096

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	updates    chan<- logic.Settings
}

// New creates a Server that reads state from the given tracker. Settings
// accepted by POST /config are handed to updates; a nil channel disables
// the endpoint.
func New(addr string, tracker *status.Tracker, updates chan<- logic.Settings) *Server {
	s := &Server{tracker: tracker, updates: updates}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/config", s.handleConfig)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// ConfigRequest is the body of POST /config. Omitted fields keep their
// current value; periods must be given as a complete set.
type ConfigRequest struct {
	Periods    *PeriodsRequest `json:"periods_ms,omitempty"`
	High       *float64        `json:"high,omitempty"`
	Mid        *float64        `json:"mid,omitempty"`
	Hysteresis *float64        `json:"hysteresis,omitempty"`
}

// PeriodsRequest carries per-level transmit periods in milliseconds.
type PeriodsRequest struct {
	High   uint32 `json:"high"`
	Medium uint32 `json:"medium"`
	Low    uint32 `json:"low"`
}

// Settings converts the request to controller settings.
func (c ConfigRequest) Settings() (logic.Settings, error) {
	var out logic.Settings
	if c.Periods != nil {
		p := *c.Periods
		if p.High == 0 || p.Medium == 0 || p.Low == 0 {
			return out, fmt.Errorf("periods_ms needs high, medium and low")
		}
		out.Periods = &logic.Periods{High: p.High, Medium: p.Medium, Low: p.Low}
	}
	out.HighThreshold = c.High
	out.MidThreshold = c.Mid
	out.Hysteresis = c.Hysteresis
	if out.Empty() {
		return out, fmt.Errorf("no settings given")
	}
	return out, nil
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.updates == nil {
		http.Error(w, "runtime configuration disabled", http.StatusNotFound)
		return
	}

	var req ConfigRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConfigBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	settings, err := req.Settings()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	select {
	case s.updates <- settings:
		logrus.Infof("web: config update queued from %s", r.RemoteAddr)
		w.WriteHeader(http.StatusAccepted)
	default:
		http.Error(w, "update already pending", http.StatusServiceUnavailable)
	}
}
