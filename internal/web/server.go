// Package web provides the HTTP dashboard: an HTML page, its JSON state and
// the navigation endpoints.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/vitals-dashboard/internal/dashboard"
	"github.com/sweeney/vitals-dashboard/internal/status"
	"github.com/sweeney/vitals-dashboard/internal/timeline"
)

// Navigator receives navigation commands from the page.
type Navigator interface {
	Prev(ctx context.Context) (timeline.NavResult, error)
	Next(ctx context.Context) (timeline.NavResult, error)
	SelectDate(ctx context.Context, date string) error
	SetLive(ctx context.Context, on bool) error
}

// Server serves the dashboard over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	nav        Navigator
	logger     *zap.Logger
}

// New creates a Server that reads state from tracker and sends commands to nav.
func New(addr string, tracker *status.Tracker, nav Navigator, logger *zap.Logger) *Server {
	s := &Server{tracker: tracker, nav: nav, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/api/prev", s.handlePrev)
	mux.HandleFunc("/api/next", s.handleNext)
	mux.HandleFunc("/api/live", s.handleLive)
	mux.HandleFunc("/api/date", s.handleDate)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the server's handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
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
	if err := renderHTML(w, snap); err != nil {
		s.logger.Warn("render index", zap.Error(err))
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// commandResult is the body returned by the command endpoints.
type commandResult struct {
	Result string `json:"result,omitempty"`
	Mode   string `json:"mode,omitempty"`
	Date   string `json:"date,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, s.nav.Prev)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, s.nav.Next)
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request, step func(context.Context) (timeline.NavResult, error)) {
	if !requirePost(w, r) {
		return
	}
	res, err := step(r.Context())
	if err != nil {
		s.commandFailed(w, err)
		return
	}
	writeResult(w, http.StatusOK, commandResult{Result: string(res)})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	on, err := strconv.ParseBool(r.FormValue("on"))
	if err != nil {
		writeResult(w, http.StatusBadRequest, commandResult{Error: "on must be true or false"})
		return
	}
	if err := s.nav.SetLive(r.Context(), on); err != nil {
		s.commandFailed(w, err)
		return
	}
	mode := timeline.ModeHistorical
	if on {
		mode = timeline.ModeLive
	}
	writeResult(w, http.StatusOK, commandResult{Mode: string(mode)})
}

func (s *Server) handleDate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	date := r.FormValue("date")
	if err := s.nav.SelectDate(r.Context(), date); err != nil {
		s.commandFailed(w, err)
		return
	}
	writeResult(w, http.StatusAccepted, commandResult{Date: date})
}

func (s *Server) commandFailed(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dashboard.ErrInvalidDate):
		writeResult(w, http.StatusBadRequest, commandResult{Error: err.Error()})
	case errors.Is(err, dashboard.ErrStopped):
		writeResult(w, http.StatusServiceUnavailable, commandResult{Error: err.Error()})
	default:
		s.logger.Warn("dashboard command failed", zap.Error(err))
		writeResult(w, http.StatusInternalServerError, commandResult{Error: err.Error()})
	}
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, code int, res commandResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(res)
}
