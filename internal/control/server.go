// Package control exposes a running session to the local UI: an HTTP API for
// session control and status, Prometheus metrics, and a websocket carrying
// overlay notifications out and controller input in.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Alia5/viistream/apitypes"
	"github.com/Alia5/viistream/internal/metrics"
	"github.com/Alia5/viistream/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 5 * time.Second

// Config holds the control server settings.
type Config struct {
	Listen string `help:"Control server listen address; empty disables it" default:"127.0.0.1:3243" env:"VIISTREAM_CONTROL_LISTEN"`
}

// Server serves the control API of one session.
type Server struct {
	sess    *session.Session
	hub     *Hub
	metrics *metrics.Metrics
	logger  *slog.Logger
	router  chi.Router
}

// NewServer builds the router. m may be nil, which disables /metrics.
func NewServer(sess *session.Session, hub *Hub, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		sess:    sess,
		hub:     hub,
		metrics: m,
		logger:  logger.With("component", "control"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	r.Get("/status", s.status)
	r.Get("/ws", hub.ServeHTTP)
	r.Route("/session", func(r chi.Router) {
		r.Post("/interrupt", s.interrupt)
		r.Post("/vmouse/toggle", s.toggleVMouse)
		r.Post("/input/start", s.startInput)
		r.Post("/input/stop", s.stopInput)
		r.Post("/overlay", s.overlay)
		r.Post("/fullscreen", s.fullscreen)
		r.Post("/hdr", s.hdr)
		r.Post("/display", s.display)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("control server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func requestLogger(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("duration_ms", int(time.Since(start).Milliseconds())),
				slog.Int("size", ww.BytesWritten()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apitypes.ApiError{Status: status, Title: http.StatusText(status), Detail: detail})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Status())
}

func (s *Server) interrupt(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reason := session.ReasonUser
	if v := q.Get("reason"); v != "" {
		parsed, err := session.ParseReason(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, err.Error())
			return
		}
		reason = parsed
	}
	quit := false
	if v := q.Get("quit"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "quit must be a boolean")
			return
		}
		quit = b
	}
	s.logger.Info("interrupt requested", "reason", reason, "quit", quit)
	s.sess.Interrupt(quit, reason)
	writeJSON(w, http.StatusOK, s.sess.Status())
}

func (s *Server) toggleVMouse(w http.ResponseWriter, r *http.Request) {
	if !s.sess.Config().VirtualMouse {
		writeProblem(w, http.StatusConflict, "virtual mouse is disabled")
		return
	}
	active := s.sess.ToggleVMouse()
	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (s *Server) startInput(w http.ResponseWriter, r *http.Request) {
	s.sess.StartInput()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stopInput(w http.ResponseWriter, r *http.Request) {
	s.sess.StopInput()
	w.WriteHeader(http.StatusNoContent)
}

type overlayRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (s *Server) overlay(w http.ResponseWriter, r *http.Request) {
	var req overlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.W <= 0 || req.H <= 0 {
		writeProblem(w, http.StatusBadRequest, "w and h must be positive")
		return
	}
	s.sess.EnterOverlay(req.X, req.Y, req.W, req.H)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fullscreen(w http.ResponseWriter, r *http.Request) {
	s.sess.EnterFullscreen()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) hdr(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.sess.SetHDR(req.Enabled)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) display(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		writeProblem(w, http.StatusBadRequest, "width and height must be positive")
		return
	}
	s.sess.SetDisplaySize(req.Width, req.Height)
	w.WriteHeader(http.StatusNoContent)
}
