// Package httpapi is the operator control API: start, pause, resume and
// stop the current run, read progress, and stream run events over SSE.
// It carries no authentication; bind it to localhost.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"blastbot/internal/app"
	"blastbot/internal/eventbus"
	logx "blastbot/pkg/logx"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Controller is the slice of app.Runner the API needs.
type Controller interface {
	StartRun(ctx context.Context) (string, error)
	Pause() error
	Resume() error
	StopRun() error
	Status() app.RunStatus
	Subscribe(buffer int) (<-chan eventbus.Event, func())
}

type Server struct {
	addr string
	ctl  Controller
	log  logx.Logger
}

func New(addr string, ctl Controller, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{addr: addr, ctl: ctl, log: log}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer)

	r.Get("/healthz", s.health)

	r.Route("/api/runs", func(r chi.Router) {
		r.Post("/", s.startRun)
		r.Route("/current", func(r chi.Router) {
			r.Post("/pause", s.signal(Controller.Pause))
			r.Post("/resume", s.signal(Controller.Resume))
			r.Post("/stop", s.signal(Controller.StopRun))
			r.Get("/progress", s.progress)
			r.Get("/events", s.events)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then drains with a short grace
// period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("control api listening", logx.String("addr", s.addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return srv.Close()
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	runID, err := s.ctl.StartRun(r.Context())
	switch {
	case errors.Is(err, app.ErrRunActive):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case err != nil:
		s.log.Warn("start run rejected", logx.Err(err))
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"run_id": runID})
	}
}

// signal adapts the pause/resume/stop calls, which share one shape.
func (s *Server) signal(call func(Controller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		switch err := call(s.ctl); {
		case errors.Is(err, app.ErrNoRun):
			writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func (s *Server) progress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

// events streams run events as SSE. The subscription is live only; a
// slow client drops events rather than stalling the dispatcher.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch, cancel := s.ctl.Subscribe(16)
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			fl.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
