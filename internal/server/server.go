// Package server exposes the region catalog over HTTP and runs explore and
// game sessions for browser clients over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/litescript/ls-textmoc/internal/logging"
	"github.com/litescript/ls-textmoc/internal/region"
	"github.com/litescript/ls-textmoc/internal/scores"
	"github.com/litescript/ls-textmoc/internal/session"
	"github.com/litescript/ls-textmoc/internal/state"
	"github.com/litescript/ls-textmoc/internal/version"
)

// ScoreStore persists finished games.
type ScoreStore interface {
	Record(ctx context.Context, r scores.Result) (string, error)
	Top(ctx context.Context, limit int) ([]scores.Result, error)
}

// Options configures a Server.
type Options struct {
	Addr           string
	AllowedOrigins []string // empty allows any origin
	WriteTimeout   time.Duration
	TickInterval   time.Duration // countdown step, one second in production
	Mode           session.Mode
	Session        session.Config
}

// Server handles HTTP and WebSocket requests.
type Server struct {
	opts     Options
	state    *state.Manager
	store    ScoreStore
	log      *logging.Logger
	upgrader websocket.Upgrader
}

// New creates a server. store may be nil.
func New(st *state.Manager, store ScoreStore, log *logging.Logger, opts Options) *Server {
	if log == nil {
		log = logging.Discard()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	s := &Server{
		opts:  opts,
		state: st,
		store: store,
		log:   log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range s.opts.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/regions", s.handleRegions)
		r.Get("/events", s.handleEvents)
		r.Get("/scores", s.handleScores)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("%s %s %d %v [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Microsecond), middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Textmoc-Version", version.Version)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	set := s.state.Regions()
	if set == nil {
		writeError(w, http.StatusServiceUnavailable, "regions not loaded")
		return
	}

	out, err := region.ExportSet(set)
	if err != nil {
		s.log.Error("export regions: %v", err)
		writeError(w, http.StatusInternalServerError, "encode regions")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events := s.state.RecentEvents(limit)
	if events == nil {
		events = []state.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "score history disabled")
		return
	}
	limit, err := queryLimit(r, scores.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	top, err := s.store.Top(r.Context(), limit)
	if err != nil {
		s.log.Error("load scores: %v", err)
		writeError(w, http.StatusInternalServerError, "load scores")
		return
	}
	if top == nil {
		top = []scores.Result{}
	}
	writeJSON(w, http.StatusOK, top)
}
