// Package server exposes the timer workflows over HTTP and the overlay
// websocket.
package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"overlay-widgets/internal/api"
	"overlay-widgets/internal/config"
)

// TimerStream upgrades a request into a live overlay connection
type TimerStream interface {
	ServeTimer(w http.ResponseWriter, r *http.Request, timerID string) error
}

// Server routes HTTP requests to the business API
type Server struct {
	api    api.BusinessAPI
	stream TimerStream
	config config.ServerConfig
	router *mux.Router
}

// New creates a server. stream may be nil, in which case the websocket route
// is not registered.
func New(businessAPI api.BusinessAPI, stream TimerStream, cfg config.ServerConfig) *Server {
	s := &Server{
		api:    businessAPI,
		stream: stream,
		config: cfg,
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(requestLogger)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	timers := r.PathPrefix("/api/timers").Subrouter()
	timers.HandleFunc("", s.handleListTimers).Methods(http.MethodGet)
	timers.HandleFunc("", s.handleCreateTimer).Methods(http.MethodPost)
	timers.HandleFunc("/{id}", s.handleGetTimer).Methods(http.MethodGet)
	timers.HandleFunc("/{id}", s.handleDeleteTimer).Methods(http.MethodDelete)
	timers.HandleFunc("/{id}/settings", s.handleConfigureTimer).Methods(http.MethodPut)
	timers.HandleFunc("/{id}/pause", s.control(s.api.PauseTimer)).Methods(http.MethodPost)
	timers.HandleFunc("/{id}/resume", s.control(s.api.ResumeTimer)).Methods(http.MethodPost)
	timers.HandleFunc("/{id}/skip", s.control(s.api.SkipPhase)).Methods(http.MethodPost)
	timers.HandleFunc("/{id}/reset", s.control(s.api.ResetTimer)).Methods(http.MethodPost)
	timers.HandleFunc("/{id}/adjust", s.handleAdjustTimer).Methods(http.MethodPost)

	if s.stream != nil {
		r.HandleFunc("/ws/timers/{id}", s.handleTimerStream).Methods(http.MethodGet)
	}
}

// Handler returns the router wrapped with CORS and cleartext HTTP/2
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})
	return h2c.NewHandler(c.Handler(s.router), &http2.Server{})
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.config.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	log.Info().Msg("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
