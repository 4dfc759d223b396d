package rest

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/osa030/talitunes/internal/infra/metrics"
)

// NewRouter registers every route on a new router.
// rec may be nil, in which case /metrics is not served.
func NewRouter(h *Handlers, rec *metrics.Recorder) *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)
	if rec != nil {
		r.Use(metricsMiddleware(rec))
		r.Handle("/metrics", promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{})).Methods("GET")
	}

	r.HandleFunc("/healthz", h.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", h.Status).Methods("GET")
	api.HandleFunc("/playlist", h.GetPlaylist).Methods("GET")
	api.HandleFunc("/playlist", h.AddToPlaylist).Methods("POST")
	api.HandleFunc("/playlist", h.ClearPlaylist).Methods("DELETE")
	api.HandleFunc("/play/{index:-?[0-9]+}", h.Play).Methods("POST")
	api.HandleFunc("/toggle", h.Toggle).Methods("POST")
	api.HandleFunc("/stop", h.Stop).Methods("POST")
	api.HandleFunc("/next", h.Next).Methods("POST")
	api.HandleFunc("/prev", h.Prev).Methods("POST")
	api.HandleFunc("/refresh", h.Refresh).Methods("POST")
	api.HandleFunc("/volume", h.Volume).Methods("POST", "PUT")
	api.HandleFunc("/seek", h.Seek).Methods("POST")

	return r
}

// Server serves the API over HTTP/1.1 and cleartext HTTP/2.
type Server struct {
	server   *http.Server
	listener net.Listener
}

// NewServer creates a server for addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           h2c.NewHandler(handler, &http2.Server{}),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Listen binds the listening socket so that address errors surface before serving.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.server.Addr)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Serve serves until Shutdown. It listens first if Listen was not called.
func (s *Server) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	zlog.Info().Msgf("rest: serving control API: addr=%s", s.Addr())
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server error")
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "failed to shutdown server")
	}
	zlog.Info().Msg("rest: server stopped")
	return nil
}
