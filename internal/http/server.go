// Package http aloja el servidor y la superficie HTTP del servicio.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/handshake/internal/observability/logger"
)

// Server envuelve http.Server con timeouts razonables y apagado limpio.
type Server struct {
	srv *http.Server
}

// NewServer crea el servidor sobre el handler dado.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start bloquea sirviendo requests hasta que el servidor se apague.
func (s *Server) Start() error {
	logger.L().Info("http server listening", logger.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown apaga el servidor drenando las conexiones activas.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
