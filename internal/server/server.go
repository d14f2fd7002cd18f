package server

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/farm-sync/internal/config"
	"github.com/MKhiriev/farm-sync/internal/logger"
)

type server struct {
	httpServer *httpServer
	onShutdown func()
	logger     *logger.Logger
}

// NewServer wires the observability endpoint. onShutdown runs after the HTTP
// server stopped accepting requests and before RunServer returns; the caller
// uses it to stop workers and flush engine state. It may be nil.
func NewServer(handler http.Handler, cfg config.ClientMetrics, onShutdown func(), logger *logger.Logger) (Server, error) {
	logger.Info().Msg("creating observability server...")

	if cfg.HTTPAddress == "" {
		return nil, errNoListenAddress
	}

	return &server{
		httpServer: newHTTPServer(handler, cfg.HTTPAddress, logger),
		onShutdown: onShutdown,
		logger:     logger,
	}, nil
}

func (s *server) RunServer() {
	idleConnectionsClosed := make(chan struct{})
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	// listen for stop signals
	go func() {
		<-ctx.Done()
		s.Shutdown()
		close(idleConnectionsClosed)
	}()

	s.logger.Info().Str("address", s.httpServer.server.Addr).Msg("launching observability endpoint")
	go s.httpServer.RunServer()

	<-idleConnectionsClosed
	if s.onShutdown != nil {
		s.onShutdown()
	}
	s.logger.Info().Msg("server Shutdown gracefully")
}

func (s *server) Shutdown() {
	s.httpServer.Shutdown()
}
