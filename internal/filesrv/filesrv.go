// Package filesrv is the file transfer listener. It accepts streams on its own
// port through the shared TCP accept loop and currently releases them at once;
// no transfer protocol is defined yet.
package filesrv

import (
	"context"
	"net"

	"github.com/rs/zerolog"
)

// Service is the file server connection handler.
type Service struct {
	logger zerolog.Logger
}

// New creates a file service logging to logger.
func New(logger zerolog.Logger) *Service {
	return &Service{logger: logger}
}

// Name identifies the file service in logs.
func (s *Service) Name() string {
	return "FileServer"
}

// Setup runs once before the first stream is accepted.
func (s *Service) Setup(context.Context) error {
	s.logger.Info().Msg("File service ready")
	return nil
}

// Handle closes conn.
func (s *Service) Handle(_ context.Context, conn net.Conn) error {
	s.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("File stream released")
	return conn.Close()
}
