package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tyrowin/linechat/internal/transport"
)

// Connection handles every stream accepted by a TCPServer.
type Connection interface {
	// Name identifies the service in logs.
	Name() string
	// Handle serves conn to completion. ctx is cancelled on shutdown.
	Handle(ctx context.Context, conn net.Conn) error
}

// BackgroundStarter is implemented by a Connection that needs one task run
// before the first stream is accepted.
type BackgroundStarter interface {
	Setup(ctx context.Context) error
}

// TCPServer is a generic accept loop spawning one goroutine per stream.
// A TCPServer serves once; create a new one to listen again.
type TCPServer struct {
	addr    string
	handler Connection
	logger  zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	closed   bool

	sessions sync.WaitGroup
	loopDone chan struct{}
}

// NewTCPServer creates a server that will listen on addr and pass accepted streams to handler.
func NewTCPServer(addr string, handler Connection, logger zerolog.Logger) *TCPServer {
	return &TCPServer{
		addr:     addr,
		handler:  handler,
		logger:   logger.With().Str("service", handler.Name()).Logger(),
		loopDone: make(chan struct{}),
	}
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *TCPServer) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%s listen on %s: %w", s.handler.Name(), s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts streams from ln until ctx is cancelled or Shutdown is called,
// in which case it returns nil. ln is closed on return. Serve returns at once
// if Shutdown ran first.
func (s *TCPServer) Serve(ctx context.Context, ln net.Listener) error {
	defer close(s.loopDone)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()

	if starter, ok := s.handler.(BackgroundStarter); ok {
		if err := starter.Setup(ctx); err != nil {
			_ = ln.Close()
			return fmt.Errorf("%s setup: %w", s.handler.Name(), err)
		}
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("%s accept: %w", s.handler.Name(), err)
		}

		s.sessions.Add(1)
		go s.serveConn(ctx, conn)
	}
}

func (s *TCPServer) serveConn(ctx context.Context, conn net.Conn) {
	defer s.sessions.Done()

	remote := conn.RemoteAddr().String()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("remote", remote).Msg("Connection handler panicked")
		}
		_ = conn.Close()
	}()

	s.logger.Debug().Str("remote", remote).Msg("Connection accepted")
	if err := s.handler.Handle(ctx, conn); err != nil && !transport.IsExpectedCloseError(err) {
		s.logger.Warn().Err(err).Str("remote", remote).Msg("Connection ended with error")
	}
}

// Addr returns the listening address, or nil before Serve has started.
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting, cancels every session and waits for them to finish.
// It returns context.DeadlineExceeded if sessions are still running after timeout.
func (s *TCPServer) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	s.logger.Info().Msg("Shutting down")
	cancel()

	done := make(chan struct{})
	go func() {
		<-s.loopDone
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Shutdown completed")
		return nil
	case <-time.After(timeout):
		s.logger.Warn().Dur("timeout", timeout).Msg("Shutdown timed out with sessions still running")
		return context.DeadlineExceeded
	}
}
