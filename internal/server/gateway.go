package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/linechat/internal/chat"
	"github.com/Tyrowin/linechat/internal/transport"
)

// Gateway upgrades HTTP requests to websockets and runs a chat session on each.
// Websocket and TCP clients served by the same chat.Handler share rooms.
type Gateway struct {
	handler  *chat.Handler
	upgrader websocket.Upgrader
	maxFrame int64
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	sessions sync.WaitGroup
}

// NewGateway creates a gateway whose sessions end when ctx is cancelled or
// Shutdown is called.
func NewGateway(ctx context.Context, handler *chat.Handler, cfg Config, logger zerolog.Logger) *Gateway {
	ctx, cancel := context.WithCancel(ctx)
	g := &Gateway{
		handler:  handler,
		maxFrame: int64(cfg.MaxLineLength),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	policy := newOriginPolicy(cfg.AllowedOrigins, logger)
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     policy.check,
	}
	return g
}

// ServeHTTP handles WebSocket upgrade requests and serves the session until it ends.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	g.sessions.Add(1)
	g.mu.Unlock()
	defer g.sessions.Done()

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	conn := transport.NewWebSocketConn(ws, g.maxFrame)
	if err := g.handler.Serve(g.ctx, conn); err != nil && !transport.IsExpectedCloseError(err) {
		g.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket session ended with error")
	}
}

// Shutdown rejects new upgrades, ends running sessions and waits for them.
// It returns context.DeadlineExceeded if sessions are still running after timeout.
func (g *Gateway) Shutdown(timeout time.Duration) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.cancel()

	done := make(chan struct{})
	go func() {
		g.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}
