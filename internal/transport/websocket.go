package transport

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// WebSocketConn exposes a websocket as a LineConn. Each inbound frame may carry
// several "\n" separated lines; each outbound line is sent as one text frame.
type WebSocketConn struct {
	conn    *websocket.Conn
	pending []string

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewWebSocketConn wraps an upgraded connection, limits inbound frames to
// maxFrameSize bytes and starts the keepalive pinger.
func NewWebSocketConn(conn *websocket.Conn, maxFrameSize int64) *WebSocketConn {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxLineLength
	}
	conn.SetReadLimit(maxFrameSize)

	c := &WebSocketConn{
		conn: conn,
		done: make(chan struct{}),
	}
	c.setupReadConnection()
	go c.pingLoop()
	return c
}

// setupReadConnection configures the read deadline and the pong handler that extends it.
func (c *WebSocketConn) setupReadConnection() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// ReadLine returns the next queued line, reading a new frame when none is left.
func (c *WebSocketConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", readError(err)
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		payload := strings.TrimSuffix(string(data), "\n")
		for _, line := range strings.Split(payload, "\n") {
			c.pending = append(c.pending, strings.TrimSuffix(line, "\r"))
		}
	}

	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

// readError maps websocket read failures onto the LineConn contract.
func readError(err error) error {
	if errors.Is(err, websocket.ErrReadLimit) {
		return ErrLineTooLong
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return io.EOF
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || IsExpectedCloseError(err) {
		return io.EOF
	}

	return fmt.Errorf("websocket read: %w", err)
}

// WriteLine sends line as a single text frame.
func (c *WebSocketConn) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

func (c *WebSocketConn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// WriteControl may run concurrently with WriteMessage.
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close sends a normal closure frame when possible and closes the socket. It is idempotent.
func (c *WebSocketConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		if err := c.conn.Close(); err != nil && !IsExpectedCloseError(err) {
			c.closeErr = err
		}
	})
	return c.closeErr
}

// RemoteAddr returns the peer address.
func (c *WebSocketConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
