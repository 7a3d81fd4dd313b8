package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxLineLength bounds inbound lines when no limit is configured.
	DefaultMaxLineLength = 4096
	// MaxLineLengthLimit is the largest accepted line limit.
	MaxLineLengthLimit = 1 << 20
)

// StreamConn frames a net.Conn as newline-delimited lines.
type StreamConn struct {
	conn          net.Conn
	scanner       *bufio.Scanner
	maxLineLength int
	writeTimeout  time.Duration

	writeMu sync.Mutex
}

// NewStreamConn wraps conn. Inbound lines longer than maxLineLength bytes are
// rejected with ErrLineTooLong; writeTimeout bounds each WriteLine when positive.
// maxLineLength is clamped to MaxLineLengthLimit.
func NewStreamConn(conn net.Conn, maxLineLength int, writeTimeout time.Duration) *StreamConn {
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}
	maxLineLength = min(maxLineLength, MaxLineLengthLimit)

	scanner := bufio.NewScanner(conn)
	// +2 leaves room for the "\r\n" terminator; ReadLine enforces the exact limit.
	scanner.Buffer(make([]byte, 0, min(4096, maxLineLength+2)), maxLineLength+2)

	return &StreamConn{
		conn:          conn,
		scanner:       scanner,
		maxLineLength: maxLineLength,
		writeTimeout:  writeTimeout,
	}
}

// ReadLine returns the next line with any trailing "\r" removed.
func (c *StreamConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		err := c.scanner.Err()
		switch {
		case err == nil:
			return "", io.EOF
		case errors.Is(err, bufio.ErrTooLong):
			return "", ErrLineTooLong
		default:
			return "", fmt.Errorf("read line: %w", err)
		}
	}
	line := strings.TrimSuffix(c.scanner.Text(), "\r")
	if len(line) > c.maxLineLength {
		return "", ErrLineTooLong
	}
	return line, nil
}

// WriteLine writes line followed by "\n". Safe for concurrent use.
func (c *StreamConn) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *StreamConn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the peer address.
func (c *StreamConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
