// Package transport adapts byte streams into line-oriented connections:
// newline-delimited TCP and websocket frames.
package transport

import (
	"errors"
	"strings"
)

// ErrLineTooLong is returned by ReadLine when an inbound line exceeds the configured limit.
var ErrLineTooLong = errors.New("transport: line too long")

// LineConn is a connection exchanging discrete UTF-8 text lines.
type LineConn interface {
	// ReadLine blocks for the next inbound line, without its terminator.
	// It returns io.EOF once the peer has closed the stream.
	ReadLine() (string, error)
	// WriteLine sends one line; the terminator is added by the transport.
	WriteLine(line string) error
	// Close releases the connection and unblocks a pending ReadLine.
	Close() error
	// RemoteAddr describes the peer for logging.
	RemoteAddr() string
}

// IsExpectedCloseError reports whether err is the ordinary result of a
// connection being closed from either side.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "io: read/write on closed pipe")
}
