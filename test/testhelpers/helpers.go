// Package testhelpers provides common utilities for the linechat end-to-end tests.
//
// StartChat runs the full stack (TCP chat listener, websocket gateway, metrics)
// on loopback listeners; Client drives one chat session over either transport.
package testhelpers

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/linechat/internal/chat"
	"github.com/Tyrowin/linechat/internal/metrics"
	"github.com/Tyrowin/linechat/internal/server"
)

// LineTimeout bounds every wait for an expected line.
const LineTimeout = 3 * time.Second

// TestOrigin is accepted by the default configuration.
const TestOrigin = "http://localhost:8080"

// ChatEnv is a running linechat stack.
type ChatEnv struct {
	TCPAddr string
	HTTPURL string
	WSURL   string

	Names    *chat.Names
	Rooms    *chat.Rooms
	Registry *prometheus.Registry

	chatServer *server.TCPServer
	gateway    *server.Gateway
	httpServer *httptest.Server
}

// StartChat starts a stack using the default configuration adjusted by customize.
// Everything is stopped when the test ends.
func StartChat(t *testing.T, customize func(cfg *server.Config)) *ChatEnv {
	t.Helper()

	cfg := server.NewConfig()
	if customize != nil {
		customize(cfg)
	}
	sanitized := cfg.Sanitize()

	reg := prometheus.NewRegistry()
	observer, err := metrics.New(reg)
	if err != nil {
		t.Fatalf("Failed to register metrics: %v", err)
	}

	names := chat.NewNames()
	rooms := chat.NewRooms(sanitized.RoomCapacity, observer)
	handler := chat.NewHandler(names, rooms,
		chat.WithObserver(observer),
		chat.WithRateLimit(sanitized.RateLimit.Burst, sanitized.RateLimit.RefillInterval),
	)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	chatServer := server.NewTCPServer(ln.Addr().String(), server.NewChatService(handler, sanitized), zerolog.Nop())
	go func() { _ = chatServer.Serve(context.Background(), ln) }()

	gateway := server.NewGateway(context.Background(), handler, sanitized, zerolog.Nop())
	httpServer := httptest.NewServer(server.SetupRoutes(gateway, metrics.Handler(reg)))

	env := &ChatEnv{
		TCPAddr:    ln.Addr().String(),
		HTTPURL:    httpServer.URL,
		WSURL:      "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws",
		Names:      names,
		Rooms:      rooms,
		Registry:   reg,
		chatServer: chatServer,
		gateway:    gateway,
		httpServer: httpServer,
	}
	t.Cleanup(func() {
		_ = env.Shutdown(time.Second)
		httpServer.Close()
	})
	return env
}

// Shutdown ends every session on both transports and waits for them.
func (e *ChatEnv) Shutdown(timeout time.Duration) error {
	return errors.Join(e.gateway.Shutdown(timeout), e.chatServer.Shutdown(timeout))
}

// Client is one chat session seen from the client side.
type Client struct {
	t     *testing.T
	Name  string
	lines chan string
	send  func(string) error
	close func() error
}

// DialTCP opens a line-delimited TCP session.
func DialTCP(t *testing.T, addr string) *Client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, LineTimeout)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	c := newClient(t,
		func(line string) error {
			_, err := io.WriteString(conn, line+"\n")
			return err
		},
		conn.Close,
	)
	go func() {
		defer close(c.lines)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
	}()
	return c
}

// ConnectWebSocket dials the gateway with the given Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// DialWebSocket opens a chat session through the websocket gateway.
func DialWebSocket(t *testing.T, url string) *Client {
	t.Helper()
	conn, _, err := ConnectWebSocket(url, TestOrigin)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	c := newClient(t,
		func(line string) error {
			return conn.WriteMessage(websocket.TextMessage, []byte(line))
		},
		conn.Close,
	)
	go func() {
		defer close(c.lines)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			// A frame may carry a multi-line reply such as the help text.
			for _, line := range strings.Split(string(data), "\n") {
				c.lines <- line
			}
		}
	}()
	return c
}

func newClient(t *testing.T, send func(string) error, closeFn func() error) *Client {
	c := &Client{
		t:     t,
		lines: make(chan string, 512),
		send:  send,
		close: closeFn,
	}
	t.Cleanup(func() { _ = c.close() })
	return c
}

// Join waits for the assigned name and the arrival announcement in main.
func (c *Client) Join() *Client {
	c.t.Helper()
	c.Name = strings.TrimPrefix(c.ExpectPrefix("Your name is "), "Your name is ")
	c.Expect(c.Name + " joined " + chat.DefaultRoom)
	return c
}

// Send writes one line.
func (c *Client) Send(line string) {
	c.t.Helper()
	if err := c.send(line); err != nil {
		c.t.Fatalf("Failed to send %q: %v", line, err)
	}
}

// Expect skips lines until want arrives.
func (c *Client) Expect(want string) {
	c.t.Helper()
	c.ExpectMatch(want, func(line string) bool { return line == want })
}

// ExpectPrefix skips lines until one starts with prefix and returns it.
func (c *Client) ExpectPrefix(prefix string) string {
	c.t.Helper()
	return c.ExpectMatch(prefix, func(line string) bool { return strings.HasPrefix(line, prefix) })
}

// ExpectMatch skips lines until match accepts one and returns it.
func (c *Client) ExpectMatch(desc string, match func(string) bool) string {
	c.t.Helper()
	timeout := time.After(LineTimeout)
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				c.t.Fatalf("Connection closed while waiting for %q", desc)
			}
			if match(line) {
				return line
			}
		case <-timeout:
			c.t.Fatalf("Timed out waiting for %q", desc)
		}
	}
}

// ExpectNone fails if a line equal to unwanted arrives within d.
func (c *Client) ExpectNone(unwanted string, d time.Duration) {
	c.t.Helper()
	timeout := time.After(d)
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return
			}
			if line == unwanted {
				c.t.Errorf("Unexpected line %q", unwanted)
				return
			}
		case <-timeout:
			return
		}
	}
}

// ExpectClosed drains lines until the server closes the session.
func (c *Client) ExpectClosed() {
	c.t.Helper()
	timeout := time.After(LineTimeout)
	for {
		select {
		case _, ok := <-c.lines:
			if !ok {
				return
			}
		case <-timeout:
			c.t.Fatal("Timed out waiting for the server to close the connection")
		}
	}
}

// Close ends the session from the client side.
func (c *Client) Close() {
	_ = c.close()
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, expected) {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}
