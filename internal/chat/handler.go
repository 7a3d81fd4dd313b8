package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/linechat/internal/ratelimit"
	"github.com/Tyrowin/linechat/internal/transport"
)

const (
	// ShutdownNotice is the last line a client receives when the server stops.
	ShutdownNotice = "Server is shutting down"
	// SlowDownNotice replaces a chat line dropped by the rate limiter.
	SlowDownNotice = "Slow down, message discarded"
)

var errSubscriptionClosed = errors.New("chat: room subscription closed")

// Handler runs chat sessions over line connections. One Handler serves every
// connection of a server; each Serve call owns one session.
type Handler struct {
	names     *Names
	rooms     *Rooms
	processor *Processor
	observer  Observer
	logger    zerolog.Logger

	rateBurst    int
	rateInterval time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger sessions derive their loggers from.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithObserver sets the instrumentation sink.
func WithObserver(observer Observer) Option {
	return func(h *Handler) {
		if observer != nil {
			h.observer = observer
		}
	}
}

// WithRateLimit throttles plain chat lines to burst lines per interval per
// connection. A non-positive burst disables throttling.
func WithRateLimit(burst int, interval time.Duration) Option {
	return func(h *Handler) {
		h.rateBurst = burst
		h.rateInterval = interval
	}
}

// NewHandler creates a Handler sharing the given registries.
func NewHandler(names *Names, rooms *Rooms, opts ...Option) *Handler {
	h := &Handler{
		names:    names,
		rooms:    rooms,
		observer: NopObserver{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.processor = NewProcessor(names, rooms, h.observer)
	h.processor.logger = h.logger
	return h
}

// Serve runs one session on conn until the client quits, the stream ends, a
// transport error occurs or ctx is cancelled. Quit, end of stream and
// cancellation return nil. The name and room are released before conn is
// closed, and conn is closed before Serve returns.
func (h *Handler) Serve(ctx context.Context, conn transport.LineConn) error {
	id := uuid.NewString()
	log := h.logger.With().
		Str("conn_id", id).
		Str("remote", conn.RemoteAddr()).
		Logger()

	if err := conn.WriteLine(HelpText); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send help: %w", err)
	}

	name := h.names.GenerateUnique()
	s := NewSession(id, name, h.rooms.Join(DefaultRoom, name))
	h.observer.SessionOpened()
	log.Info().Str("name", name).Str("room", DefaultRoom).Msg("Client connected")

	lines, readErr, stop := readLines(conn)
	defer func() {
		h.disconnect(s, log)
		stop()
	}()

	if err := conn.WriteLine("Your name is " + s.Name); err != nil {
		return fmt.Errorf("send name: %w", err)
	}
	h.observer.Published(s.Publish(fmt.Sprintf("%s joined %s", s.Name, DefaultRoom)))
	s.State = StateActive

	var limiter *ratelimit.Limiter
	if h.rateBurst > 0 {
		limiter = ratelimit.New(h.rateBurst, h.rateInterval)
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteLine(ShutdownNotice)
			return nil

		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read from client: %w", err)

		case line := <-lines:
			err := h.dispatch(s, line, limiter, conn.WriteLine, log)
			if errors.Is(err, ErrQuit) {
				log.Debug().Str("name", s.Name).Msg("Client quit")
				return nil
			}
			if err != nil {
				return fmt.Errorf("write to client: %w", err)
			}

		case msg, ok := <-s.Messages():
			if !ok {
				return errSubscriptionClosed
			}
			if lagged := s.takeLag(); lagged > 0 {
				h.observer.Dropped(lagged)
				log.Debug().Uint64("dropped", lagged).Str("room", s.Room()).Msg("Slow subscriber skipped messages")
			}
			if err := conn.WriteLine(msg); err != nil {
				return fmt.Errorf("write to client: %w", err)
			}
		}
	}
}

// dispatch handles one client line. It returns ErrQuit or a reply error; protocol
// errors are answered on the connection and swallowed.
func (h *Handler) dispatch(s *Session, line string, limiter *ratelimit.Limiter, reply Reply, log zerolog.Logger) error {
	if IsCommand(line) {
		err := h.processor.Execute(line, s, reply)
		switch {
		case errors.Is(err, ErrWrongCommand):
			h.protocolError(err, line, log)
			return reply("Wrong command: " + line)
		case errors.Is(err, ErrNotEnoughArg):
			h.protocolError(err, line, log)
			return reply("Command with wrong number of arguments: " + line)
		}
		return err
	}

	if limiter != nil && !limiter.Allow() {
		log.Debug().Str("name", s.Name).Msg("Rate limit exceeded, dropping line")
		return reply(SlowDownNotice)
	}
	h.observer.Published(s.Publish(s.Name + ": " + line))
	return nil
}

func (h *Handler) protocolError(err error, line string, log zerolog.Logger) {
	h.observer.ProtocolError(err)
	log.Debug().Str("kind", ProtocolErrorKind(err)).Str("line", line).Msg("Protocol error")
}

// disconnect announces the departure and releases the session's room and name.
func (h *Handler) disconnect(s *Session, log zerolog.Logger) {
	room := s.Room()
	h.observer.Published(s.Publish(fmt.Sprintf("%s has left %s", s.Name, room)))
	h.observer.Dropped(s.takeLag())
	h.rooms.Leave(room, s.Name)
	h.names.Remove(s.Name)
	s.State = StateDisconnected
	h.observer.SessionClosed()
	log.Info().Str("name", s.Name).Str("room", room).Msg("Client disconnected")
}

// readLines pumps conn.ReadLine into a channel. The terminal read error is
// delivered on the second channel. stop closes conn and waits for the pump.
func readLines(conn transport.LineConn) (<-chan string, <-chan error, func()) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			line, err := conn.ReadLine()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		close(done)
		_ = conn.Close()
		wg.Wait()
	}
	return lines, readErr, stop
}
