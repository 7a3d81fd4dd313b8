package chat

// State is the lifecycle phase of a connection.
type State int

const (
	// StateConnecting - identity assigned and default room being joined.
	StateConnecting State = iota
	// StateActive - serving client lines and room messages.
	StateActive
	// StateDisconnected - torn down, terminal.
	StateDisconnected
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is the per-connection chat state. It is owned by a single
// connection goroutine and is not safe for concurrent use.
type Session struct {
	ID    string
	Name  string
	State State

	handle  *Handle
	lagSeen uint64
}

// NewSession binds a session to the room handle it has just joined.
func NewSession(id, name string, handle *Handle) *Session {
	return &Session{
		ID:     id,
		Name:   name,
		State:  StateConnecting,
		handle: handle,
	}
}

// Room returns the key of the current room.
func (s *Session) Room() string {
	return s.handle.Room()
}

// Publish sends msg to the current room.
func (s *Session) Publish(msg string) int {
	return s.handle.Publish(msg)
}

// Messages returns the subscription queue of the current room.
func (s *Session) Messages() <-chan string {
	return s.handle.Messages()
}

// Lagged returns the number of messages missed on the current room.
func (s *Session) Lagged() uint64 {
	return s.handle.Lagged()
}

// takeLag returns the messages missed on the current room since the last call.
func (s *Session) takeLag() uint64 {
	lagged := s.handle.Lagged()
	delta := lagged - s.lagSeen
	s.lagSeen = lagged
	return delta
}

// move swaps the publish and subscribe sides to a new room in one step.
func (s *Session) move(handle *Handle) {
	s.handle = handle
	s.lagSeen = 0
}
