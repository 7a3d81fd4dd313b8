package chat

// Observer receives chat events for instrumentation. Implementations must be
// safe for concurrent use; some methods are called with registry locks held
// and must not call back into the registries.
type Observer interface {
	SessionOpened()
	SessionClosed()
	RoomCount(n int)
	Published(receivers int)
	Command(name string)
	ProtocolError(err error)
	Dropped(n uint64)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) SessionOpened()      {}
func (NopObserver) SessionClosed()      {}
func (NopObserver) RoomCount(int)       {}
func (NopObserver) Published(int)       {}
func (NopObserver) Command(string)      {}
func (NopObserver) ProtocolError(error) {}
func (NopObserver) Dropped(uint64)      {}
