package chat

import (
	"sort"
	"sync"

	"github.com/Tyrowin/linechat/internal/broadcast"
)

// DefaultRoom is the room every client joins on connect.
const DefaultRoom = "main"

// RoomInfo is one entry of a room listing.
type RoomInfo struct {
	Name    string
	Members int
}

type room struct {
	channel *broadcast.Channel
	members map[string]*broadcast.Receiver
}

// Handle is a member's publish/subscribe capability on one room.
type Handle struct {
	room     string
	channel  *broadcast.Channel
	receiver *broadcast.Receiver
}

// Room returns the key of the room the handle is bound to.
func (h *Handle) Room() string {
	return h.room
}

// Publish sends msg to every subscriber of the room, the holder included,
// and returns the number of subscribers it was queued for.
func (h *Handle) Publish(msg string) int {
	return h.channel.Publish(msg)
}

// Messages returns the holder's subscription queue.
func (h *Handle) Messages() <-chan string {
	return h.receiver.C()
}

// Lagged returns how many messages the holder missed on this room.
func (h *Handle) Lagged() uint64 {
	return h.receiver.Lagged()
}

// Rooms is the registry of live rooms. Every structural change (room creation
// and deletion, membership add, remove and rename) runs under the write lock;
// listings take the read lock.
type Rooms struct {
	mu       sync.RWMutex
	rooms    map[string]*room
	capacity int
	observer Observer
}

// NewRooms creates an empty registry whose rooms queue up to capacity messages per member.
func NewRooms(capacity int, observer Observer) *Rooms {
	if capacity <= 0 {
		capacity = broadcast.DefaultCapacity
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Rooms{
		rooms:    make(map[string]*room),
		capacity: capacity,
		observer: observer,
	}
}

// Join adds name to the room identified by key, creating the room if needed,
// and returns a handle subscribed to it.
func (r *Rooms) Join(key, name string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		rm = &room{
			channel: broadcast.New(r.capacity),
			members: make(map[string]*broadcast.Receiver),
		}
		r.rooms[key] = rm
		r.observer.RoomCount(len(r.rooms))
	}

	if previous, ok := rm.members[name]; ok {
		previous.Close()
	}
	receiver := rm.channel.Subscribe()
	rm.members[name] = receiver

	return &Handle{room: key, channel: rm.channel, receiver: receiver}
}

// Leave removes name from the room and drops its subscription. The room is
// deleted once no subscriber is left.
func (r *Rooms) Leave(key, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		return
	}

	if receiver, ok := rm.members[name]; ok {
		receiver.Close()
		delete(rm.members, name)
	}

	if rm.channel.ReceiverCount() == 0 {
		delete(r.rooms, key)
		r.observer.RoomCount(len(r.rooms))
	}
}

// Change moves name from one room to another. Each half is atomic on its own.
func (r *Rooms) Change(from, to, name string) *Handle {
	r.Leave(from, name)
	return r.Join(to, name)
}

// Rename moves the membership entry of oldName in room key to newName, keeping
// its subscription. It reports false when oldName is not a member or newName already is.
func (r *Rooms) Rename(key, oldName, newName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		return false
	}
	receiver, ok := rm.members[oldName]
	if !ok {
		return false
	}
	if _, taken := rm.members[newName]; taken {
		return false
	}

	delete(rm.members, oldName)
	rm.members[newName] = receiver
	return true
}

// List returns a snapshot of all rooms ordered by member count, largest first,
// ties broken by room key in ascending byte order.
func (r *Rooms) List() []RoomInfo {
	r.mu.RLock()
	list := make([]RoomInfo, 0, len(r.rooms))
	for key, rm := range r.rooms {
		list = append(list, RoomInfo{Name: key, Members: rm.channel.ReceiverCount()})
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].Members != list[j].Members {
			return list[i].Members > list[j].Members
		}
		return list[i].Name < list[j].Name
	})
	return list
}

// ListUsers returns the member names of room key in ascending order.
// ok is false when the room does not exist.
func (r *Rooms) ListUsers(key string) (users []string, ok bool) {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	if !ok {
		r.mu.RUnlock()
		return nil, false
	}
	users = make([]string, 0, len(rm.members))
	for name := range rm.members {
		users = append(users, name)
	}
	r.mu.RUnlock()

	sort.Strings(users)
	return users, true
}

// Len returns the number of live rooms.
func (r *Rooms) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
