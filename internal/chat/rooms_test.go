package chat

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
)

// TestRoomsJoinLeaveDeletesEmptyRoom verifies a room disappears with its last member.
func TestRoomsJoinLeaveDeletesEmptyRoom(t *testing.T) {
	rooms := NewRooms(4, nil)

	rooms.Join("r", "alice")
	if rooms.Len() != 1 {
		t.Fatalf("Len() = %d after Join, want 1", rooms.Len())
	}

	rooms.Leave("r", "alice")
	if rooms.Len() != 0 {
		t.Errorf("Len() = %d after Leave, want 0", rooms.Len())
	}
	for _, info := range rooms.List() {
		if info.Name == "r" {
			t.Error("List() still contains the emptied room")
		}
	}
	if _, ok := rooms.ListUsers("r"); ok {
		t.Error("ListUsers reported the emptied room as existing")
	}
}

// TestRoomsLeaveKeepsOccupiedRoom verifies a room survives while a member remains.
func TestRoomsLeaveKeepsOccupiedRoom(t *testing.T) {
	rooms := NewRooms(4, nil)
	rooms.Join("r", "alice")
	rooms.Join("r", "bob")

	rooms.Leave("r", "alice")

	users, ok := rooms.ListUsers("r")
	if !ok {
		t.Fatal("room deleted while bob is still a member")
	}
	if !reflect.DeepEqual(users, []string{"bob"}) {
		t.Errorf("ListUsers() = %v, want [bob]", users)
	}

	rooms.Leave("missing", "bob")
	rooms.Leave("r", "nobody")
	if rooms.Len() != 1 {
		t.Errorf("Len() = %d, want 1", rooms.Len())
	}
}

// TestRoomsListOrdering verifies rooms sort by member count descending then key ascending.
func TestRoomsListOrdering(t *testing.T) {
	rooms := NewRooms(4, nil)
	for i := range 3 {
		rooms.Join("C", fmt.Sprintf("c%d", i))
		rooms.Join("A", fmt.Sprintf("a%d", i))
	}
	rooms.Join("B", "b0")

	want := []RoomInfo{{"A", 3}, {"C", 3}, {"B", 1}}
	if got := rooms.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

// TestRoomsListUsersSorted verifies user listings are in ascending order.
func TestRoomsListUsersSorted(t *testing.T) {
	rooms := NewRooms(4, nil)
	for _, name := range []string{"zed", "Amy", "bob"} {
		rooms.Join("main", name)
	}

	users, _ := rooms.ListUsers("main")
	if want := []string{"Amy", "bob", "zed"}; !reflect.DeepEqual(users, want) {
		t.Errorf("ListUsers() = %v, want %v", users, want)
	}
}

// TestRoomsChange verifies Change leaves the old room and subscribes to the new one.
func TestRoomsChange(t *testing.T) {
	rooms := NewRooms(4, nil)
	old := rooms.Join("main", "alice")
	rooms.Join("main", "bob")

	h := rooms.Change("main", "lobby", "alice")
	if h.Room() != "lobby" {
		t.Errorf("Room() = %q, want lobby", h.Room())
	}

	if _, ok := <-old.Messages(); ok {
		t.Error("old subscription still open after Change")
	}

	want := []RoomInfo{{"lobby", 1}, {"main", 1}}
	if got := rooms.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	rooms.Join("main", "carol").Publish("only main")
	select {
	case msg := <-h.Messages():
		t.Errorf("lobby subscriber received %q published to main", msg)
	default:
	}
}

// TestRoomsRename verifies renaming keeps the member's subscription and updates listings.
func TestRoomsRename(t *testing.T) {
	rooms := NewRooms(4, nil)
	h := rooms.Join("main", "alice")
	rooms.Join("main", "bob")

	if rooms.Rename("main", "alice", "bob") {
		t.Error("Rename onto an existing member returned true")
	}
	if rooms.Rename("main", "nobody", "x") {
		t.Error("Rename of a non-member returned true")
	}
	if rooms.Rename("missing", "alice", "x") {
		t.Error("Rename in a missing room returned true")
	}
	if !rooms.Rename("main", "alice", "alicia") {
		t.Fatal("Rename returned false")
	}

	users, _ := rooms.ListUsers("main")
	if want := []string{"alicia", "bob"}; !reflect.DeepEqual(users, want) {
		t.Errorf("ListUsers() = %v, want %v", users, want)
	}

	h.Publish("still subscribed")
	if msg := <-h.Messages(); msg != "still subscribed" {
		t.Errorf("renamed member got %q", msg)
	}

	rooms.Leave("main", "alicia")
	rooms.Leave("main", "bob")
	if rooms.Len() != 0 {
		t.Errorf("Len() = %d after renamed member left, want 0", rooms.Len())
	}
}

// TestRoomsRejoinReplacesSubscription verifies joining twice under one name keeps one subscription.
func TestRoomsRejoinReplacesSubscription(t *testing.T) {
	rooms := NewRooms(4, nil)
	first := rooms.Join("main", "alice")
	rooms.Join("main", "alice")

	if got := rooms.List(); !reflect.DeepEqual(got, []RoomInfo{{"main", 1}}) {
		t.Errorf("List() = %v, want [{main 1}]", got)
	}
	if _, ok := <-first.Messages(); ok {
		t.Error("replaced subscription still open")
	}
}

// TestRoomsConcurrentJoinCreatesOneRoom verifies concurrent joins to a new key share one room.
func TestRoomsConcurrentJoinCreatesOneRoom(t *testing.T) {
	rooms := NewRooms(4, nil)
	const members = 50

	handles := make([]*Handle, members)
	var wg sync.WaitGroup
	for i := range members {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = rooms.Join("new", fmt.Sprintf("u%d", i))
		}(i)
	}
	wg.Wait()

	if got := rooms.List(); !reflect.DeepEqual(got, []RoomInfo{{"new", members}}) {
		t.Fatalf("List() = %v, want one room with %d members", got, members)
	}
	if n := handles[0].Publish("hi"); n != members {
		t.Errorf("Publish reached %d subscribers, want %d", n, members)
	}
}

// TestRoomsConcurrentJoinLeave races joins and leaves on the same key and checks
// the registry ends empty; run with -race.
func TestRoomsConcurrentJoinLeave(t *testing.T) {
	rooms := NewRooms(4, nil)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("u%d", i)
			for range 50 {
				rooms.Join("hot", name)
				rooms.List()
				rooms.Leave("hot", name)
			}
		}(i)
	}
	wg.Wait()

	if rooms.Len() != 0 {
		t.Errorf("Len() = %d, want 0", rooms.Len())
	}
}

type roomCountObserver struct {
	NopObserver
	mu     sync.Mutex
	counts []int
}

func (o *roomCountObserver) RoomCount(n int) {
	o.mu.Lock()
	o.counts = append(o.counts, n)
	o.mu.Unlock()
}

// TestRoomsObserverRoomCount verifies the observer sees every room creation and deletion.
func TestRoomsObserverRoomCount(t *testing.T) {
	obs := &roomCountObserver{}
	rooms := NewRooms(4, obs)

	rooms.Join("a", "x")
	rooms.Join("b", "y")
	rooms.Join("a", "z")
	rooms.Leave("a", "x")
	rooms.Leave("a", "z")

	if want := []int{1, 2, 1}; !reflect.DeepEqual(obs.counts, want) {
		t.Errorf("observed counts %v, want %v", obs.counts, want)
	}
}
