package chat

import (
	"math/rand/v2"
	"sync"
)

var adjectives = [...]string{
	"Mushy",
	"Starry",
	"Peaceful",
	"Phony",
	"Amazing",
	"Queasy",
}

var animals = [...]string{
	"Owl",
	"Mantis",
	"Gopher",
	"Robin",
	"Vulture",
	"Prawn",
}

// NamePoolSize is the number of distinct names GenerateUnique can produce.
const NamePoolSize = len(adjectives) * len(animals)

// Names tracks the display names of all connected clients.
// A name is held by at most one client at any instant.
type Names struct {
	mu    sync.Mutex
	taken map[string]struct{}
	intn  func(n int) int
}

// NewNames creates an empty name registry.
func NewNames() *Names {
	return &Names{
		taken: make(map[string]struct{}),
		intn:  rand.IntN,
	}
}

// Insert adds name and reports whether it was free.
func (n *Names) Insert(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.taken[name]; ok {
		return false
	}
	n.taken[name] = struct{}{}
	return true
}

// Remove releases name. Removing an unknown name is a no-op.
func (n *Names) Remove(name string) {
	n.mu.Lock()
	delete(n.taken, name)
	n.mu.Unlock()
}

// Contains reports whether name is currently held.
func (n *Names) Contains(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.taken[name]
	return ok
}

// Len returns the number of held names.
func (n *Names) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.taken)
}

// GenerateUnique draws random Adjective+Animal names until one is free and
// registers it. It does not give up: once all NamePoolSize names are held it
// spins until one is released.
func (n *Names) GenerateUnique() string {
	for {
		name := n.random()
		if n.Insert(name) {
			return name
		}
	}
}

func (n *Names) random() string {
	return adjectives[n.intn(len(adjectives))] + animals[n.intn(len(animals))]
}
