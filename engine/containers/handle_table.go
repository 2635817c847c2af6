package containers

import (
	"sync"
)

// HandleTable is a registry mapping opaque uint32 identities to live
// objects. Insertion and lookup are safe for concurrent use from
// multiple goroutines. Released identities are recycled through a ring
// queue before new ones are minted.
type HandleTable[T any] struct {
	mu      sync.RWMutex
	entries map[uint32]T
	free    *RingQueue[uint32]
	next    uint32
}

func NewHandleTable[T any](capacity int) *HandleTable[T] {
	return &HandleTable[T]{
		entries: make(map[uint32]T, capacity),
		free:    NewRingQueue[uint32](capacity),
	}
}

// Insert registers the value under a fresh identity and returns it.
func (ht *HandleTable[T]) Insert(value T) uint32 {
	ht.mu.Lock()
	defer ht.mu.Unlock()

	id, err := ht.free.Dequeue()
	if err != nil {
		id = ht.next
		ht.next++
	}
	ht.entries[id] = value
	return id
}

// Get returns the value registered under id, if any.
func (ht *HandleTable[T]) Get(id uint32) (T, bool) {
	ht.mu.RLock()
	defer ht.mu.RUnlock()

	value, ok := ht.entries[id]
	return value, ok
}

// Remove unregisters id and queues it for reuse. It reports whether the
// identity referenced a live entry.
func (ht *HandleTable[T]) Remove(id uint32) bool {
	ht.mu.Lock()
	defer ht.mu.Unlock()

	if _, ok := ht.entries[id]; !ok {
		return false
	}
	delete(ht.entries, id)
	// A full free queue just means the identity is retired for good.
	_ = ht.free.Enqueue(id)
	return true
}

// Count returns the number of live entries.
func (ht *HandleTable[T]) Count() int {
	ht.mu.RLock()
	defer ht.mu.RUnlock()
	return len(ht.entries)
}

// Range calls fn for every live entry until fn returns false.
func (ht *HandleTable[T]) Range(fn func(id uint32, value T) bool) {
	ht.mu.RLock()
	defer ht.mu.RUnlock()
	for id, value := range ht.entries {
		if !fn(id, value) {
			return
		}
	}
}
