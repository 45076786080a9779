package store

import (
	"sort"
	"sync"
)

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Snapshots are keyed by endpoint name; a new snapshot replaces the
// previous one, so the display always shows the last resolved poll.
type MemoryStore struct {
	mu          sync.RWMutex
	snapshots   map[string]Snapshot
	subscribers map[chan Snapshot]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots:   make(map[string]Snapshot),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Update stores s and notifies all subscribers whose buffer has room.
func (m *MemoryStore) Update(s Snapshot) {
	s.Flags = copyFlags(s.Flags)

	m.mu.Lock()
	m.snapshots[s.Name] = s
	m.mu.Unlock()

	m.notifySubscribers(s)
}

// Get returns the latest snapshot stored for name.
func (m *MemoryStore) Get(name string) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[name]
	if ok {
		s.Flags = copyFlags(s.Flags)
	}
	return s, ok
}

// GetAll returns a copy of all stored snapshots, sorted by name.
func (m *MemoryStore) GetAll() []Snapshot {
	m.mu.RLock()
	results := make([]Snapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		s.Flags = copyFlags(s.Flags)
		results = append(results, s)
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// Subscribe creates a subscription with a buffer of 100 snapshots.
// When the buffer is full, new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends s to every subscriber without blocking.
func (m *MemoryStore) notifySubscribers(s Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- s:
		default:
			// subscriber is slow, drop the message
		}
	}
}

func copyFlags(f map[string]bool) map[string]bool {
	if f == nil {
		return nil
	}
	cp := make(map[string]bool, len(f))
	for k, v := range f {
		cp[k] = v
	}
	return cp
}
