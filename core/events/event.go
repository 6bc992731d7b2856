package events

import (
	"sync"

	"pqlchain/core/types"
)

// Event represents a structured state change emitted by the chain.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MemoryEmitter buffers emitted events in order. The RPC layer drains it after
// each call to surface events to clients; tests use it to assert emissions.
type MemoryEmitter struct {
	mu     sync.Mutex
	buffer []*types.Event
}

// NewMemoryEmitter constructs an empty in-memory emitter.
func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{}
}

// Emit implements the Emitter interface.
func (m *MemoryEmitter) Emit(evt Event) {
	if m == nil || evt == nil {
		return
	}
	payload, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	record := payload.Event()
	if record == nil {
		return
	}
	m.mu.Lock()
	m.buffer = append(m.buffer, record)
	m.mu.Unlock()
}

// Drain returns the buffered events and clears the buffer.
func (m *MemoryEmitter) Drain() []*types.Event {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	drained := m.buffer
	m.buffer = nil
	return drained
}
