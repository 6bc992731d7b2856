// Package etl announces ETL workload descriptors to off-chain listeners. The
// store keeps no per-request state: a request is an event, nothing more.
package etl

import "pqlchain/core/events"

// Store emits descriptor announcements.
type Store struct {
	emitter events.Emitter
}

// NewStore constructs a store with a no-op emitter.
func NewStore() *Store {
	return &Store{emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (s *Store) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// Request announces a descriptor. The descriptor is the content address of
// the workload definition with the leading multihash bytes stripped so it
// fits in 32 bytes.
func (s *Store) Request(caller [20]byte, descriptor [32]byte) {
	s.emitter.Emit(events.ETLRequested{From: caller, Descriptor: descriptor})
}
