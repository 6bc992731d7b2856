// Package entropy is a single-writer keyed request store: callers register an
// opaque request id, the owner later writes the entropy result. There is no
// escrow or expiry; completion overwrites the zero placeholder in place.
package entropy

import (
	"errors"

	"pqlchain/core/events"
)

var (
	ErrRequestExists    = errors.New("entropy: request already exists")
	ErrResultNotFound   = errors.New("entropy: result not found")
	ErrPermissionDenied = errors.New("entropy: permission denied")
)

type storeState interface {
	EntropyGet(id [32]byte) ([32]byte, bool, error)
	EntropyPut(id [32]byte, result [32]byte) error
}

// Store mediates access to the entropy request map.
type Store struct {
	state   storeState
	owner   [20]byte
	emitter events.Emitter
}

// NewStore constructs a store whose results may only be written by owner.
func NewStore(owner [20]byte) *Store {
	return &Store{owner: owner, emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the store.
func (s *Store) SetState(state storeState) { s.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (s *Store) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// MakeRequest registers a new request id with a zero result placeholder.
func (s *Store) MakeRequest(caller [20]byte, id [32]byte) error {
	if _, ok, err := s.state.EntropyGet(id); err != nil {
		return err
	} else if ok {
		return ErrRequestExists
	}
	if err := s.state.EntropyPut(id, [32]byte{}); err != nil {
		return err
	}
	s.emitter.Emit(events.EntropyRequested{From: caller, RequestID: id})
	return nil
}

// WriteResult stores the entropy for a request. Owner-only.
func (s *Store) WriteResult(caller [20]byte, id [32]byte, result [32]byte) error {
	if caller != s.owner {
		return ErrPermissionDenied
	}
	return s.state.EntropyPut(id, result)
}

// Result returns the stored entropy for a request id.
func (s *Store) Result(id [32]byte) ([32]byte, error) {
	result, ok, err := s.state.EntropyGet(id)
	if err != nil {
		return [32]byte{}, err
	}
	if !ok {
		return [32]byte{}, ErrResultNotFound
	}
	return result, nil
}
