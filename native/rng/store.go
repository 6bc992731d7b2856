// Package rng is a single-writer random-number request store: callers ask for
// an integer in an inclusive range, the owner writes one result per request.
// No escrow, no expiry.
package rng

import (
	"errors"

	"pqlchain/core/events"
)

var (
	ErrResultNotFound   = errors.New("rng: result not found")
	ErrPermissionDenied = errors.New("rng: permission denied")
	ErrDuplicateResult  = errors.New("rng: duplicate result")
	ErrInvalidRequest   = errors.New("rng: invalid request")
	ErrInvalidResult    = errors.New("rng: result out of range")
)

// Bounds is the inclusive range recorded with a request.
type Bounds struct {
	Min uint32
	Max uint32
}

type storeState interface {
	RNGRequestGet(id uint64) (Bounds, bool, error)
	RNGRequestPut(id uint64, bounds Bounds) error
	RNGResultGet(id uint64) (uint32, bool, error)
	RNGResultPut(id uint64, result uint32) error
	RNGCounterNext() (uint64, error)
}

// Store mediates access to the rng request and result maps.
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

// MakeRequest allocates a request id for a random integer in [min, max].
func (s *Store) MakeRequest(caller [20]byte, min, max uint32) (uint64, error) {
	id, err := s.state.RNGCounterNext()
	if err != nil {
		return 0, err
	}
	if err := s.state.RNGRequestPut(id, Bounds{Min: min, Max: max}); err != nil {
		return 0, err
	}
	s.emitter.Emit(events.RNGRequested{From: caller, RequestID: id, Min: min, Max: max})
	return id, nil
}

// WriteResult stores a drawn integer for a request. Owner-only, write-once,
// and the value must land inside the requested range.
func (s *Store) WriteResult(caller [20]byte, id uint64, result uint32) error {
	if _, ok, err := s.state.RNGResultGet(id); err != nil {
		return err
	} else if ok {
		return ErrDuplicateResult
	}
	bounds, ok, err := s.state.RNGRequestGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidRequest
	}
	if result < bounds.Min || result > bounds.Max {
		return ErrInvalidResult
	}
	if caller != s.owner {
		return ErrPermissionDenied
	}
	return s.state.RNGResultPut(id, result)
}

// Result returns the stored integer for a request id.
func (s *Store) Result(id uint64) (uint32, error) {
	result, ok, err := s.state.RNGResultGet(id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrResultNotFound
	}
	return result, nil
}
