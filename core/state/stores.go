package state

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"pqlchain/native/rng"
)

var (
	entropyPrefix    = []byte("pql/entropy/")
	rngRequestPrefix = []byte("pql/rng/request/")
	rngResultPrefix  = []byte("pql/rng/result/")
	rngCounterSeed   = []byte("pql/rng/counter")
)

func uint64Payload(id uint64) []byte {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, id)
	return payload
}

// EntropyGet loads a stored entropy result.
func (m *Manager) EntropyGet(id [32]byte) ([32]byte, bool, error) {
	raw, ok, err := m.get(prefixedKey(entropyPrefix, id[:]))
	if err != nil || !ok {
		return [32]byte{}, false, err
	}
	if len(raw) != 32 {
		return [32]byte{}, false, fmt.Errorf("state: malformed entropy record")
	}
	var result [32]byte
	copy(result[:], raw)
	return result, true, nil
}

// EntropyPut stores an entropy result for a request id.
func (m *Manager) EntropyPut(id [32]byte, result [32]byte) error {
	return m.db.Put(prefixedKey(entropyPrefix, id[:]), result[:])
}

type storedRNGBounds struct {
	Min uint32
	Max uint32
}

// RNGRequestGet loads the bounds recorded with a request.
func (m *Manager) RNGRequestGet(id uint64) (rng.Bounds, bool, error) {
	raw, ok, err := m.get(prefixedKey(rngRequestPrefix, uint64Payload(id)))
	if err != nil || !ok {
		return rng.Bounds{}, false, err
	}
	var stored storedRNGBounds
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return rng.Bounds{}, false, fmt.Errorf("state: decode rng request: %w", err)
	}
	return rng.Bounds{Min: stored.Min, Max: stored.Max}, true, nil
}

// RNGRequestPut records the bounds for a request.
func (m *Manager) RNGRequestPut(id uint64, bounds rng.Bounds) error {
	encoded, err := rlp.EncodeToBytes(&storedRNGBounds{Min: bounds.Min, Max: bounds.Max})
	if err != nil {
		return fmt.Errorf("state: encode rng request: %w", err)
	}
	return m.db.Put(prefixedKey(rngRequestPrefix, uint64Payload(id)), encoded)
}

// RNGResultGet loads a stored random draw.
func (m *Manager) RNGResultGet(id uint64) (uint32, bool, error) {
	raw, ok, err := m.get(prefixedKey(rngResultPrefix, uint64Payload(id)))
	if err != nil || !ok {
		return 0, false, err
	}
	var result uint32
	if err := rlp.DecodeBytes(raw, &result); err != nil {
		return 0, false, fmt.Errorf("state: decode rng result: %w", err)
	}
	return result, true, nil
}

// RNGResultPut stores a random draw for a request id.
func (m *Manager) RNGResultPut(id uint64, result uint32) error {
	encoded, err := rlp.EncodeToBytes(result)
	if err != nil {
		return fmt.Errorf("state: encode rng result: %w", err)
	}
	return m.db.Put(prefixedKey(rngResultPrefix, uint64Payload(id)), encoded)
}

// RNGCounterNext increments and returns the rng request counter.
func (m *Manager) RNGCounterNext() (uint64, error) {
	key := prefixedKey(rngCounterSeed, nil)
	raw, ok, err := m.get(key)
	if err != nil {
		return 0, err
	}
	var counter uint64
	if ok {
		if err := rlp.DecodeBytes(raw, &counter); err != nil {
			return 0, fmt.Errorf("state: decode rng counter: %w", err)
		}
	}
	counter++
	encoded, err := rlp.EncodeToBytes(counter)
	if err != nil {
		return 0, fmt.Errorf("state: encode rng counter: %w", err)
	}
	if err := m.db.Put(key, encoded); err != nil {
		return 0, err
	}
	return counter, nil
}
