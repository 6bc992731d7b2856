package events

import (
	"encoding/hex"

	"pqlchain/core/types"
	"pqlchain/crypto"
)

const (
	TypeEntropyRequested = "entropy.requested"
	TypeRNGRequested     = "rng.requested"
	TypeETLRequested     = "etl.requested"
)

// EntropyRequested is emitted when a caller registers an entropy request.
type EntropyRequested struct {
	From      [20]byte
	RequestID [32]byte
}

func (EntropyRequested) EventType() string { return TypeEntropyRequested }

func (e EntropyRequested) Event() *types.Event {
	return &types.Event{
		Type: TypeEntropyRequested,
		Attributes: map[string]string{
			"from":      crypto.MustNewAddress(e.From[:]).String(),
			"requestId": hex.EncodeToString(e.RequestID[:]),
		},
	}
}

// RNGRequested is emitted when a caller asks for a random integer in a range.
type RNGRequested struct {
	From      [20]byte
	RequestID uint64
	Min       uint32
	Max       uint32
}

func (RNGRequested) EventType() string { return TypeRNGRequested }

func (e RNGRequested) Event() *types.Event {
	return &types.Event{
		Type: TypeRNGRequested,
		Attributes: map[string]string{
			"from":      crypto.MustNewAddress(e.From[:]).String(),
			"requestId": uintToString(e.RequestID),
			"min":       uintToString(uint64(e.Min)),
			"max":       uintToString(uint64(e.Max)),
		},
	}
}

// ETLRequested is emitted for fire-and-forget ETL descriptor announcements.
type ETLRequested struct {
	From       [20]byte
	Descriptor [32]byte
}

func (ETLRequested) EventType() string { return TypeETLRequested }

func (e ETLRequested) Event() *types.Event {
	return &types.Event{
		Type: TypeETLRequested,
		Attributes: map[string]string{
			"from":       crypto.MustNewAddress(e.From[:]).String(),
			"descriptor": hex.EncodeToString(e.Descriptor[:]),
		},
	}
}
