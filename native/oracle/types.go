package oracle

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
)

// CounterMode selects how the request id counter behaves once it reaches the
// top of the u64 range.
type CounterMode uint8

const (
	// CounterWrapping recycles ids after 2^64 allocations. A full cycle can
	// resurrect a stale id collision; operators accepting that risk get the
	// original ledger semantics.
	CounterWrapping CounterMode = iota
	// CounterSaturating refuses new submissions once the id space is
	// exhausted instead of recycling ids.
	CounterSaturating
)

// GlobalState is the broker singleton: admin and oracle identities, the
// curated submitter list, fee and validity-window configuration, and the
// request id counter. It is persisted as a single record and passed by
// exclusive reference into each operation.
type GlobalState struct {
	Admin          [20]byte
	Oracle         [20]byte
	Users          [][20]byte
	FeeWei         *big.Int
	MinValidPeriod uint64
	MaxValidPeriod uint64
	NextRequestID  uint64
	// Reserved tracks the sum of escrowed fees across pending requests. It
	// is only consulted when the engine runs with escrow reservation
	// enabled; the default sweep-everything mode ignores it.
	Reserved *big.Int
}

// EnsureDefaults normalises nil big.Int fields in place and returns the state.
func (g *GlobalState) EnsureDefaults() *GlobalState {
	if g == nil {
		return nil
	}
	if g.FeeWei == nil {
		g.FeeWei = big.NewInt(0)
	}
	if g.Reserved == nil {
		g.Reserved = big.NewInt(0)
	}
	return g
}

// Clone returns a deep copy of the global state.
func (g *GlobalState) Clone() *GlobalState {
	if g == nil {
		return nil
	}
	clone := *g
	clone.Users = make([][20]byte, len(g.Users))
	copy(clone.Users, g.Users)
	clone.FeeWei = big.NewInt(0)
	if g.FeeWei != nil {
		clone.FeeWei = new(big.Int).Set(g.FeeWei)
	}
	clone.Reserved = big.NewInt(0)
	if g.Reserved != nil {
		clone.Reserved = new(big.Int).Set(g.Reserved)
	}
	return &clone
}

// HasUser reports whether the identity is on the submitter list.
func (g *GlobalState) HasUser(user [20]byte) bool {
	if g == nil {
		return false
	}
	for _, existing := range g.Users {
		if existing == user {
			return true
		}
	}
	return false
}

// AddUser appends the identity to the submitter list. Adding a present user is
// a silent no-op; the returned flag reports whether the list changed.
func (g *GlobalState) AddUser(user [20]byte) bool {
	if g == nil || g.HasUser(user) {
		return false
	}
	g.Users = append(g.Users, user)
	return true
}

// RemoveUser drops the identity from the submitter list. Removing an absent
// user is a silent no-op; the returned flag reports whether the list changed.
func (g *GlobalState) RemoveUser(user [20]byte) bool {
	if g == nil {
		return false
	}
	for i, existing := range g.Users {
		if existing == user {
			g.Users = append(g.Users[:i], g.Users[i+1:]...)
			return true
		}
	}
	return false
}

// Request is a pending broker entry. A request exists in the ledger iff it is
// pending: fulfilment and refund are both represented by deletion, there is no
// separate closed record.
type Request struct {
	ID          uint64
	Requester   [20]byte
	Descriptor  [32]byte
	ValidTill   uint64
	EscrowedFee *big.Int
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	clone := *r
	clone.EscrowedFee = big.NewInt(0)
	if r.EscrowedFee != nil {
		clone.EscrowedFee = new(big.Int).Set(r.EscrowedFee)
	}
	return &clone
}

// Expired reports whether the request's validity window has passed at the
// supplied block height.
func (r *Request) Expired(currentBlock uint64) bool {
	if r == nil {
		return false
	}
	return r.ValidTill < currentBlock
}

// ResultKind tags the two supported oracle result variants.
type ResultKind uint8

const (
	ResultNumeric ResultKind = iota
	ResultRawBytes
)

// Valid reports whether the kind is within the supported range.
func (k ResultKind) Valid() bool {
	switch k {
	case ResultNumeric, ResultRawBytes:
		return true
	default:
		return false
	}
}

func (k ResultKind) String() string {
	switch k {
	case ResultNumeric:
		return "numeric"
	case ResultRawBytes:
		return "rawBytes"
	default:
		return "unknown"
	}
}

// Result is the tagged payload delivered to a callback target. The recipient
// is responsible for interpreting which variant it expects.
type Result struct {
	Kind    ResultKind
	Numeric int64
	Raw     [32]byte
}

// NumericResult builds a signed integer reading.
func NumericResult(v int64) Result {
	return Result{Kind: ResultNumeric, Numeric: v}
}

// RawBytesResult builds a fixed-size raw payload.
func RawBytesResult(b [32]byte) Result {
	return Result{Kind: ResultRawBytes, Raw: b}
}

// ValueString renders the payload for events and logs.
func (r Result) ValueString() string {
	switch r.Kind {
	case ResultNumeric:
		return strconv.FormatInt(r.Numeric, 10)
	case ResultRawBytes:
		return hex.EncodeToString(r.Raw[:])
	default:
		return ""
	}
}

// Validate rejects results with an unknown tag.
func (r Result) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("oracle: invalid result kind %d", r.Kind)
	}
	return nil
}
