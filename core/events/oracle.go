package events

import (
	"encoding/hex"
	"math/big"

	"pqlchain/core/types"
	"pqlchain/crypto"
)

const (
	TypeOracleRequestCreated     = "oracle.request.created"
	TypeOracleRequestInvalidated = "oracle.request.invalidated"
	TypeOracleRequestFulfilled   = "oracle.request.fulfilled"
	TypeOracleRewardsClaimed     = "oracle.rewards.claimed"
	TypeOracleRotated            = "oracle.rotated"
	TypeOracleFeeChanged         = "oracle.fee.changed"
	TypeOracleUserAdded          = "oracle.user.added"
	TypeOracleUserRemoved        = "oracle.user.removed"
)

// OracleRequestCreated is emitted when a requester successfully registers a
// query with the broker. The descriptor names the off-chain workload; the fee
// is the amount escrowed at submission time.
type OracleRequestCreated struct {
	ID         uint64
	Requester  [20]byte
	Descriptor [32]byte
	ValidTill  uint64
	Fee        *big.Int
}

func (OracleRequestCreated) EventType() string { return TypeOracleRequestCreated }

func (e OracleRequestCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleRequestCreated,
		Attributes: map[string]string{
			"id":         uintToString(e.ID),
			"requester":  crypto.MustNewAddress(e.Requester[:]).String(),
			"descriptor": hex.EncodeToString(e.Descriptor[:]),
			"validTill":  uintToString(e.ValidTill),
			"fee":        formatAmount(e.Fee),
		},
	}
}

// OracleRequestInvalidated is emitted when an expired request is retired and
// its escrowed fee returned to the requester.
type OracleRequestInvalidated struct {
	ID        uint64
	Requester [20]byte
	Amount    *big.Int
}

func (OracleRequestInvalidated) EventType() string { return TypeOracleRequestInvalidated }

func (e OracleRequestInvalidated) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleRequestInvalidated,
		Attributes: map[string]string{
			"id":        uintToString(e.ID),
			"requester": crypto.MustNewAddress(e.Requester[:]).String(),
			"amount":    formatAmount(e.Amount),
		},
	}
}

// OracleRequestFulfilled is emitted after a confirmed callback delivery. The
// result kind and value are rendered as strings so downstream indexers do not
// need the module's wire types.
type OracleRequestFulfilled struct {
	ID          uint64
	Target      [20]byte
	ResultKind  string
	ResultValue string
}

func (OracleRequestFulfilled) EventType() string { return TypeOracleRequestFulfilled }

func (e OracleRequestFulfilled) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleRequestFulfilled,
		Attributes: map[string]string{
			"id":          uintToString(e.ID),
			"target":      crypto.MustNewAddress(e.Target[:]).String(),
			"resultKind":  e.ResultKind,
			"resultValue": e.ResultValue,
		},
	}
}

// OracleRewardsClaimed is emitted when the oracle sweeps the accrued balance.
type OracleRewardsClaimed struct {
	Oracle [20]byte
	Amount *big.Int
}

func (OracleRewardsClaimed) EventType() string { return TypeOracleRewardsClaimed }

func (e OracleRewardsClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleRewardsClaimed,
		Attributes: map[string]string{
			"oracle": crypto.MustNewAddress(e.Oracle[:]).String(),
			"amount": formatAmount(e.Amount),
		},
	}
}

// OracleRotated is emitted when the admin swaps the trusted oracle identity.
type OracleRotated struct {
	Previous [20]byte
	Next     [20]byte
}

func (OracleRotated) EventType() string { return TypeOracleRotated }

func (e OracleRotated) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleRotated,
		Attributes: map[string]string{
			"previous": crypto.MustNewAddress(e.Previous[:]).String(),
			"next":     crypto.MustNewAddress(e.Next[:]).String(),
		},
	}
}

// OracleFeeChanged is emitted when the admin updates the submission fee.
// Pending requests keep the fee that was escrowed when they were created.
type OracleFeeChanged struct {
	Previous *big.Int
	Next     *big.Int
}

func (OracleFeeChanged) EventType() string { return TypeOracleFeeChanged }

func (e OracleFeeChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleFeeChanged,
		Attributes: map[string]string{
			"previous": formatAmount(e.Previous),
			"next":     formatAmount(e.Next),
		},
	}
}

// OracleUserAdded is emitted when an identity is granted submit access.
type OracleUserAdded struct {
	User [20]byte
}

func (OracleUserAdded) EventType() string { return TypeOracleUserAdded }

func (e OracleUserAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleUserAdded,
		Attributes: map[string]string{
			"user": crypto.MustNewAddress(e.User[:]).String(),
		},
	}
}

// OracleUserRemoved is emitted when an identity loses submit access.
type OracleUserRemoved struct {
	User [20]byte
}

func (OracleUserRemoved) EventType() string { return TypeOracleUserRemoved }

func (e OracleUserRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleUserRemoved,
		Attributes: map[string]string{
			"user": crypto.MustNewAddress(e.User[:]).String(),
		},
	}
}
