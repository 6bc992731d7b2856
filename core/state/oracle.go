package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"pqlchain/native/oracle"
)

var (
	oracleGlobalKeySeed = []byte("pql/oracle/global")
	oracleRequestPrefix = []byte("pql/oracle/request/")
)

func oracleRequestKey(id uint64) []byte {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, id)
	return prefixedKey(oracleRequestPrefix, payload)
}

type storedOracleGlobal struct {
	Admin          [20]byte
	Oracle         [20]byte
	Users          [][20]byte
	FeeWei         *big.Int
	MinValidPeriod uint64
	MaxValidPeriod uint64
	NextRequestID  uint64
	Reserved       *big.Int
}

type storedOracleRequest struct {
	ID          uint64
	Requester   [20]byte
	Descriptor  [32]byte
	ValidTill   uint64
	EscrowedFee *big.Int
}

// OracleGlobalGet loads the broker singleton state.
func (m *Manager) OracleGlobalGet() (*oracle.GlobalState, bool, error) {
	raw, ok, err := m.get(prefixedKey(oracleGlobalKeySeed, nil))
	if err != nil || !ok {
		return nil, false, err
	}
	var stored storedOracleGlobal
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("state: decode oracle global: %w", err)
	}
	global := &oracle.GlobalState{
		Admin:          stored.Admin,
		Oracle:         stored.Oracle,
		Users:          stored.Users,
		FeeWei:         stored.FeeWei,
		MinValidPeriod: stored.MinValidPeriod,
		MaxValidPeriod: stored.MaxValidPeriod,
		NextRequestID:  stored.NextRequestID,
		Reserved:       stored.Reserved,
	}
	return global.EnsureDefaults(), true, nil
}

// OracleGlobalPut persists the broker singleton state.
func (m *Manager) OracleGlobalPut(global *oracle.GlobalState) error {
	if global == nil {
		return fmt.Errorf("state: nil oracle global")
	}
	global = global.Clone().EnsureDefaults()
	encoded, err := rlp.EncodeToBytes(&storedOracleGlobal{
		Admin:          global.Admin,
		Oracle:         global.Oracle,
		Users:          global.Users,
		FeeWei:         global.FeeWei,
		MinValidPeriod: global.MinValidPeriod,
		MaxValidPeriod: global.MaxValidPeriod,
		NextRequestID:  global.NextRequestID,
		Reserved:       global.Reserved,
	})
	if err != nil {
		return fmt.Errorf("state: encode oracle global: %w", err)
	}
	return m.db.Put(prefixedKey(oracleGlobalKeySeed, nil), encoded)
}

// OracleRequestGet loads a pending request by id.
func (m *Manager) OracleRequestGet(id uint64) (*oracle.Request, bool, error) {
	raw, ok, err := m.get(oracleRequestKey(id))
	if err != nil || !ok {
		return nil, false, err
	}
	var stored storedOracleRequest
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("state: decode oracle request: %w", err)
	}
	req := &oracle.Request{
		ID:          stored.ID,
		Requester:   stored.Requester,
		Descriptor:  stored.Descriptor,
		ValidTill:   stored.ValidTill,
		EscrowedFee: stored.EscrowedFee,
	}
	if req.EscrowedFee == nil {
		req.EscrowedFee = big.NewInt(0)
	}
	return req, true, nil
}

// OracleRequestPut persists a pending request.
func (m *Manager) OracleRequestPut(req *oracle.Request) error {
	if req == nil {
		return fmt.Errorf("state: nil oracle request")
	}
	req = req.Clone()
	encoded, err := rlp.EncodeToBytes(&storedOracleRequest{
		ID:          req.ID,
		Requester:   req.Requester,
		Descriptor:  req.Descriptor,
		ValidTill:   req.ValidTill,
		EscrowedFee: req.EscrowedFee,
	})
	if err != nil {
		return fmt.Errorf("state: encode oracle request: %w", err)
	}
	return m.db.Put(oracleRequestKey(req.ID), encoded)
}

// OracleRequestDelete retires a request. Deleting an absent id is a no-op.
func (m *Manager) OracleRequestDelete(id uint64) error {
	return m.db.Delete(oracleRequestKey(id))
}
