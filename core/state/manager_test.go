package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"pqlchain/core/types"
	"pqlchain/native/oracle"
	"pqlchain/native/rng"
	"pqlchain/storage"
)

func TestAccountRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10, 0x11, 0x12, 0x13, 0x14}

	fresh, err := m.GetAccount(addr)
	require.NoError(t, err)
	require.Zero(t, fresh.Balance.Sign(), "unknown address must resolve to a zero account")

	fresh.Nonce = 3
	fresh.Balance = big.NewInt(1_000)
	require.NoError(t, m.PutAccount(addr, fresh))

	loaded, err := m.GetAccount(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(3), loaded.Nonce)
	require.Equal(t, int64(1_000), loaded.Balance.Int64())
}

func TestOracleStatePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	m1 := NewManager(db1)

	global := &oracle.GlobalState{
		Admin:          [20]byte{0x01},
		Oracle:         [20]byte{0x02},
		Users:          [][20]byte{{0x03}, {0x04}},
		FeeWei:         big.NewInt(100),
		MinValidPeriod: 1,
		MaxValidPeriod: 1_000,
		NextRequestID:  7,
		Reserved:       big.NewInt(100),
	}
	require.NoError(t, m1.OracleGlobalPut(global))

	req := &oracle.Request{
		ID:          7,
		Requester:   [20]byte{0x03},
		Descriptor:  [32]byte{0x42},
		ValidTill:   99,
		EscrowedFee: big.NewInt(100),
	}
	require.NoError(t, m1.OracleRequestPut(req))
	require.NoError(t, db1.Close())

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()
	m2 := NewManager(db2)

	restored, ok, err := m2.OracleGlobalGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, global.Users, restored.Users)
	require.Equal(t, uint64(7), restored.NextRequestID)
	require.Equal(t, int64(100), restored.FeeWei.Int64())

	loaded, ok, err := m2.OracleRequestGet(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, req.Descriptor, loaded.Descriptor)
	require.Equal(t, uint64(99), loaded.ValidTill)

	require.NoError(t, m2.OracleRequestDelete(7))
	_, ok, err = m2.OracleRequestGet(7)
	require.NoError(t, err)
	require.False(t, ok, "deleted request must be gone")
	require.NoError(t, m2.OracleRequestDelete(7), "deleting an absent id is a no-op")
}

func TestRNGStateRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	first, err := m.RNGCounterNext()
	require.NoError(t, err)
	second, err := m.RNGCounterNext()
	require.NoError(t, err)
	require.Equal(t, first+1, second)

	require.NoError(t, m.RNGRequestPut(first, rng.Bounds{Min: 5, Max: 10}))
	bounds, ok, err := m.RNGRequestGet(first)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(5), bounds.Min)

	require.NoError(t, m.RNGResultPut(first, 7))
	result, ok, err := m.RNGResultGet(first)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(7), result)
}

func TestEntropyRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	id := [32]byte{0x01}

	_, ok, err := m.EntropyGet(id)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.EntropyPut(id, [32]byte{0x42}))
	result, ok, err := m.EntropyGet(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, byte(0x42), result[0])
}

// The broker engine running over the real manager, end to end: escrow moves
// into the vault on submit and back to the requester on expiry.
func TestEngineOverManager(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	admin := [20]byte{0x01}
	oracleID := [20]byte{0x02}
	user := [20]byte{0x03}

	require.NoError(t, m.PutAccount(user[:], &types.Account{Balance: big.NewInt(500)}))

	var height uint64
	engine := oracle.NewEngine()
	engine.SetState(m)
	engine.SetBlockFunc(func() uint64 { return height })
	require.NoError(t, engine.Initialise(admin, oracleID, [][20]byte{user}, big.NewInt(100), 1, 100))

	id, err := engine.Submit(user, big.NewInt(100), [32]byte{0x42}, 10)
	require.NoError(t, err)

	vault, err := m.OracleVaultAddress()
	require.NoError(t, err)
	vaultAcct, err := m.GetAccount(vault[:])
	require.NoError(t, err)
	require.Equal(t, int64(100), vaultAcct.Balance.Int64())

	height = 11
	require.NoError(t, engine.ClearExpired(oracleID, id))

	userAcct, err := m.GetAccount(user[:])
	require.NoError(t, err)
	require.Equal(t, int64(500), userAcct.Balance.Int64(), "balance must return to the pre-submission level")
}
