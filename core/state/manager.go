package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"pqlchain/core/types"
	"pqlchain/storage"
)

var (
	accountPrefix = []byte("pql/account/")

	// vaultSeed derives the module account that escrows submission fees and
	// accrues oracle rewards. No private key exists for it.
	vaultSeed = []byte("pqlchain/oracle/vault")
)

// Manager persists ledger state in a key-value backend. Records are RLP
// encoded under keccak-hashed, prefix-scoped keys.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func prefixedKey(prefix, payload []byte) []byte {
	buf := make([]byte, len(prefix)+len(payload))
	copy(buf, prefix)
	copy(buf[len(prefix):], payload)
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

// GetAccount loads the account for an address. Unknown addresses resolve to a
// zero-balance account rather than an error.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	raw, ok, err := m.get(prefixedKey(accountPrefix, addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	var stored storedAccount
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	acct := &types.Account{Nonce: stored.Nonce, Balance: stored.Balance}
	return acct.EnsureDefaults(), nil
}

// PutAccount persists the account for an address.
func (m *Manager) PutAccount(addr []byte, acct *types.Account) error {
	if acct == nil {
		return fmt.Errorf("state: nil account")
	}
	acct = acct.EnsureDefaults()
	encoded, err := rlp.EncodeToBytes(&storedAccount{Nonce: acct.Nonce, Balance: acct.Balance})
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	return m.db.Put(prefixedKey(accountPrefix, addr), encoded)
}

// OracleVaultAddress returns the deterministic module account holding escrow
// and rewards.
func (m *Manager) OracleVaultAddress() ([20]byte, error) {
	digest := ethcrypto.Keccak256(vaultSeed)
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr, nil
}
