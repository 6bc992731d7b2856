package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"pqlchain/crypto"
	"pqlchain/native/oracle"
)

// Config is the daemon configuration loaded from TOML.
type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	NetworkName string `toml:"NetworkName"`

	// Genesis identities, bech32 encoded with the pql prefix.
	Admin  string   `toml:"Admin"`
	Oracle string   `toml:"Oracle"`
	Users  []string `toml:"Users"`

	// FeeWei is the exact escrow required per submission, as a decimal
	// string. Zero disables fee collection.
	FeeWei         string `toml:"FeeWei"`
	MinValidPeriod uint64 `toml:"MinValidPeriod"`
	MaxValidPeriod uint64 `toml:"MaxValidPeriod"`

	// CounterMode is "wrapping" (default, ids recycle after 2^64
	// allocations) or "saturating" (submissions fail once the id space is
	// exhausted).
	CounterMode string `toml:"CounterMode"`
	// ReserveEscrow keeps pending escrow out of reward sweeps. Off by
	// default to match the original ledger semantics.
	ReserveEscrow bool `toml:"ReserveEscrow"`
	// SubsistenceWei is the minimum-existence threshold enforced on
	// transfer recipients, as a decimal string. Zero disables the check.
	SubsistenceWei string `toml:"SubsistenceWei"`
}

// Load reads the configuration from the given path, writing defaults when the
// file does not exist yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./pqld-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "pql-local"
	}
	if strings.TrimSpace(cfg.FeeWei) == "" {
		cfg.FeeWei = "0"
	}
	if cfg.MinValidPeriod == 0 {
		cfg.MinValidPeriod = 1
	}
	if cfg.MaxValidPeriod == 0 {
		cfg.MaxValidPeriod = 100_000
	}
	if strings.TrimSpace(cfg.CounterMode) == "" {
		cfg.CounterMode = "wrapping"
	}
	if strings.TrimSpace(cfg.SubsistenceWei) == "" {
		cfg.SubsistenceWei = "0"
	}
	if cfg.Users == nil {
		cfg.Users = []string{}
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks identity encodings and numeric fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Admin) != "" {
		if _, err := crypto.DecodeAddress(c.Admin); err != nil {
			return fmt.Errorf("config: invalid Admin address: %w", err)
		}
	}
	if strings.TrimSpace(c.Oracle) == "" {
		return fmt.Errorf("config: Oracle address is required")
	}
	if _, err := crypto.DecodeAddress(c.Oracle); err != nil {
		return fmt.Errorf("config: invalid Oracle address: %w", err)
	}
	for _, user := range c.Users {
		if _, err := crypto.DecodeAddress(user); err != nil {
			return fmt.Errorf("config: invalid user address %q: %w", user, err)
		}
	}
	if _, err := c.Fee(); err != nil {
		return err
	}
	if _, err := c.Subsistence(); err != nil {
		return err
	}
	if c.MinValidPeriod > c.MaxValidPeriod {
		return fmt.Errorf("config: MinValidPeriod exceeds MaxValidPeriod")
	}
	if _, err := c.Counter(); err != nil {
		return err
	}
	return nil
}

// Fee parses the configured submission fee.
func (c *Config) Fee() (*big.Int, error) {
	return parseWei("FeeWei", c.FeeWei)
}

// Subsistence parses the configured minimum-existence threshold.
func (c *Config) Subsistence() (*big.Int, error) {
	return parseWei("SubsistenceWei", c.SubsistenceWei)
}

// Counter maps the configured counter mode onto the engine's enum.
func (c *Config) Counter() (oracle.CounterMode, error) {
	switch strings.ToLower(strings.TrimSpace(c.CounterMode)) {
	case "", "wrapping":
		return oracle.CounterWrapping, nil
	case "saturating":
		return oracle.CounterSaturating, nil
	default:
		return 0, fmt.Errorf("config: unknown CounterMode %q", c.CounterMode)
	}
}

func parseWei(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("config: %s is not a decimal integer: %q", field, value)
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("config: %s must be non-negative", field)
	}
	return parsed, nil
}
