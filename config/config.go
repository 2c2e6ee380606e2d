package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"stakevault/crypto"
)

// Config is the daemon configuration loaded from TOML.
type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	Environment string `toml:"Environment"`
	Vault       Vault  `toml:"Vault"`
}

// Vault holds the genesis parameters used to initialise a fresh staking
// ledger. They are ignored once the database has been seeded; later changes go
// through the owner-gated admin operations.
type Vault struct {
	Owner           string `toml:"Owner"`
	FeeAddress      string `toml:"FeeAddress"`
	Collection      string `toml:"Collection"`
	RewardDenom     string `toml:"RewardDenom"`
	DurationSeconds uint64 `toml:"DurationSeconds"`
	UnstakeFee      string `toml:"UnstakeFee"`
	Enabled         bool   `toml:"Enabled"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown field %s", path, undecoded[0].String())
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./stakevault-data"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
}

// createDefault creates and saves a default configuration file. A fresh owner
// key is generated so the file is immediately usable on a local network.
func createDefault(path string) (*Config, error) {
	ownerKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	feeKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	collectionKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:  ":8645",
		DataDir:     "./stakevault-data",
		Environment: "local",
		Vault: Vault{
			Owner:           ownerKey.PubKey().Address().String(),
			FeeAddress:      feeKey.PubKey().Address().String(),
			Collection:      collectionKey.PubKey().Address().String(),
			RewardDenom:     "ustk",
			DurationSeconds: 30 * 24 * 60 * 60,
			UnstakeFee:      "1000000000000000000",
			Enabled:         true,
		},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}

// Validate checks the configuration for structural problems before the daemon
// starts.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil configuration")
	}
	for field, value := range map[string]string{
		"Vault.Owner":      c.Vault.Owner,
		"Vault.FeeAddress": c.Vault.FeeAddress,
		"Vault.Collection": c.Vault.Collection,
	} {
		if _, err := crypto.DecodeAddress(value); err != nil {
			return fmt.Errorf("config: invalid %s: %w", field, err)
		}
	}
	if strings.TrimSpace(c.Vault.RewardDenom) == "" {
		return fmt.Errorf("config: Vault.RewardDenom must be set")
	}
	if c.Vault.DurationSeconds == 0 {
		return fmt.Errorf("config: Vault.DurationSeconds must be positive")
	}
	if _, err := c.UnstakeFee(); err != nil {
		return err
	}
	return nil
}

// OwnerAddress returns the decoded owner address.
func (c *Config) OwnerAddress() (crypto.Address, error) {
	return crypto.DecodeAddress(c.Vault.Owner)
}

// FeeAddress returns the decoded fee recipient address.
func (c *Config) FeeAddress() (crypto.Address, error) {
	return crypto.DecodeAddress(c.Vault.FeeAddress)
}

// CollectionAddress returns the decoded collection address.
func (c *Config) CollectionAddress() (crypto.Address, error) {
	return crypto.DecodeAddress(c.Vault.Collection)
}

// UnstakeFee parses the configured early-exit fee.
func (c *Config) UnstakeFee() (*big.Int, error) {
	trimmed := strings.TrimSpace(c.Vault.UnstakeFee)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	fee, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("config: Vault.UnstakeFee must be a non-negative integer")
	}
	return fee, nil
}
