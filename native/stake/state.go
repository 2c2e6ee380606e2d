package stake

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"stakevault/storage"
)

var (
	configKey       = ethcrypto.Keccak256([]byte("stake/config"))
	countersKey     = ethcrypto.Keccak256([]byte("stake/counters"))
	accountIndexKey = ethcrypto.Keccak256([]byte("stake/account-index"))
	accountPrefix   = []byte("stake/account/")
)

func accountKey(addr [20]byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr[:])
	return ethcrypto.Keccak256(buf)
}

// Manager persists the staking ledger over a key-value database. Records are
// RLP encoded under keccak-hashed keys; a sorted account index supports full
// scans in ascending address order.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

type storedConfig struct {
	Owner       [20]byte
	FeeAddress  [20]byte
	Collection  [20]byte
	RewardDenom string
	Duration    uint64
	Enabled     bool
}

type storedCounters struct {
	TotalStaked      uint64
	TotalDistributed *big.Int
	UnstakeFee       *big.Int
	EpochStart       uint64
	EpochActive      bool
}

type storedRecord struct {
	ItemID     string
	Collection [20]byte
	LockExpiry uint64
	Reward     *big.Int
}

type storedAccount struct {
	Address     [20]byte
	TotalEarned *big.Int
	Records     []storedRecord
}

// Initialized reports whether the vault configuration has been written.
func (m *Manager) Initialized() (bool, error) {
	if m == nil || m.db == nil {
		return false, fmt.Errorf("stake: state manager requires a database")
	}
	return m.db.Has(configKey)
}

// Initialize seeds the configuration and zeroed counters for a fresh vault.
// It refuses to overwrite an already initialised database.
func (m *Manager) Initialize(cfg *Config, unstakeFee *big.Int) error {
	ok, err := m.Initialized()
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("stake: state already initialised")
	}
	if err := m.SetStakeConfig(cfg); err != nil {
		return err
	}
	return m.SetStakeCounters(NewCounters(unstakeFee))
}

// StakeConfig loads the vault configuration. A missing configuration yields
// nil without error.
func (m *Manager) StakeConfig() (*Config, error) {
	ok, err := m.db.Has(configKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	data, err := m.db.Get(configKey)
	if err != nil {
		return nil, err
	}
	var stored storedConfig
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, fmt.Errorf("stake: decode config: %w", err)
	}
	return &Config{
		Owner:       stored.Owner,
		FeeAddress:  stored.FeeAddress,
		Collection:  stored.Collection,
		RewardDenom: stored.RewardDenom,
		Duration:    stored.Duration,
		Enabled:     stored.Enabled,
	}, nil
}

// SetStakeConfig validates and persists the vault configuration.
func (m *Manager) SetStakeConfig(cfg *Config) error {
	sanitized, err := SanitizeConfig(cfg)
	if err != nil {
		return err
	}
	stored := storedConfig{
		Owner:       sanitized.Owner,
		FeeAddress:  sanitized.FeeAddress,
		Collection:  sanitized.Collection,
		RewardDenom: sanitized.RewardDenom,
		Duration:    sanitized.Duration,
		Enabled:     sanitized.Enabled,
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("stake: encode config: %w", err)
	}
	return m.db.Put(configKey, encoded)
}

// StakeCounters loads the global counters, zeroed defaults when absent.
func (m *Manager) StakeCounters() (*Counters, error) {
	ok, err := m.db.Has(countersKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewCounters(nil), nil
	}
	data, err := m.db.Get(countersKey)
	if err != nil {
		return nil, err
	}
	var stored storedCounters
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, fmt.Errorf("stake: decode counters: %w", err)
	}
	return &Counters{
		TotalStaked:      stored.TotalStaked,
		TotalDistributed: copyBigInt(stored.TotalDistributed),
		UnstakeFee:       copyBigInt(stored.UnstakeFee),
		EpochStart:       stored.EpochStart,
		EpochActive:      stored.EpochActive,
	}, nil
}

// SetStakeCounters persists the global counters.
func (m *Manager) SetStakeCounters(counters *Counters) error {
	if counters == nil {
		return fmt.Errorf("stake: nil counters")
	}
	stored := storedCounters{
		TotalStaked:      counters.TotalStaked,
		TotalDistributed: copyBigInt(counters.TotalDistributed),
		UnstakeFee:       copyBigInt(counters.UnstakeFee),
		EpochStart:       counters.EpochStart,
		EpochActive:      counters.EpochActive,
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("stake: encode counters: %w", err)
	}
	return m.db.Put(countersKey, encoded)
}

// StakeAccount loads one account entry. The boolean reports whether the
// account has ever been written.
func (m *Manager) StakeAccount(addr [20]byte) (*AccountEntry, bool, error) {
	key := accountKey(addr)
	ok, err := m.db.Has(key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	data, err := m.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	var stored storedAccount
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, false, fmt.Errorf("stake: decode account: %w", err)
	}
	entry := &AccountEntry{
		Address:     stored.Address,
		TotalEarned: copyBigInt(stored.TotalEarned),
	}
	if len(stored.Records) > 0 {
		entry.Records = make([]StakeRecord, len(stored.Records))
		for i, rec := range stored.Records {
			entry.Records[i] = StakeRecord{
				ItemID:     rec.ItemID,
				Collection: rec.Collection,
				LockExpiry: rec.LockExpiry,
				Reward:     copyBigInt(rec.Reward),
			}
		}
	}
	return entry, true, nil
}

// PutStakeAccount validates and persists an account entry, registering the
// address in the scan index on first write. Entries whose record sequence has
// emptied stay in the index; the ledger never tombstones an account.
func (m *Manager) PutStakeAccount(entry *AccountEntry) error {
	sanitized, err := SanitizeAccountEntry(entry)
	if err != nil {
		return err
	}
	stored := storedAccount{
		Address:     sanitized.Address,
		TotalEarned: copyBigInt(sanitized.TotalEarned),
	}
	if len(sanitized.Records) > 0 {
		stored.Records = make([]storedRecord, len(sanitized.Records))
		for i, rec := range sanitized.Records {
			stored.Records[i] = storedRecord{
				ItemID:     rec.ItemID,
				Collection: rec.Collection,
				LockExpiry: rec.LockExpiry,
				Reward:     copyBigInt(rec.Reward),
			}
		}
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("stake: encode account: %w", err)
	}
	if err := m.db.Put(accountKey(sanitized.Address), encoded); err != nil {
		return err
	}
	return m.indexAccount(sanitized.Address)
}

// ScanStakeAccounts returns every account entry in ascending address order.
func (m *Manager) ScanStakeAccounts() ([]*AccountEntry, error) {
	index, err := m.loadIndex()
	if err != nil {
		return nil, err
	}
	entries := make([]*AccountEntry, 0, len(index))
	for _, addr := range index {
		entry, ok, err := m.StakeAccount(addr)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("stake: indexed account missing from state")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (m *Manager) loadIndex() ([][20]byte, error) {
	ok, err := m.db.Has(accountIndexKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return [][20]byte{}, nil
	}
	data, err := m.db.Get(accountIndexKey)
	if err != nil {
		return nil, err
	}
	var index [][20]byte
	if err := rlp.DecodeBytes(data, &index); err != nil {
		return nil, fmt.Errorf("stake: decode account index: %w", err)
	}
	return index, nil
}

func (m *Manager) indexAccount(addr [20]byte) error {
	index, err := m.loadIndex()
	if err != nil {
		return err
	}
	pos := sort.Search(len(index), func(i int) bool {
		return bytes.Compare(index[i][:], addr[:]) >= 0
	})
	if pos < len(index) && index[pos] == addr {
		return nil
	}
	index = append(index, [20]byte{})
	copy(index[pos+1:], index[pos:])
	index[pos] = addr
	encoded, err := rlp.EncodeToBytes(index)
	if err != nil {
		return fmt.Errorf("stake: encode account index: %w", err)
	}
	return m.db.Put(accountIndexKey, encoded)
}
