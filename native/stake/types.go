package stake

import (
	"fmt"
	"math/big"
	"strings"
)

// Config captures the administrative parameters of the staking vault. A single
// instance lives in state and is mutated only through owner-gated transitions.
type Config struct {
	Owner       [20]byte
	FeeAddress  [20]byte
	Collection  [20]byte
	RewardDenom string
	Duration    uint64
	Enabled     bool
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// NormalizeDenom validates a fungible token denomination and returns its
// canonical trimmed form.
func NormalizeDenom(denom string) (string, error) {
	trimmed := strings.TrimSpace(denom)
	if trimmed == "" {
		return "", fmt.Errorf("stake: denom must not be empty")
	}
	return trimmed, nil
}

// SanitizeConfig validates and normalises the supplied configuration, returning
// a cloned instance. The function does not mutate the original value.
func SanitizeConfig(c *Config) (*Config, error) {
	if c == nil {
		return nil, fmt.Errorf("stake: nil config")
	}
	clone := c.Clone()
	denom, err := NormalizeDenom(clone.RewardDenom)
	if err != nil {
		return nil, err
	}
	clone.RewardDenom = denom
	if clone.Owner == ([20]byte{}) {
		return nil, fmt.Errorf("stake: owner address must be set")
	}
	if clone.Collection == ([20]byte{}) {
		return nil, fmt.Errorf("stake: collection address must be set")
	}
	if clone.Duration == 0 {
		return nil, fmt.Errorf("stake: lock duration must be positive")
	}
	return clone, nil
}

// StakeRecord tracks one staked item: its lock expiry and the airdrop reward it
// has accrued but not yet claimed. The collection is recorded at deposit time
// and rechecked on renewal so a record cannot be re-locked after the vault is
// repointed at a different collection.
type StakeRecord struct {
	ItemID     string
	Collection [20]byte
	LockExpiry uint64
	Reward     *big.Int
}

// Clone returns a deep copy of the record so callers can safely mutate the copy
// without affecting the stored instance.
func (r *StakeRecord) Clone() *StakeRecord {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Reward != nil {
		clone.Reward = new(big.Int).Set(r.Reward)
	} else {
		clone.Reward = big.NewInt(0)
	}
	return &clone
}

// Locked reports whether the record's lock expiry is still in the future.
func (r *StakeRecord) Locked(now uint64) bool {
	return r != nil && r.LockExpiry > now
}

// Eligible reports whether the record participates in an airdrop announced at
// the given instant: the lock must not have expired and the record must belong
// to the configured collection.
func (r *StakeRecord) Eligible(now uint64, collection [20]byte) bool {
	return r.Locked(now) && r.Collection == collection
}

// AccountEntry is one account's slice of the ledger: its staked records in
// deposit order plus the lifetime total it has claimed.
type AccountEntry struct {
	Address     [20]byte
	TotalEarned *big.Int
	Records     []StakeRecord
}

// Clone returns a deep copy of the entry.
func (a *AccountEntry) Clone() *AccountEntry {
	if a == nil {
		return nil
	}
	clone := &AccountEntry{Address: a.Address, TotalEarned: big.NewInt(0)}
	if a.TotalEarned != nil {
		clone.TotalEarned = new(big.Int).Set(a.TotalEarned)
	}
	if len(a.Records) > 0 {
		clone.Records = make([]StakeRecord, len(a.Records))
		for i := range a.Records {
			clone.Records[i] = *a.Records[i].Clone()
		}
	}
	return clone
}

// recordIndex locates the first record matching the item identifier, -1 when
// the account does not hold the item.
func (a *AccountEntry) recordIndex(itemID string) int {
	if a == nil {
		return -1
	}
	for i := range a.Records {
		if a.Records[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// SanitizeAccountEntry validates the entry and returns a cloned instance with
// non-nil amount fields.
func SanitizeAccountEntry(a *AccountEntry) (*AccountEntry, error) {
	if a == nil {
		return nil, fmt.Errorf("stake: nil account entry")
	}
	clone := a.Clone()
	if clone.TotalEarned.Sign() < 0 {
		return nil, fmt.Errorf("stake: lifetime earned must be non-negative")
	}
	seen := make(map[string]struct{}, len(clone.Records))
	for i := range clone.Records {
		rec := &clone.Records[i]
		if strings.TrimSpace(rec.ItemID) == "" {
			return nil, fmt.Errorf("stake: record item id must not be empty")
		}
		if rec.Reward.Sign() < 0 {
			return nil, fmt.Errorf("stake: record reward must be non-negative")
		}
		key := string(rec.Collection[:]) + "/" + rec.ItemID
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("stake: duplicate record for item %s", rec.ItemID)
		}
		seen[key] = struct{}{}
	}
	return clone, nil
}

// Counters aggregates the vault-wide bookkeeping: how many items are staked
// right now, how much reward has ever been announced, the current early-exit
// fee and the state of the airdrop epoch.
type Counters struct {
	TotalStaked      uint64
	TotalDistributed *big.Int
	UnstakeFee       *big.Int
	EpochStart       uint64
	EpochActive      bool
}

// Clone returns a deep copy of the counters.
func (c *Counters) Clone() *Counters {
	if c == nil {
		return nil
	}
	clone := &Counters{
		TotalStaked: c.TotalStaked,
		EpochStart:  c.EpochStart,
		EpochActive: c.EpochActive,
	}
	clone.TotalDistributed = copyBigInt(c.TotalDistributed)
	clone.UnstakeFee = copyBigInt(c.UnstakeFee)
	return clone
}

// NewCounters returns zeroed counters with the provided initial unstake fee.
func NewCounters(unstakeFee *big.Int) *Counters {
	return &Counters{
		TotalStaked:      0,
		TotalDistributed: big.NewInt(0),
		UnstakeFee:       copyBigInt(unstakeFee),
		EpochStart:       0,
		EpochActive:      false,
	}
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
