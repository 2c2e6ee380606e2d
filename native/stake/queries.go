package stake

import (
	"math/big"
)

// ConfigView is the combined configuration and counters snapshot returned by
// the read-only config query.
type ConfigView struct {
	Owner            [20]byte
	FeeAddress       [20]byte
	Collection       [20]byte
	RewardDenom      string
	Duration         uint64
	Enabled          bool
	CurrentTime      uint64
	EpochStart       uint64
	EpochActive      bool
	TotalStaked      uint64
	TotalDistributed *big.Int
	UnstakeFee       *big.Int
}

// Queries never mutate state. Lookups against accounts that have never
// deposited return zero values rather than failing, one policy across the
// whole query surface.

// QueryConfig returns the current configuration together with the global
// counters and the engine's notion of the current time.
func (e *Engine) QueryConfig() (*ConfigView, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	counters, err := e.loadCounters()
	if err != nil {
		return nil, err
	}
	return &ConfigView{
		Owner:            cfg.Owner,
		FeeAddress:       cfg.FeeAddress,
		Collection:       cfg.Collection,
		RewardDenom:      cfg.RewardDenom,
		Duration:         cfg.Duration,
		Enabled:          cfg.Enabled,
		CurrentTime:      e.now(),
		EpochStart:       counters.EpochStart,
		EpochActive:      counters.EpochActive,
		TotalStaked:      counters.TotalStaked,
		TotalDistributed: copyBigInt(counters.TotalDistributed),
		UnstakeFee:       copyBigInt(counters.UnstakeFee),
	}, nil
}

// QueryTotalEarned returns the lifetime claimed reward for an account, zero
// when the account has never deposited.
func (e *Engine) QueryTotalEarned(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	entry, ok, err := e.state.StakeAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok || entry == nil {
		return big.NewInt(0), nil
	}
	return copyBigInt(entry.TotalEarned), nil
}

// QueryTotalLocked returns the count of currently locked, collection-matching
// records. Internal read failures degrade to a zero count at this boundary.
func (e *Engine) QueryTotalLocked() uint64 {
	cfg, err := e.loadConfig()
	if err != nil {
		return 0
	}
	count, err := e.eligibleCount(e.now(), cfg.Collection)
	if err != nil {
		return 0
	}
	return count
}

// QueryStakedRecords returns the account's staked records in deposit order.
// An account that has never deposited yields an empty slice.
func (e *Engine) QueryStakedRecords(addr [20]byte) ([]StakeRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	entry, ok, err := e.state.StakeAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok || entry == nil {
		return []StakeRecord{}, nil
	}
	records := make([]StakeRecord, len(entry.Records))
	for i := range entry.Records {
		records[i] = *entry.Records[i].Clone()
	}
	return records, nil
}
