package stake

import (
	"fmt"
	"math/big"
)

// AirdropOutcome summarises an applied distribution.
type AirdropOutcome struct {
	Amount    *big.Int
	Eligible  uint64
	Share     *big.Int
	Remainder *big.Int
}

// eligibleCount walks the full ledger and counts records whose lock has not
// expired and whose collection matches the current configuration.
func (e *Engine) eligibleCount(now uint64, collection [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	accounts, err := e.state.ScanStakeAccounts()
	if err != nil {
		return 0, err
	}
	var count uint64
	for _, entry := range accounts {
		if entry == nil {
			continue
		}
		for i := range entry.Records {
			if entry.Records[i].Eligible(now, collection) {
				count++
			}
		}
	}
	return count, nil
}

// AnnounceAirdrop splits amount evenly across every eligible staked record and
// credits each record's accrued reward in place. The per-record share is the
// floor of amount/eligible; the truncation remainder is not distributed and
// stays in the vault. TotalDistributed advances by the nominal announced
// amount, so it can exceed the sum actually applied by that remainder.
func (e *Engine) AnnounceAirdrop(caller [20]byte, amount *big.Int) (*AirdropOutcome, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := e.requireEnabled(cfg); err != nil {
		return nil, err
	}
	if err := e.requireOwner(cfg, caller); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAirdropAmount
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}

	balance, err := e.ledger.BalanceOf(e.vault, cfg.RewardDenom)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientFunds
	}

	now := e.now()
	eligible, err := e.eligibleCount(now, cfg.Collection)
	if err != nil {
		return nil, err
	}
	if eligible == 0 {
		return nil, ErrNoEligibleRecipients
	}
	count := new(big.Int).SetUint64(eligible)
	if amount.Cmp(count) < 0 {
		// Everyone's share would truncate to zero.
		return nil, ErrInvalidAirdropAmount
	}
	share := new(big.Int).Quo(amount, count)

	accounts, err := e.state.ScanStakeAccounts()
	if err != nil {
		return nil, err
	}
	for _, entry := range accounts {
		if entry == nil {
			continue
		}
		touched := false
		for i := range entry.Records {
			if entry.Records[i].Eligible(now, cfg.Collection) {
				entry.Records[i].Reward = new(big.Int).Add(copyBigInt(entry.Records[i].Reward), share)
				touched = true
			}
		}
		if !touched {
			continue
		}
		if err := e.state.PutStakeAccount(entry); err != nil {
			return nil, fmt.Errorf("stake engine: apply airdrop: %w", err)
		}
	}

	counters, err := e.loadCounters()
	if err != nil {
		return nil, err
	}
	counters.TotalDistributed = new(big.Int).Add(copyBigInt(counters.TotalDistributed), amount)
	counters.EpochActive = false
	if err := e.state.SetStakeCounters(counters); err != nil {
		return nil, err
	}

	applied := new(big.Int).Mul(share, count)
	outcome := &AirdropOutcome{
		Amount:    copyBigInt(amount),
		Eligible:  eligible,
		Share:     share,
		Remainder: new(big.Int).Sub(amount, applied),
	}
	e.emit(NewAirdropEvent(outcome))
	return outcome, nil
}

// RestartEpoch marks the start of a new reward-accumulation epoch. Deposits and
// renewals are only accepted while an epoch is active.
func (e *Engine) RestartEpoch(caller [20]byte) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if err := e.requireOwner(cfg, caller); err != nil {
		return err
	}
	counters, err := e.loadCounters()
	if err != nil {
		return err
	}
	counters.EpochStart = e.now()
	counters.EpochActive = true
	if err := e.state.SetStakeCounters(counters); err != nil {
		return err
	}
	e.emit(NewEpochRestartedEvent(counters.EpochStart))
	return nil
}
