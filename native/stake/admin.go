package stake

import (
	"fmt"
	"math/big"
)

// Admin transitions are single-field, owner-gated configuration updates. They
// are accepted even while the vault is disabled so the kill switch can be
// released again.

func (e *Engine) updateConfig(caller [20]byte, mutate func(*Config) error) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if err := e.requireOwner(cfg, caller); err != nil {
		return err
	}
	updated := cfg.Clone()
	if err := mutate(updated); err != nil {
		return err
	}
	sanitized, err := SanitizeConfig(updated)
	if err != nil {
		return err
	}
	return e.state.SetStakeConfig(sanitized)
}

// SetOwner transfers administrative control to a new owner address.
func (e *Engine) SetOwner(caller, owner [20]byte) error {
	return e.updateConfig(caller, func(c *Config) error {
		c.Owner = owner
		return nil
	})
}

// SetFeeAddress changes the recipient of early-exit fees.
func (e *Engine) SetFeeAddress(caller, feeAddress [20]byte) error {
	return e.updateConfig(caller, func(c *Config) error {
		c.FeeAddress = feeAddress
		return nil
	})
}

// SetCollection repoints the vault at a different item collection. Records
// already staked keep the collection they were deposited under.
func (e *Engine) SetCollection(caller, collection [20]byte) error {
	return e.updateConfig(caller, func(c *Config) error {
		c.Collection = collection
		return nil
	})
}

// SetDuration changes the lock duration applied to future deposits and
// renewals. Locks already running are unaffected.
func (e *Engine) SetDuration(caller [20]byte, duration uint64) error {
	return e.updateConfig(caller, func(c *Config) error {
		c.Duration = duration
		return nil
	})
}

// SetEnabled flips the vault-wide kill switch.
func (e *Engine) SetEnabled(caller [20]byte, enabled bool) error {
	return e.updateConfig(caller, func(c *Config) error {
		c.Enabled = enabled
		return nil
	})
}

// SetUnstakeFee changes the fee charged for withdrawing a still-locked item.
func (e *Engine) SetUnstakeFee(caller [20]byte, fee *big.Int) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if err := e.requireOwner(cfg, caller); err != nil {
		return err
	}
	if fee == nil || fee.Sign() < 0 {
		return fmt.Errorf("stake: unstake fee must be non-negative")
	}
	counters, err := e.loadCounters()
	if err != nil {
		return err
	}
	counters.UnstakeFee = copyBigInt(fee)
	return e.state.SetStakeCounters(counters)
}

// UpdateConfig applies the combined administrative update: owner, fee address,
// collection, duration and unstake fee in one transition. Every input is
// validated before the first write so a rejected update leaves both the config
// and the counters untouched.
func (e *Engine) UpdateConfig(caller, owner, feeAddress, collection [20]byte, duration uint64, unstakeFee *big.Int) error {
	if unstakeFee == nil || unstakeFee.Sign() < 0 {
		return fmt.Errorf("stake: unstake fee must be non-negative")
	}
	if err := e.updateConfig(caller, func(c *Config) error {
		c.Owner = owner
		c.FeeAddress = feeAddress
		c.Collection = collection
		c.Duration = duration
		return nil
	}); err != nil {
		return err
	}
	counters, err := e.loadCounters()
	if err != nil {
		return err
	}
	counters.UnstakeFee = copyBigInt(unstakeFee)
	return e.state.SetStakeCounters(counters)
}

// WithdrawTreasury moves reward-denomination funds out of the vault to the
// owner. Only the balance visible at call time is checked; long-term solvency
// against outstanding accrued rewards is the operator's responsibility.
func (e *Engine) WithdrawTreasury(caller [20]byte, amount *big.Int) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if err := e.requireOwner(cfg, caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("stake: treasury withdrawal must be positive")
	}
	if e.ledger == nil {
		return errNilLedger
	}
	balance, err := e.ledger.BalanceOf(e.vault, cfg.RewardDenom)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	return e.ledger.Transfer(e.vault, cfg.Owner, cfg.RewardDenom, amount)
}
