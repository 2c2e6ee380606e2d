package stake

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"stakevault/core/events"
)

var (
	errNilState    = errors.New("stake engine: state not configured")
	errNilLedger   = errors.New("stake engine: token ledger not configured")
	errNilRegistry = errors.New("stake engine: item registry not configured")
)

// engineState is the narrow view of persistent state the engine depends on.
// Accounts scan in ascending address order so airdrop application is
// deterministic.
type engineState interface {
	StakeConfig() (*Config, error)
	SetStakeConfig(*Config) error
	StakeCounters() (*Counters, error)
	SetStakeCounters(*Counters) error
	StakeAccount(addr [20]byte) (*AccountEntry, bool, error)
	PutStakeAccount(*AccountEntry) error
	ScanStakeAccounts() ([]*AccountEntry, error)
}

// TokenLedger is the external fungible-token collaborator. The engine only
// queries balances and moves amounts between accounts; solvency beyond the
// balance visible at operation time is not its concern.
type TokenLedger interface {
	BalanceOf(addr [20]byte, denom string) (*big.Int, error)
	Transfer(from, to [20]byte, denom string, amount *big.Int) error
}

// ItemRegistry is the external non-fungible item collaborator used to return
// custody of withdrawn items.
type ItemRegistry interface {
	Transfer(collection [20]byte, itemID string, from, to [20]byte) error
}

// Payment describes funds attached to a request, inspected as a
// (denomination, amount) pair.
type Payment struct {
	Denom  string
	Amount *big.Int
}

// DepositNotice is the inbound custody notification for a deposit. Origin is
// the registry that reported the transfer; ClaimedSender and ClaimedItemID are
// the values embedded in the notification payload and must match the actual
// transfer.
type DepositNotice struct {
	Origin        [20]byte
	Sender        [20]byte
	ItemID        string
	ClaimedSender [20]byte
	ClaimedItemID string
}

// Engine implements the staking state machine and the airdrop distribution
// engine over the account ledger.
type Engine struct {
	state    engineState
	ledger   TokenLedger
	registry ItemRegistry
	vault    [20]byte
	emitter  events.Emitter
	nowFn    func() uint64
}

// NewEngine creates a staking engine with a no-op emitter. Callers can override
// the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the fungible token collaborator.
func (e *Engine) SetLedger(ledger TokenLedger) { e.ledger = ledger }

// SetRegistry configures the item registry collaborator.
func (e *Engine) SetRegistry(registry ItemRegistry) { e.registry = registry }

// SetVaultAddress configures the account that holds custody items, reward
// funds and collected fees.
func (e *Engine) SetVaultAddress(addr [20]byte) { e.vault = addr }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(event *events.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return e.nowFn()
}

func (e *Engine) loadConfig() (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, err := e.state.StakeConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("stake engine: config not initialised")
	}
	return cfg, nil
}

func (e *Engine) loadCounters() (*Counters, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	counters, err := e.state.StakeCounters()
	if err != nil {
		return nil, err
	}
	if counters == nil {
		counters = NewCounters(nil)
	}
	return counters, nil
}

func (e *Engine) requireEnabled(cfg *Config) error {
	if cfg == nil || !cfg.Enabled {
		return ErrDisabled
	}
	return nil
}

func (e *Engine) requireOwner(cfg *Config, caller [20]byte) error {
	if cfg == nil || caller != cfg.Owner {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireEpochActive(counters *Counters) error {
	if counters == nil || !counters.EpochActive {
		return ErrEpochNotStarted
	}
	return nil
}

func (e *Engine) loadAccount(addr [20]byte) (*AccountEntry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	entry, ok, err := e.state.StakeAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok || entry == nil {
		return &AccountEntry{Address: addr, TotalEarned: big.NewInt(0)}, nil
	}
	return entry, nil
}

// Deposit records a newly received item as staked. The custody transfer has
// already happened on the registry side; the engine only validates the
// notification and mutates the ledger.
func (e *Engine) Deposit(notice *DepositNotice) (*StakeRecord, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := e.requireEnabled(cfg); err != nil {
		return nil, err
	}
	counters, err := e.loadCounters()
	if err != nil {
		return nil, err
	}
	if err := e.requireEpochActive(counters); err != nil {
		return nil, err
	}
	if notice == nil {
		return nil, ErrInvalidDeposit
	}
	if notice.Origin != cfg.Collection {
		return nil, ErrInvalidDeposit
	}
	if notice.ClaimedSender != notice.Sender || notice.ClaimedItemID != notice.ItemID {
		return nil, ErrInvalidDeposit
	}

	entry, err := e.loadAccount(notice.Sender)
	if err != nil {
		return nil, err
	}
	for i := range entry.Records {
		if entry.Records[i].ItemID == notice.ItemID && entry.Records[i].Collection == cfg.Collection {
			return nil, ErrDuplicateStake
		}
	}

	now := e.now()
	record := StakeRecord{
		ItemID:     notice.ItemID,
		Collection: cfg.Collection,
		LockExpiry: now + cfg.Duration,
		Reward:     big.NewInt(0),
	}
	entry.Records = append(entry.Records, record)
	if err := e.state.PutStakeAccount(entry); err != nil {
		return nil, err
	}

	counters.TotalStaked++
	if err := e.state.SetStakeCounters(counters); err != nil {
		return nil, err
	}

	e.emit(NewDepositedEvent(notice.Sender, &record))
	return record.Clone(), nil
}

// Withdraw removes a staked record and returns custody of the item to the
// caller. Withdrawing before the lock expires requires an attached payment of
// at least the current unstake fee in the reward denomination; exactly the fee
// is forwarded to the fee recipient and any excess stays in the vault. Accrued
// unclaimed reward on the record is forfeited, not paid out.
func (e *Engine) Withdraw(caller [20]byte, itemID string, payment *Payment) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if err := e.requireEnabled(cfg); err != nil {
		return err
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if e.registry == nil {
		return errNilRegistry
	}

	entry, ok, err := e.state.StakeAccount(caller)
	if err != nil {
		return err
	}
	if !ok || entry == nil || len(entry.Records) == 0 {
		return ErrNoSuchStake
	}
	index := entry.recordIndex(itemID)
	if index < 0 {
		return ErrNoSuchStake
	}
	record := entry.Records[index]

	counters, err := e.loadCounters()
	if err != nil {
		return err
	}

	now := e.now()
	if record.Locked(now) {
		fee := copyBigInt(counters.UnstakeFee)
		if payment == nil || payment.Denom != cfg.RewardDenom {
			return ErrLockViolation
		}
		if payment.Amount == nil || payment.Amount.Cmp(fee) < 0 {
			return ErrLockViolation
		}
		// Collect the attached payment, then forward exactly the fee.
		if err := e.ledger.Transfer(caller, e.vault, cfg.RewardDenom, payment.Amount); err != nil {
			return fmt.Errorf("stake engine: collect unstake fee: %w", err)
		}
		if fee.Sign() > 0 {
			if err := e.ledger.Transfer(e.vault, cfg.FeeAddress, cfg.RewardDenom, fee); err != nil {
				return fmt.Errorf("stake engine: forward unstake fee: %w", err)
			}
		}
	}

	if err := e.registry.Transfer(record.Collection, record.ItemID, e.vault, caller); err != nil {
		return fmt.Errorf("stake engine: return item: %w", err)
	}

	entry.Records = append(entry.Records[:index], entry.Records[index+1:]...)
	if err := e.state.PutStakeAccount(entry); err != nil {
		return err
	}
	if counters.TotalStaked > 0 {
		counters.TotalStaked--
	}
	if err := e.state.SetStakeCounters(counters); err != nil {
		return err
	}

	e.emit(NewWithdrawnEvent(caller, &record, record.Locked(now)))
	return nil
}

// Renew re-locks an already expired record for another full duration. A record
// whose lock is still running cannot be topped up early, and a record staked
// against a collection the vault no longer accepts cannot be re-locked.
func (e *Engine) Renew(caller [20]byte, itemID string) (*StakeRecord, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := e.requireEnabled(cfg); err != nil {
		return nil, err
	}
	counters, err := e.loadCounters()
	if err != nil {
		return nil, err
	}
	if err := e.requireEpochActive(counters); err != nil {
		return nil, err
	}

	entry, ok, err := e.state.StakeAccount(caller)
	if err != nil {
		return nil, err
	}
	if !ok || entry == nil || len(entry.Records) == 0 {
		return nil, ErrNoSuchStake
	}
	index := entry.recordIndex(itemID)
	if index < 0 {
		return nil, ErrNoSuchStake
	}
	record := &entry.Records[index]
	if record.Collection != cfg.Collection {
		return nil, ErrInvalidDeposit
	}
	now := e.now()
	if record.Locked(now) {
		return nil, ErrLockViolation
	}
	record.LockExpiry = now + cfg.Duration
	if err := e.state.PutStakeAccount(entry); err != nil {
		return nil, err
	}

	e.emit(NewRenewedEvent(caller, record))
	return record.Clone(), nil
}

// Claim pays out the full accrued reward on a record, folding it into the
// account's lifetime earnings and resetting the record to zero. Claiming has
// no effect on the lock state.
func (e *Engine) Claim(caller [20]byte, itemID string) (*big.Int, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := e.requireEnabled(cfg); err != nil {
		return nil, err
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}

	entry, ok, err := e.state.StakeAccount(caller)
	if err != nil {
		return nil, err
	}
	if !ok || entry == nil || len(entry.Records) == 0 {
		return nil, ErrNoSuchStake
	}
	index := entry.recordIndex(itemID)
	if index < 0 {
		return nil, ErrNoSuchStake
	}
	record := &entry.Records[index]
	if record.Reward == nil || record.Reward.Sign() == 0 {
		return nil, ErrNoReward
	}

	balance, err := e.ledger.BalanceOf(e.vault, cfg.RewardDenom)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(record.Reward) < 0 {
		return nil, ErrInsufficientFunds
	}

	amount := copyBigInt(record.Reward)
	if err := e.ledger.Transfer(e.vault, caller, cfg.RewardDenom, amount); err != nil {
		return nil, fmt.Errorf("stake engine: pay reward: %w", err)
	}

	record.Reward = big.NewInt(0)
	entry.TotalEarned = new(big.Int).Add(copyBigInt(entry.TotalEarned), amount)
	if err := e.state.PutStakeAccount(entry); err != nil {
		return nil, err
	}

	e.emit(NewClaimedEvent(caller, itemID, amount))
	return amount, nil
}
