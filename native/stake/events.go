package stake

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"stakevault/core/events"
)

const (
	EventTypeDeposited      = "stake.deposited"
	EventTypeWithdrawn      = "stake.withdrawn"
	EventTypeRenewed        = "stake.renewed"
	EventTypeClaimed        = "stake.claimed"
	EventTypeAirdrop        = "stake.airdrop"
	EventTypeEpochRestarted = "stake.epoch_restarted"
)

// NewDepositedEvent returns the canonical payload emitted when an item enters
// the vault.
func NewDepositedEvent(owner [20]byte, record *StakeRecord) *events.Event {
	attrs := recordAttributes(owner, record)
	return &events.Event{Type: EventTypeDeposited, Attributes: attrs}
}

// NewWithdrawnEvent returns the canonical payload emitted when an item leaves
// the vault. earlyExit marks withdrawals that paid the lock fee.
func NewWithdrawnEvent(owner [20]byte, record *StakeRecord, earlyExit bool) *events.Event {
	attrs := recordAttributes(owner, record)
	attrs["earlyExit"] = strconv.FormatBool(earlyExit)
	return &events.Event{Type: EventTypeWithdrawn, Attributes: attrs}
}

// NewRenewedEvent returns the canonical payload emitted when an expired record
// is re-locked.
func NewRenewedEvent(owner [20]byte, record *StakeRecord) *events.Event {
	attrs := recordAttributes(owner, record)
	return &events.Event{Type: EventTypeRenewed, Attributes: attrs}
}

// NewClaimedEvent returns the canonical payload emitted when accrued reward is
// paid out.
func NewClaimedEvent(owner [20]byte, itemID string, amount *big.Int) *events.Event {
	attrs := map[string]string{
		"owner":  hex.EncodeToString(owner[:]),
		"itemId": itemID,
	}
	if amount != nil {
		attrs["amount"] = amount.String()
	}
	return &events.Event{Type: EventTypeClaimed, Attributes: attrs}
}

// NewAirdropEvent returns the canonical payload emitted after a distribution
// has been applied.
func NewAirdropEvent(outcome *AirdropOutcome) *events.Event {
	attrs := make(map[string]string)
	if outcome != nil {
		if outcome.Amount != nil {
			attrs["amount"] = outcome.Amount.String()
		}
		if outcome.Share != nil {
			attrs["share"] = outcome.Share.String()
		}
		if outcome.Remainder != nil {
			attrs["remainder"] = outcome.Remainder.String()
		}
		attrs["eligible"] = strconv.FormatUint(outcome.Eligible, 10)
	}
	return &events.Event{Type: EventTypeAirdrop, Attributes: attrs}
}

// NewEpochRestartedEvent returns the canonical payload emitted when the owner
// opens a new reward-accumulation epoch.
func NewEpochRestartedEvent(start uint64) *events.Event {
	return &events.Event{
		Type: EventTypeEpochRestarted,
		Attributes: map[string]string{
			"epochStart": strconv.FormatUint(start, 10),
		},
	}
}

func recordAttributes(owner [20]byte, record *StakeRecord) map[string]string {
	attrs := map[string]string{
		"owner": hex.EncodeToString(owner[:]),
	}
	if record == nil {
		return attrs
	}
	attrs["itemId"] = record.ItemID
	attrs["collection"] = hex.EncodeToString(record.Collection[:])
	attrs["lockExpiry"] = strconv.FormatUint(record.LockExpiry, 10)
	if record.Reward != nil {
		attrs["reward"] = record.Reward.String()
	}
	return attrs
}
