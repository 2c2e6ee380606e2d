package stake

import "errors"

var (
	ErrUnauthorized         = errors.New("stake: unauthorized")
	ErrDisabled             = errors.New("stake: staking disabled")
	ErrEpochNotStarted      = errors.New("stake: airdrop epoch not started")
	ErrInvalidDeposit       = errors.New("stake: invalid deposit notification")
	ErrDuplicateStake       = errors.New("stake: item already staked")
	ErrNoSuchStake          = errors.New("stake: no staked item")
	ErrLockViolation        = errors.New("stake: lock violation")
	ErrNoReward             = errors.New("stake: no reward accrued")
	ErrInsufficientFunds    = errors.New("stake: insufficient reward balance")
	ErrInvalidAirdropAmount = errors.New("stake: invalid airdrop amount")
	ErrNoEligibleRecipients = errors.New("stake: no eligible staked items")
)
