package stake

import (
	"errors"
	"math/big"
	"testing"
)

func TestAdminUpdatesAreOwnerGated(t *testing.T) {
	env := newTestEnv(t)
	stranger := newTestAddress(0x10)

	cases := []struct {
		name string
		call func(caller [20]byte) error
	}{
		{"setOwner", func(c [20]byte) error { return env.engine.SetOwner(c, newTestAddress(0x20)) }},
		{"setFeeAddress", func(c [20]byte) error { return env.engine.SetFeeAddress(c, newTestAddress(0x21)) }},
		{"setCollection", func(c [20]byte) error { return env.engine.SetCollection(c, newTestAddress(0x22)) }},
		{"setDuration", func(c [20]byte) error { return env.engine.SetDuration(c, 7) }},
		{"setEnabled", func(c [20]byte) error { return env.engine.SetEnabled(c, false) }},
		{"setUnstakeFee", func(c [20]byte) error { return env.engine.SetUnstakeFee(c, big.NewInt(9)) }},
		{"withdrawTreasury", func(c [20]byte) error { return env.engine.WithdrawTreasury(c, big.NewInt(1)) }},
	}
	for _, tc := range cases {
		if err := tc.call(stranger); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s: expected ErrUnauthorized for non-owner, got %v", tc.name, err)
		}
	}
}

func TestOwnerHandover(t *testing.T) {
	env := newTestEnv(t)
	successor := newTestAddress(0x20)

	if err := env.engine.SetOwner(env.owner, successor); err != nil {
		t.Fatalf("set owner: %v", err)
	}
	// The old owner loses control, the successor gains it.
	if err := env.engine.SetDuration(env.owner, 7); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected old owner to be locked out, got %v", err)
	}
	if err := env.engine.SetDuration(successor, 7); err != nil {
		t.Fatalf("successor update: %v", err)
	}
	view, err := env.engine.QueryConfig()
	if err != nil {
		t.Fatalf("query config: %v", err)
	}
	if view.Duration != 7 {
		t.Fatalf("expected duration 7, got %d", view.Duration)
	}
}

func TestSetDurationLeavesRunningLocksAlone(t *testing.T) {
	env := newTestEnv(t)
	staker := newTestAddress(0x10)
	record := env.deposit(t, staker, "alien-1")

	if err := env.engine.SetDuration(env.owner, 10); err != nil {
		t.Fatalf("set duration: %v", err)
	}
	records, _ := env.engine.QueryStakedRecords(staker)
	if records[0].LockExpiry != record.LockExpiry {
		t.Fatalf("running lock must not move, got %d want %d", records[0].LockExpiry, record.LockExpiry)
	}

	// A renewal after expiry picks up the new duration.
	env.now += 101
	renewed, err := env.engine.Renew(staker, "alien-1")
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if renewed.LockExpiry != env.now+10 {
		t.Fatalf("expected renewed expiry %d, got %d", env.now+10, renewed.LockExpiry)
	}
}

func TestSetUnstakeFeeValidation(t *testing.T) {
	env := newTestEnv(t)
	if err := env.engine.SetUnstakeFee(env.owner, nil); err == nil {
		t.Fatalf("expected error for nil fee")
	}
	if err := env.engine.SetUnstakeFee(env.owner, big.NewInt(-1)); err == nil {
		t.Fatalf("expected error for negative fee")
	}
	if err := env.engine.SetUnstakeFee(env.owner, big.NewInt(0)); err != nil {
		t.Fatalf("zero fee must be accepted: %v", err)
	}
	if env.state.counters.UnstakeFee.Sign() != 0 {
		t.Fatalf("expected stored fee 0, got %s", env.state.counters.UnstakeFee)
	}
}

func TestDisabledVaultStillAcceptsAdmin(t *testing.T) {
	env := newTestEnv(t)
	staker := newTestAddress(0x10)

	if err := env.engine.SetEnabled(env.owner, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := env.engine.Withdraw(staker, "alien-1", nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if _, err := env.engine.Claim(staker, "alien-1"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	// The kill switch can be released again.
	if err := env.engine.SetEnabled(env.owner, true); err != nil {
		t.Fatalf("re-enable: %v", err)
	}
	env.deposit(t, staker, "alien-1")
}

func TestUpdateConfigAppliesAllFields(t *testing.T) {
	env := newTestEnv(t)
	owner := newTestAddress(0x20)
	feeAddr := newTestAddress(0x21)
	collection := newTestAddress(0x22)

	if err := env.engine.UpdateConfig(env.owner, owner, feeAddr, collection, 42, big.NewInt(11)); err != nil {
		t.Fatalf("update config: %v", err)
	}
	view, err := env.engine.QueryConfig()
	if err != nil {
		t.Fatalf("query config: %v", err)
	}
	if view.Owner != owner || view.FeeAddress != feeAddr || view.Collection != collection {
		t.Fatalf("addresses not applied")
	}
	if view.Duration != 42 {
		t.Fatalf("expected duration 42, got %d", view.Duration)
	}
	if view.UnstakeFee.Cmp(big.NewInt(11)) != 0 {
		t.Fatalf("expected fee 11, got %s", view.UnstakeFee)
	}
}

func TestUpdateConfigRejectionLeavesStateIntact(t *testing.T) {
	env := newTestEnv(t)
	before, err := env.engine.QueryConfig()
	if err != nil {
		t.Fatalf("query config: %v", err)
	}

	for _, fee := range []*big.Int{nil, big.NewInt(-1)} {
		err := env.engine.UpdateConfig(env.owner, newTestAddress(0x20), newTestAddress(0x21), newTestAddress(0x22), 42, fee)
		if err == nil {
			t.Fatalf("expected error for fee %v", fee)
		}
		after, err := env.engine.QueryConfig()
		if err != nil {
			t.Fatalf("query config: %v", err)
		}
		if after.Owner != before.Owner || after.FeeAddress != before.FeeAddress || after.Collection != before.Collection {
			t.Fatalf("rejected update must not change addresses")
		}
		if after.Duration != before.Duration {
			t.Fatalf("rejected update must not change duration, got %d", after.Duration)
		}
		if after.UnstakeFee.Cmp(before.UnstakeFee) != 0 {
			t.Fatalf("rejected update must not change fee, got %s", after.UnstakeFee)
		}
	}
	// The original owner still holds control.
	if err := env.engine.SetDuration(env.owner, 7); err != nil {
		t.Fatalf("owner must retain control after rejected update: %v", err)
	}
}

func TestWithdrawTreasury(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.mint(env.vault, "ustk", 50)

	if err := env.engine.WithdrawTreasury(env.owner, big.NewInt(0)); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if err := env.engine.WithdrawTreasury(env.owner, big.NewInt(60)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := env.engine.WithdrawTreasury(env.owner, big.NewInt(30)); err != nil {
		t.Fatalf("treasury withdrawal: %v", err)
	}
	ownerBalance, _ := env.ledger.BalanceOf(env.owner, "ustk")
	if ownerBalance.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("expected owner balance 30, got %s", ownerBalance)
	}
	vaultBalance, _ := env.ledger.BalanceOf(env.vault, "ustk")
	if vaultBalance.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("expected vault balance 20, got %s", vaultBalance)
	}
}
