package bank

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"stakevault/storage"
)

var (
	// ErrInsufficientBalance is returned when a transfer or burn exceeds the
	// source account's balance.
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
)

var balancePrefix = []byte("bank/balance/")

func balanceKey(denom string, addr [20]byte) []byte {
	buf := make([]byte, 0, len(balancePrefix)+len(denom)+1+len(addr))
	buf = append(buf, balancePrefix...)
	buf = append(buf, denom...)
	buf = append(buf, ':')
	buf = append(buf, addr[:]...)
	return ethcrypto.Keccak256(buf)
}

// Ledger tracks denominated fungible balances per account. It is the
// in-process stand-in for the token module the staking engine collaborates
// with: the engine only ever queries balances and moves amounts.
type Ledger struct {
	db storage.Database
}

// NewLedger creates a balance ledger over the provided database.
func NewLedger(db storage.Database) *Ledger {
	return &Ledger{db: db}
}

// BalanceOf returns the balance held by addr in the given denomination, zero
// for accounts the ledger has never seen.
func (l *Ledger) BalanceOf(addr [20]byte, denom string) (*big.Int, error) {
	if l == nil || l.db == nil {
		return nil, fmt.Errorf("bank: ledger requires a database")
	}
	key := balanceKey(denom, addr)
	ok, err := l.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	data, err := l.db.Get(key)
	if err != nil {
		return nil, err
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(data, balance); err != nil {
		return nil, fmt.Errorf("bank: decode balance: %w", err)
	}
	return balance, nil
}

func (l *Ledger) setBalance(addr [20]byte, denom string, amount *big.Int) error {
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return fmt.Errorf("bank: encode balance: %w", err)
	}
	return l.db.Put(balanceKey(denom, addr), encoded)
}

// Mint credits newly issued funds to an account. Used for genesis funding and
// operator top-ups of the vault's reward pool.
func (l *Ledger) Mint(addr [20]byte, denom string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("bank: mint amount must be positive")
	}
	balance, err := l.BalanceOf(addr, denom)
	if err != nil {
		return err
	}
	return l.setBalance(addr, denom, new(big.Int).Add(balance, amount))
}

// Transfer moves amount between two accounts in one denomination. A zero
// amount is a no-op; a negative amount is rejected.
func (l *Ledger) Transfer(from, to [20]byte, denom string, amount *big.Int) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("bank: ledger requires a database")
	}
	if amount == nil {
		return fmt.Errorf("bank: nil transfer amount")
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("bank: negative transfer amount")
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromBalance, err := l.BalanceOf(from, denom)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := l.BalanceOf(to, denom)
	if err != nil {
		return err
	}
	if err := l.setBalance(from, denom, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.setBalance(to, denom, new(big.Int).Add(toBalance, amount))
}
