package types

import "math/big"

// Account holds the fungible value balance for a ledger identity. Balances are
// expressed as big integers to avoid silent truncation when summing large
// transfers; loan arithmetic itself is done on uint64 principals with explicit
// overflow checks.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}

// EnsureAccount normalises a possibly-nil account to one with a zeroed,
// non-nil balance.
func EnsureAccount(acc *Account) *Account {
	if acc == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}
