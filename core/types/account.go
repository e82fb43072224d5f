package types

import "math/big"

// Account holds the fungible token position tracked by the ledger for a single
// address: the spendable balance plus the spender allowances granted by the
// account owner. Allowance keys are lowercase hex encodings of the spender
// address.
type Account struct {
	Balance    *big.Int            `json:"balance"`
	Allowances map[string]*big.Int `json:"allowances,omitempty"`
}
