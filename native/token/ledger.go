package token

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"stakehub/core/types"
)

var (
	errNilAccounts = errors.New("token: accounts backend not configured")

	// ErrInsufficientBalance is returned when a transfer exceeds the payer's
	// spendable balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance is returned when transferFrom exceeds the
	// allowance granted to the spender.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
)

// Accounts is the narrow view of state the ledger mutates. Implementations
// must return a zero-valued account for unknown addresses rather than an
// error.
type Accounts interface {
	AccountGet(addr [20]byte) (*types.Account, error)
	AccountPut(addr [20]byte, account *types.Account) error
}

// Ledger implements fungible-asset transfer semantics (transfer, transferFrom,
// approve) over a pluggable accounts backend. It holds no state of its own so
// a single instance can serve many transactions.
type Ledger struct {
	accounts Accounts
}

// NewLedger constructs a ledger bound to the given accounts backend.
func NewLedger(accounts Accounts) *Ledger {
	return &Ledger{accounts: accounts}
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func allowanceKey(spender [20]byte) string {
	return hex.EncodeToString(spender[:])
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// BalanceOf reports the spendable balance of the address.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.accounts == nil {
		return nil, errNilAccounts
	}
	acc, err := l.accounts.AccountGet(addr)
	if err != nil {
		return nil, err
	}
	return cloneAmount(ensureAccount(acc).Balance), nil
}

// Mint credits freshly issued tokens to the address. Restricted to trusted
// callers by construction; the ledger itself performs no access control.
func (l *Ledger) Mint(to [20]byte, amount *big.Int) error {
	if l == nil || l.accounts == nil {
		return errNilAccounts
	}
	amt := cloneAmount(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("token: negative mint amount")
	}
	if amt.Sign() == 0 {
		return nil
	}
	acc, err := l.accounts.AccountGet(to)
	if err != nil {
		return err
	}
	acc = ensureAccount(acc)
	acc.Balance = new(big.Int).Add(acc.Balance, amt)
	return l.accounts.AccountPut(to, acc)
}

// Transfer moves tokens from the caller to the recipient.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.accounts == nil {
		return errNilAccounts
	}
	amt := cloneAmount(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("token: negative transfer amount")
	}
	if amt.Sign() == 0 {
		return nil
	}
	fromAcc, err := l.accounts.AccountGet(from)
	if err != nil {
		return err
	}
	toAcc, err := l.accounts.AccountGet(to)
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	if from == to {
		return l.accounts.AccountPut(from, fromAcc)
	}
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := l.accounts.AccountPut(from, fromAcc); err != nil {
		return err
	}
	return l.accounts.AccountPut(to, toAcc)
}

// Approve grants the spender a fixed allowance over the owner's balance,
// replacing any previous allowance.
func (l *Ledger) Approve(owner, spender [20]byte, amount *big.Int) error {
	if l == nil || l.accounts == nil {
		return errNilAccounts
	}
	amt := cloneAmount(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("token: negative allowance")
	}
	acc, err := l.accounts.AccountGet(owner)
	if err != nil {
		return err
	}
	acc = ensureAccount(acc)
	if acc.Allowances == nil {
		acc.Allowances = make(map[string]*big.Int)
	}
	acc.Allowances[allowanceKey(spender)] = amt
	return l.accounts.AccountPut(owner, acc)
}

// Allowance reports the remaining allowance granted by owner to spender.
func (l *Ledger) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if l == nil || l.accounts == nil {
		return nil, errNilAccounts
	}
	acc, err := l.accounts.AccountGet(owner)
	if err != nil {
		return nil, err
	}
	acc = ensureAccount(acc)
	if acc.Allowances == nil {
		return big.NewInt(0), nil
	}
	return cloneAmount(acc.Allowances[allowanceKey(spender)]), nil
}

// TransferFrom moves tokens from the payer to the recipient on behalf of the
// spender, consuming allowance. Fails loudly on insufficient balance or
// allowance so the enclosing operation aborts as a whole.
func (l *Ledger) TransferFrom(spender, from, to [20]byte, amount *big.Int) error {
	if l == nil || l.accounts == nil {
		return errNilAccounts
	}
	amt := cloneAmount(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("token: negative transfer amount")
	}
	if amt.Sign() == 0 {
		return nil
	}
	if spender != from {
		acc, err := l.accounts.AccountGet(from)
		if err != nil {
			return err
		}
		acc = ensureAccount(acc)
		allowance := big.NewInt(0)
		if acc.Allowances != nil {
			allowance = cloneAmount(acc.Allowances[allowanceKey(spender)])
		}
		if allowance.Cmp(amt) < 0 {
			return ErrInsufficientAllowance
		}
		if acc.Allowances == nil {
			acc.Allowances = make(map[string]*big.Int)
		}
		acc.Allowances[allowanceKey(spender)] = new(big.Int).Sub(allowance, amt)
		if err := l.accounts.AccountPut(from, acc); err != nil {
			return err
		}
	}
	return l.Transfer(from, to, amt)
}
