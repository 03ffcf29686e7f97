// Package ledger keeps ERC-20 shaped balance and allowance bookkeeping for a fungible
// unit. It is used for vault shares and for the in-memory underlying asset.
//
// A Ledger is not safe for concurrent use; owners serialize access.
package ledger

import (
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/types"
)

// Ledger maps holders to balances and (owner, spender) pairs to allowances.
// The sum of all balances always equals TotalSupply.
type Ledger struct {
	balances    map[string]sdkmath.Int
	allowances  map[string]map[string]sdkmath.Int
	totalSupply sdkmath.Int
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances:    make(map[string]sdkmath.Int),
		allowances:  make(map[string]map[string]sdkmath.Int),
		totalSupply: sdkmath.ZeroInt(),
	}
}

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() sdkmath.Int {
	return l.totalSupply
}

// BalanceOf returns the balance of holder, zero when unknown.
func (l *Ledger) BalanceOf(holder sdk.AccAddress) sdkmath.Int {
	if bal, ok := l.balances[types.AddressKey(holder)]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

// Allowance returns how much spender may move on behalf of owner.
func (l *Ledger) Allowance(owner, spender sdk.AccAddress) sdkmath.Int {
	if byOwner, ok := l.allowances[types.AddressKey(owner)]; ok {
		if amt, ok := byOwner[types.AddressKey(spender)]; ok {
			return amt
		}
	}
	return sdkmath.ZeroInt()
}

// Holders returns the number of accounts with a non-zero balance.
func (l *Ledger) Holders() int {
	n := 0
	for _, bal := range l.balances {
		if bal.IsPositive() {
			n++
		}
	}
	return n
}

// Mint credits amount to to and grows the supply.
func (l *Ledger) Mint(to sdk.AccAddress, amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if types.IsZeroAddress(to) {
		return types.ErrInvalidAddress.Wrap("cannot mint to the zero address")
	}
	supply, err := l.totalSupply.SafeAdd(amount)
	if err != nil || supply.GT(fixedpoint.MaxUint256()) {
		return types.ErrMathematical.Wrap("total supply overflow")
	}

	l.totalSupply = supply
	l.setBalance(to, l.BalanceOf(to).Add(amount))
	return nil
}

// Burn debits amount from from and shrinks the supply.
func (l *Ledger) Burn(from sdk.AccAddress, amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	bal := l.BalanceOf(from)
	if bal.LT(amount) {
		return types.ErrInsufficientBalance.Wrapf("balance %s is below %s", bal, amount)
	}

	l.setBalance(from, bal.Sub(amount))
	l.totalSupply = l.totalSupply.Sub(amount)
	return nil
}

// Transfer moves amount from from to to.
func (l *Ledger) Transfer(from, to sdk.AccAddress, amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if types.IsZeroAddress(from) {
		return types.ErrInvalidAddress.Wrap("cannot transfer from the zero address")
	}
	if types.IsZeroAddress(to) {
		return types.ErrInvalidAddress.Wrap("cannot transfer to the zero address")
	}
	bal := l.BalanceOf(from)
	if bal.LT(amount) {
		return types.ErrInsufficientBalance.Wrapf("balance %s is below %s", bal, amount)
	}

	l.setBalance(from, bal.Sub(amount))
	l.setBalance(to, l.BalanceOf(to).Add(amount))
	return nil
}

// Approve sets the allowance of spender over owner's balance.
func (l *Ledger) Approve(owner, spender sdk.AccAddress, amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if types.IsZeroAddress(owner) {
		return types.ErrInvalidAddress.Wrap("cannot approve from the zero address")
	}
	if types.IsZeroAddress(spender) {
		return types.ErrInvalidAddress.Wrap("cannot approve the zero address")
	}

	key := types.AddressKey(owner)
	byOwner, ok := l.allowances[key]
	if !ok {
		byOwner = make(map[string]sdkmath.Int)
		l.allowances[key] = byOwner
	}
	byOwner[types.AddressKey(spender)] = amount
	return nil
}

// SpendAllowance consumes amount of spender's allowance over owner. The unlimited
// sentinel is never decremented.
func (l *Ledger) SpendAllowance(owner, spender sdk.AccAddress, amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	current := l.Allowance(owner, spender)
	if fixedpoint.IsMaxUint256(current) {
		return nil
	}
	if current.LT(amount) {
		return types.ErrInsufficientAllowance.Wrapf("allowance %s is below %s", current, amount)
	}
	return l.Approve(owner, spender, current.Sub(amount))
}

// TransferFrom moves amount from from to to using spender's allowance. Nothing changes
// when either the allowance or the balance is insufficient.
func (l *Ledger) TransferFrom(spender, from, to sdk.AccAddress, amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	current := l.Allowance(from, spender)
	if !fixedpoint.IsMaxUint256(current) && current.LT(amount) {
		return types.ErrInsufficientAllowance.Wrapf("allowance %s is below %s", current, amount)
	}
	if err := l.Transfer(from, to, amount); err != nil {
		return err
	}
	return l.SpendAllowance(from, spender, amount)
}

func (l *Ledger) setBalance(holder sdk.AccAddress, amount sdkmath.Int) {
	key := types.AddressKey(holder)
	if amount.IsZero() {
		delete(l.balances, key)
		return
	}
	l.balances[key] = amount
}

func validateAmount(amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return types.ErrInvalidAmount.Wrap("amount must be a non-negative integer")
	}
	return nil
}
