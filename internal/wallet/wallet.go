// Package wallet holds in-process account balances.  It receives custody
// payouts when the service runs with the memory store driver.
package wallet

import (
    "context"
    "errors"
    "math/bits"
    "sync"

    "github.com/iliyamo/event-ticket-registry/internal/model"
)

var (
    ErrInvalidAccount = errors.New("wallet: invalid account")
    ErrOverflow       = errors.New("wallet: balance overflow")
)

// Memory is a map of account balances guarded by a mutex.
type Memory struct {
    mu       sync.RWMutex
    balances map[model.AccountID]model.Amount
}

func NewMemory() *Memory {
    return &Memory{balances: make(map[model.AccountID]model.Amount)}
}

// Transfer credits amount to the account.  The funds come from the caller's
// custody, so there is no debit side here.
func (w *Memory) Transfer(_ context.Context, to model.AccountID, amount model.Amount) error {
    if to == "" {
        return ErrInvalidAccount
    }
    w.mu.Lock()
    defer w.mu.Unlock()
    sum, carry := bits.Add64(uint64(w.balances[to]), uint64(amount), 0)
    if carry != 0 {
        return ErrOverflow
    }
    w.balances[to] = model.Amount(sum)
    return nil
}

// BalanceOf returns the account balance, zero for unknown accounts.
func (w *Memory) BalanceOf(_ context.Context, account model.AccountID) (model.Amount, error) {
    w.mu.RLock()
    defer w.mu.RUnlock()
    return w.balances[account], nil
}
