package vault

import (
	"context"
	"errors"
	"sync"

	"levee/core"

	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds pull exceeds the account's vault balance
var ErrInsufficientFunds = errors.New("vault: insufficient funds")

// Memory in-process custody vault. Production deployments replace this with
// the host ledger's transfer mechanism; the engine only relies on Pull and
// Push reporting failure.
type Memory struct {
	mu       sync.Mutex
	balances map[string]map[string]decimal.Decimal
}

// NewMemory new memory vault
func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]map[string]decimal.Decimal),
	}
}

var _ core.Vault = (*Memory)(nil)

// Credit funds an account outside of any engine operation, for genesis
// balances and tests.
func (v *Memory) Credit(account, assetID string, amount decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.add(account, assetID, amount)
}

// Balance current vault balance of the account.
func (v *Memory) Balance(account, assetID string) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.balances[account][assetID]
}

func (v *Memory) Pull(ctx context.Context, account, assetID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.New("vault: invalid amount")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.balances[account][assetID].LessThan(amount) {
		return ErrInsufficientFunds
	}

	v.add(account, assetID, amount.Neg())
	return nil
}

func (v *Memory) Push(ctx context.Context, account, assetID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.New("vault: invalid amount")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.add(account, assetID, amount)
	return nil
}

func (v *Memory) add(account, assetID string, amount decimal.Decimal) {
	assets, ok := v.balances[account]
	if !ok {
		assets = make(map[string]decimal.Decimal)
		v.balances[account] = assets
	}

	assets[assetID] = assets[assetID].Add(amount)
}
