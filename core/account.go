package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// AccountSnapshot point-in-time balances of one account in one market.
type AccountSnapshot struct {
	UserID        string          `json:"user_id"`
	AssetID       string          `json:"asset_id"`
	SupplyBalance decimal.Decimal `json:"supply_balance"`
	BorrowBalance decimal.Decimal `json:"borrow_balance"`
}

// IAccountService aggregates an account's risk profile across all listed
// markets. AccountLiquidity is O(listed markets) and runs on every withdraw,
// borrow and liquidate attempt.
type IAccountService interface {
	// AccountLiquidity returns risk-weighted collateral minus debt;
	// negative means the account is underwater and liquidatable
	AccountLiquidity(ctx context.Context, userID string) (decimal.Decimal, error)
	AccountSnapshot(ctx context.Context, userID, assetID string) (*AccountSnapshot, error)
	// InvalidateLiquidity drops any cached aggregate for the account;
	// a no-op on uncached implementations
	InvalidateLiquidity(ctx context.Context, userID string)
}
