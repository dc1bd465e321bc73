package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// ListMarketReq market listing parameters. Rate-model parameters are per
// year; the accrual engine converts them to per-step values.
type ListMarketReq struct {
	AssetID              string          `json:"asset_id"`
	Symbol               string          `json:"symbol"`
	CollateralFactor     decimal.Decimal `json:"collateral_factor"`
	ReserveFactor        decimal.Decimal `json:"reserve_factor"`
	LiquidationIncentive decimal.Decimal `json:"liquidation_incentive"`
	InitExchangeRate     decimal.Decimal `json:"init_exchange_rate"`
	BorrowCap            decimal.Decimal `json:"borrow_cap"`
	BaseRate             decimal.Decimal `json:"base_rate"`
	Multiplier           decimal.Decimal `json:"multiplier"`
	JumpMultiplier       decimal.Decimal `json:"jump_multiplier"`
	Kink                 decimal.Decimal `json:"kink"`
}

// IOperationService the balance-mutating entry points. Every method accrues
// interest on the markets it touches before reading balances, runs its
// mutations in one transaction, and either fully commits or leaves state
// unchanged. Calls are serialized by a re-entrancy guard; a nested call
// fails with ErrOperationInFlight.
type IOperationService interface {
	ListMarket(ctx context.Context, caller string, req ListMarketReq) (*Market, error)
	Supply(ctx context.Context, userID, assetID string, amount decimal.Decimal) error
	Withdraw(ctx context.Context, userID, assetID string, amount decimal.Decimal) error
	Borrow(ctx context.Context, userID, assetID string, amount decimal.Decimal) error
	// Repay clamps to the owed balance and transfers exactly that much
	Repay(ctx context.Context, userID, assetID string, amount decimal.Decimal) error
	Liquidate(ctx context.Context, liquidator, borrower, repayAssetID, collateralAssetID string, amount decimal.Decimal) error
	ProposeAdminTransfer(ctx context.Context, caller, candidate string) error
	AcceptAdminTransfer(ctx context.Context, caller string) error
}
