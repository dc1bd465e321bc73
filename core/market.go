package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Market per-asset pool state.
//
// SupplyShares is the number of pool shares minted against suppliers;
// ExchangeRate converts shares to underlying. BorrowIndex is the cumulative
// compounding factor used to revalue borrow principals without touching
// every position on accrual.
type Market struct {
	ID      uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	AssetID string `sql:"size:36;unique_index:asset_idx" json:"asset_id"`
	Symbol  string `sql:"size:20" json:"symbol"`
	// underlying held by the pool and not lent out
	TotalCash    decimal.Decimal `sql:"type:decimal(32,16)" json:"total_cash"`
	TotalBorrows decimal.Decimal `sql:"type:decimal(32,16)" json:"total_borrows"`
	// interest income retained by the protocol
	Reserves     decimal.Decimal `sql:"type:decimal(32,16)" json:"reserves"`
	SupplyShares decimal.Decimal `sql:"type:decimal(32,16)" json:"supply_shares"`
	// exchange rate used while SupplyShares is zero
	InitExchangeRate decimal.Decimal `sql:"type:decimal(32,16);default:1" json:"init_exchange_rate"`
	// (0, 1), protocol cut of interest income
	ReserveFactor decimal.Decimal `sql:"type:decimal(32,16)" json:"reserve_factor"`
	// (0, 1), surcharge on collateral seized during liquidation
	LiquidationIncentive decimal.Decimal `sql:"type:decimal(32,16)" json:"liquidation_incentive"`
	// immutable after listing, [0, 0.9]
	CollateralFactor decimal.Decimal `sql:"type:decimal(32,16)" json:"collateral_factor"`
	// max outstanding borrows, zero means no cap
	BorrowCap decimal.Decimal `sql:"type:decimal(32,16);default:0" json:"borrow_cap"`
	// base borrow rate per year
	BaseRate decimal.Decimal `sql:"type:decimal(32,16)" json:"base_rate"`
	// rate slope below the kink, per year
	Multiplier decimal.Decimal `sql:"type:decimal(32,16)" json:"multiplier"`
	// rate slope above the kink, per year
	JumpMultiplier decimal.Decimal `sql:"type:decimal(32,16)" json:"jump_multiplier"`
	// utilization threshold where the slope steepens
	Kink decimal.Decimal `sql:"type:decimal(32,16)" json:"kink"`
	// last accrual step
	AccrualStep       int64           `json:"accrual_step"`
	UtilizationRate   decimal.Decimal `sql:"type:decimal(32,16)" json:"utilization_rate"`
	ExchangeRate      decimal.Decimal `sql:"type:decimal(32,16)" json:"exchange_rate"`
	SupplyRatePerStep decimal.Decimal `sql:"type:decimal(32,16)" json:"supply_rate_per_step"`
	BorrowRatePerStep decimal.Decimal `sql:"type:decimal(32,16)" json:"borrow_rate_per_step"`
	BorrowIndex       decimal.Decimal `sql:"type:decimal(32,16);default:1" json:"borrow_index"`
	Version           int64           `sql:"default:0" json:"version"`
	CreatedAt         time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// IsListed reports whether the market record exists.
func (m *Market) IsListed() bool {
	return m != nil && m.ID > 0
}

// BorrowAllowed checks the borrow cap.
func (m *Market) BorrowAllowed(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}

	if m.BorrowCap.IsZero() {
		return true
	}

	return m.TotalBorrows.Add(amount).LessThanOrEqual(m.BorrowCap)
}

// IMarketStore market store interface
type IMarketStore interface {
	Save(ctx context.Context, tx *db.DB, market *Market) error
	// Find returns a zero-ID market when the asset is not listed
	Find(ctx context.Context, assetID string) (*Market, error)
	All(ctx context.Context) ([]*Market, error)
	AllAsMap(ctx context.Context) (map[string]*Market, error)
	Update(ctx context.Context, tx *db.DB, market *Market) error
}

// IMarketService market accrual interface
type IMarketService interface {
	// AccrueInterest advances the market to the step at t; idempotent within a step
	AccrueInterest(ctx context.Context, market *Market, t time.Time) error
	CurrentStep(ctx context.Context, t time.Time) (int64, error)
	CurUtilizationRate(ctx context.Context, market *Market) decimal.Decimal
	CurExchangeRate(ctx context.Context, market *Market) decimal.Decimal
	CurBorrowRatePerStep(ctx context.Context, market *Market) decimal.Decimal
	CurSupplyRatePerStep(ctx context.Context, market *Market) decimal.Decimal
	// annualized rates for display
	CurBorrowRate(ctx context.Context, market *Market) decimal.Decimal
	CurSupplyRate(ctx context.Context, market *Market) decimal.Decimal
}
