package views

import (
	"levee/core"

	"github.com/shopspring/decimal"
)

// Market market view with derived rates
type Market struct {
	core.Market
	CurExchangeRate    decimal.Decimal `json:"cur_exchange_rate"`
	CurUtilizationRate decimal.Decimal `json:"cur_utilization_rate"`
	SupplyAPY          decimal.Decimal `json:"supply_apy"`
	BorrowAPY          decimal.Decimal `json:"borrow_apy"`
}

// Account account view
type Account struct {
	UserID    string                  `json:"user_id"`
	Liquidity decimal.Decimal         `json:"liquidity"`
	Snapshots []*core.AccountSnapshot `json:"snapshots,omitempty"`
}
