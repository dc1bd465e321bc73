package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// IPriceOracle values a market's underlying in the common unit used by the
// liquidity calculation. The default implementation prices every asset 1:1;
// a real feed plugs in here.
type IPriceOracle interface {
	GetUnderlyingPrice(ctx context.Context, assetID string) (decimal.Decimal, error)
}
