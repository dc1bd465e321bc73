// Package interest holds the pure accrual arithmetic: the two-slope borrow
// rate model, the share/underlying exchange rate and the index compounding
// applied by the accrual engine. Everything here is side-effect free except
// Accrue, which mutates the market struct it is given.
package interest

import (
	"levee/core"
	"levee/pkg/number"

	"github.com/shopspring/decimal"
)

var (
	// StepsPerYear steps per year at the default 15s step
	StepsPerYear = decimal.NewFromInt(2102400)
	// CollateralFactorMax collateral factor stays within [0, 0.9]
	CollateralFactorMax = decimal.NewFromFloat(0.9)
	// LiquidationIncentiveMin must be no less than this value
	LiquidationIncentiveMin = decimal.NewFromFloat(0.01)
	// LiquidationIncentiveMax must be no greater than this value
	LiquidationIncentiveMax = decimal.NewFromFloat(0.9)
	// MaxPrecision max precision
	MaxPrecision int32 = 16

	one = decimal.New(1, 0)
)

// UtilizationRate utilization rate
// utilization_rate = market.total_borrows/(market.total_cash + market.total_borrows - market.reserves)
func UtilizationRate(cash, borrows, reserves decimal.Decimal) decimal.Decimal {
	total := cash.Add(borrows).Sub(reserves)
	if total.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	return borrows.Div(total).Truncate(MaxPrecision)
}

// ExchangeRate underlying per supply share
// exchange_rate = (market.total_cash + market.total_borrows - market.reserves) / market.supply_shares
func ExchangeRate(cash, borrows, reserves, shares, initExchangeRate decimal.Decimal) decimal.Decimal {
	if shares.Equal(decimal.Zero) {
		return initExchangeRate
	}

	return cash.Add(borrows).Sub(reserves).Div(shares).Truncate(MaxPrecision)
}

// BorrowRate two-slope rate model. Below the kink the rate climbs from base
// with slope multiplier; at or above it the excess utilization is charged at
// jumpMultiplier. All rates share whatever time unit the inputs carry.
func BorrowRate(utilizationRate, baseRate, multiplier, jumpMultiplier, kink decimal.Decimal) decimal.Decimal {
	if kink.Equal(decimal.Zero) ||
		utilizationRate.LessThanOrEqual(kink) {
		return utilizationRate.Mul(multiplier).Add(baseRate).Truncate(MaxPrecision)
	}

	normalRate := kink.Mul(multiplier).Add(baseRate)
	excessUtilRate := utilizationRate.Sub(kink)
	return excessUtilRate.Mul(jumpMultiplier).Add(normalRate).Truncate(MaxPrecision)
}

// SupplyRate suppliers earn the borrow rate scaled by utilization, net of
// the protocol reserve cut.
func SupplyRate(utilizationRate, baseRate, multiplier, jumpMultiplier, kink, reserveFactor decimal.Decimal) decimal.Decimal {
	borrowRate := BorrowRate(utilizationRate, baseRate, multiplier, jumpMultiplier, kink)
	rateToPool := borrowRate.Mul(one.Sub(reserveFactor))
	return utilizationRate.Mul(rateToPool).Truncate(MaxPrecision)
}

// RatePerStep converts a per-year rate to a per-step rate.
func RatePerStep(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.Div(StepsPerYear).Truncate(MaxPrecision)
}

// Accrue advances the market to step. Idempotent within one step: the index
// and totals only move when the step delta is positive, and the derived
// fields are recomputed from totals, so a second call is a no-op.
//
// The canonical combination formula: over a delta of n steps at per-step
// rate r, totalBorrows grows by totalBorrows*r*n and borrowIndex by
// borrowIndex*r*n. Pool totals and index-revalued positions grow by the same
// factor, so interest is counted exactly once.
func Accrue(market *core.Market, step int64) {
	if !market.BorrowIndex.IsPositive() {
		market.BorrowIndex = decimal.New(1, 0)
	}

	// no capital deployed: nothing to compound and no rates to derive
	if !market.SupplyShares.IsPositive() {
		market.AccrualStep = step
		return
	}

	uRate := UtilizationRate(market.TotalCash, market.TotalBorrows, market.Reserves)
	borrowRate := BorrowRate(
		uRate,
		RatePerStep(market.BaseRate),
		RatePerStep(market.Multiplier),
		RatePerStep(market.JumpMultiplier),
		market.Kink,
	)

	if delta := step - market.AccrualStep; delta > 0 {
		timesBorrowRate := borrowRate.Mul(decimal.NewFromInt(delta))
		interestAccumulated := market.TotalBorrows.Mul(timesBorrowRate).Truncate(MaxPrecision)

		market.AccrualStep = step
		market.TotalBorrows = market.TotalBorrows.Add(interestAccumulated)
		market.Reserves = market.Reserves.Add(interestAccumulated.Mul(market.ReserveFactor).Truncate(MaxPrecision))
		market.BorrowIndex = market.BorrowIndex.Add(
			number.Ceil(timesBorrowRate.Mul(market.BorrowIndex), MaxPrecision))
	}

	uRate = UtilizationRate(market.TotalCash, market.TotalBorrows, market.Reserves)
	market.UtilizationRate = uRate
	market.ExchangeRate = ExchangeRate(market.TotalCash, market.TotalBorrows, market.Reserves, market.SupplyShares, market.InitExchangeRate)
	market.BorrowRatePerStep = BorrowRate(
		uRate,
		RatePerStep(market.BaseRate),
		RatePerStep(market.Multiplier),
		RatePerStep(market.JumpMultiplier),
		market.Kink,
	)
	market.SupplyRatePerStep = SupplyRate(
		uRate,
		RatePerStep(market.BaseRate),
		RatePerStep(market.Multiplier),
		RatePerStep(market.JumpMultiplier),
		market.Kink,
		market.ReserveFactor,
	)
}

// BorrowBalance derived borrow balance
// balance = position.borrow_principal * market.borrow_index / position.borrow_index
func BorrowBalance(p *core.Position, market *core.Market) decimal.Decimal {
	if !p.BorrowPrincipal.IsPositive() {
		return decimal.Zero
	}

	index := market.BorrowIndex
	if !index.IsPositive() {
		index = decimal.New(1, 0)
	}

	snapshot := p.BorrowIndex
	if !snapshot.IsPositive() {
		snapshot = index
	}

	return number.Ceil(p.BorrowPrincipal.Mul(index).Div(snapshot), MaxPrecision)
}

// SupplyBalance derived supply balance
// balance = position.supply_shares * market.exchange_rate
func SupplyBalance(p *core.Position, market *core.Market) decimal.Decimal {
	if !p.SupplyShares.IsPositive() {
		return decimal.Zero
	}

	rate := ExchangeRate(market.TotalCash, market.TotalBorrows, market.Reserves, market.SupplyShares, market.InitExchangeRate)
	return p.SupplyShares.Mul(rate).Truncate(MaxPrecision)
}
