package market

import (
	"context"
	"time"

	"levee/core"
	"levee/pkg/interest"
	"levee/pkg/ledger"

	"github.com/shopspring/decimal"
)

type marketService struct {
	genesis        int64
	secondsPerStep int64
}

// New new market service. genesis is the unix second the step clock counts
// from; secondsPerStep falls back to the ledger default when zero.
func New(genesis, secondsPerStep int64) core.IMarketService {
	if secondsPerStep <= 0 {
		secondsPerStep = ledger.DefaultSecondsPerStep
	}

	return &marketService{
		genesis:        genesis,
		secondsPerStep: secondsPerStep,
	}
}

func (s *marketService) CurrentStep(ctx context.Context, t time.Time) (int64, error) {
	return ledger.CurrentStep(s.genesis, s.secondsPerStep, t)
}

// AccrueInterest advances the market's index, rates and exchange rate to the
// step at t. Must run before any balance read or solvency check of an
// operation touching the market.
func (s *marketService) AccrueInterest(ctx context.Context, market *core.Market, t time.Time) error {
	step, err := s.CurrentStep(ctx, t)
	if err != nil {
		return err
	}

	interest.Accrue(market, step)
	return nil
}

func (s *marketService) CurUtilizationRate(ctx context.Context, market *core.Market) decimal.Decimal {
	return interest.UtilizationRate(market.TotalCash, market.TotalBorrows, market.Reserves)
}

func (s *marketService) CurExchangeRate(ctx context.Context, market *core.Market) decimal.Decimal {
	return interest.ExchangeRate(market.TotalCash, market.TotalBorrows, market.Reserves, market.SupplyShares, market.InitExchangeRate)
}

func (s *marketService) CurBorrowRatePerStep(ctx context.Context, market *core.Market) decimal.Decimal {
	return interest.BorrowRate(
		s.CurUtilizationRate(ctx, market),
		interest.RatePerStep(market.BaseRate),
		interest.RatePerStep(market.Multiplier),
		interest.RatePerStep(market.JumpMultiplier),
		market.Kink,
	)
}

func (s *marketService) CurSupplyRatePerStep(ctx context.Context, market *core.Market) decimal.Decimal {
	return interest.SupplyRate(
		s.CurUtilizationRate(ctx, market),
		interest.RatePerStep(market.BaseRate),
		interest.RatePerStep(market.Multiplier),
		interest.RatePerStep(market.JumpMultiplier),
		market.Kink,
		market.ReserveFactor,
	)
}

// CurBorrowRate current borrow APY
func (s *marketService) CurBorrowRate(ctx context.Context, market *core.Market) decimal.Decimal {
	return s.CurBorrowRatePerStep(ctx, market).Mul(interest.StepsPerYear).Truncate(interest.MaxPrecision)
}

// CurSupplyRate current supply APY
func (s *marketService) CurSupplyRate(ctx context.Context, market *core.Market) decimal.Decimal {
	return s.CurSupplyRatePerStep(ctx, market).Mul(interest.StepsPerYear).Truncate(interest.MaxPrecision)
}
