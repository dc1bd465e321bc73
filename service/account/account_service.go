package account

import (
	"context"

	"levee/core"
	"levee/pkg/interest"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
)

type accountService struct {
	marketStore   core.IMarketStore
	positionStore core.IPositionStore
	marketService core.IMarketService
	priceService  core.IPriceOracle
}

// New new account service
func New(
	marketStore core.IMarketStore,
	positionStore core.IPositionStore,
	marketService core.IMarketService,
	priceService core.IPriceOracle,
) core.IAccountService {
	return &accountService{
		marketStore:   marketStore,
		positionStore: positionStore,
		marketService: marketService,
		priceService:  priceService,
	}
}

// AccountLiquidity iterates every listed market and aggregates the account's
// risk-weighted collateral against its debt. Balances are valued at each
// market's persisted state, so a caller holding an in-memory accrual must
// write it through before asking for liquidity.
func (s *accountService) AccountLiquidity(ctx context.Context, userID string) (decimal.Decimal, error) {
	log := logger.FromContext(ctx)

	markets, err := s.marketStore.All(ctx)
	if err != nil {
		log.WithError(err).Errorln("markets.All")
		return decimal.Zero, err
	}

	collateral := decimal.Zero
	debt := decimal.Zero

	for _, market := range markets {
		position, err := s.positionStore.Find(ctx, userID, market.AssetID)
		if err != nil {
			log.WithError(err).Errorln("positions.Find")
			return decimal.Zero, err
		}

		if position.ID == 0 {
			continue
		}

		price, err := s.priceService.GetUnderlyingPrice(ctx, market.AssetID)
		if err != nil {
			return decimal.Zero, err
		}

		supplyValue := interest.SupplyBalance(position, market).
			Mul(market.CollateralFactor).
			Mul(price)
		collateral = collateral.Add(supplyValue)

		borrowValue := interest.BorrowBalance(position, market).Mul(price)
		debt = debt.Add(borrowValue)
	}

	return collateral.Sub(debt), nil
}

func (s *accountService) AccountSnapshot(ctx context.Context, userID, assetID string) (*core.AccountSnapshot, error) {
	market, err := s.marketStore.Find(ctx, assetID)
	if err != nil {
		return nil, err
	}

	if !market.IsListed() {
		return nil, core.ErrMarketNotListed
	}

	position, err := s.positionStore.Find(ctx, userID, assetID)
	if err != nil {
		return nil, err
	}

	return &core.AccountSnapshot{
		UserID:        userID,
		AssetID:       assetID,
		SupplyBalance: interest.SupplyBalance(position, market),
		BorrowBalance: interest.BorrowBalance(position, market),
	}, nil
}

// InvalidateLiquidity nothing cached here.
func (s *accountService) InvalidateLiquidity(ctx context.Context, userID string) {}
