package operation

import (
	"context"
	"time"

	"levee/core"
	"levee/pkg/guard"
	"levee/pkg/interest"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var one = decimal.New(1, 0)

type operationService struct {
	db             *db.DB
	guard          *guard.Guard
	marketStore    core.IMarketStore
	positionStore  core.IPositionStore
	eventStore     core.IEventStore
	marketService  core.IMarketService
	accountService core.IAccountService
	adminService   core.IAdminService
	priceService   core.IPriceOracle
	vault          core.Vault
	clock          func() time.Time
}

// New new operation service. Every mutating entry point accrues interest on
// the markets it touches, validates, then commits all writes in one database
// transaction; a failed check or a custody failure leaves state unchanged.
// clock may be nil and defaults to time.Now.
func New(
	db *db.DB,
	marketStore core.IMarketStore,
	positionStore core.IPositionStore,
	eventStore core.IEventStore,
	marketService core.IMarketService,
	accountService core.IAccountService,
	adminService core.IAdminService,
	priceService core.IPriceOracle,
	vault core.Vault,
	clock func() time.Time,
) core.IOperationService {
	if clock == nil {
		clock = time.Now
	}

	return &operationService{
		db:             db,
		guard:          guard.New(),
		marketStore:    marketStore,
		positionStore:  positionStore,
		eventStore:     eventStore,
		marketService:  marketService,
		accountService: accountService,
		adminService:   adminService,
		priceService:   priceService,
		vault:          vault,
		clock:          clock,
	}
}

func (s *operationService) ListMarket(ctx context.Context, caller string, req core.ListMarketReq) (*core.Market, error) {
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"operation": "list_market",
		"asset":     req.AssetID,
	})
	ctx = logger.WithContext(ctx, log)

	if err := s.adminService.Check(ctx, caller); err != nil {
		return nil, err
	}

	if req.AssetID == "" || req.Symbol == "" {
		return nil, core.ErrInvalidParams
	}

	if req.CollateralFactor.IsNegative() ||
		req.CollateralFactor.GreaterThan(interest.CollateralFactorMax) {
		return nil, core.ErrInvalidCollateralFactor
	}

	if req.ReserveFactor.IsNegative() || req.ReserveFactor.GreaterThanOrEqual(one) {
		return nil, core.ErrInvalidParams
	}

	if req.LiquidationIncentive.LessThan(interest.LiquidationIncentiveMin) ||
		req.LiquidationIncentive.GreaterThan(interest.LiquidationIncentiveMax) {
		return nil, core.ErrInvalidParams
	}

	if req.Kink.IsNegative() || req.Kink.GreaterThan(one) {
		return nil, core.ErrInvalidParams
	}

	existing, err := s.marketStore.Find(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	if existing.IsListed() {
		return nil, core.ErrMarketAlreadyListed
	}

	step, err := s.marketService.CurrentStep(ctx, s.clock())
	if err != nil {
		return nil, err
	}

	initExchangeRate := req.InitExchangeRate
	if !initExchangeRate.IsPositive() {
		initExchangeRate = one
	}

	market := &core.Market{
		AssetID:              req.AssetID,
		Symbol:               req.Symbol,
		CollateralFactor:     req.CollateralFactor,
		ReserveFactor:        req.ReserveFactor,
		LiquidationIncentive: req.LiquidationIncentive,
		InitExchangeRate:     initExchangeRate,
		ExchangeRate:         initExchangeRate,
		BorrowCap:            req.BorrowCap,
		BaseRate:             req.BaseRate,
		Multiplier:           req.Multiplier,
		JumpMultiplier:       req.JumpMultiplier,
		Kink:                 req.Kink,
		BorrowIndex:          one,
		AccrualStep:          step,
	}

	err = s.db.Tx(func(tx *db.DB) error {
		if err := s.marketStore.Save(ctx, tx, market); err != nil {
			return err
		}

		return s.eventStore.Create(ctx, tx, &core.Event{
			TraceID: newTraceID(),
			Type:    core.EventMarketListed,
			UserID:  caller,
			AssetID: market.AssetID,
		})
	})
	if err != nil {
		log.WithError(err).Errorln("list market")
		return nil, err
	}

	log.Infoln("market listed")
	return market, nil
}

func (s *operationService) Supply(ctx context.Context, userID, assetID string, amount decimal.Decimal) error {
	if err := s.guard.Enter(); err != nil {
		return core.ErrOperationInFlight
	}
	defer s.guard.Exit()

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"operation": "supply",
		"user":      userID,
		"asset":     assetID,
		"amount":    amount,
	})
	ctx = logger.WithContext(ctx, log)

	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	market, err := s.marketStore.Find(ctx, assetID)
	if err != nil {
		return err
	}
	if !market.IsListed() {
		return core.ErrMarketNotListed
	}

	if err := s.marketService.AccrueInterest(ctx, market, s.clock()); err != nil {
		return err
	}

	exchangeRate := s.marketService.CurExchangeRate(ctx, market)
	shares := amount.Div(exchangeRate).Truncate(interest.MaxPrecision)
	if !shares.IsPositive() {
		return core.ErrInvalidAmount
	}

	position, err := s.positionStore.Find(ctx, userID, assetID)
	if err != nil {
		return err
	}

	if err := s.vault.Pull(ctx, userID, assetID, amount); err != nil {
		log.WithError(err).Infoln("vault.Pull declined")
		return core.ErrTransferFailure
	}

	err = s.db.Tx(func(tx *db.DB) error {
		if position.ID == 0 {
			position.SupplyShares = shares
			position.BorrowIndex = market.BorrowIndex
			if err := s.positionStore.Create(ctx, tx, position); err != nil {
				return err
			}
		} else {
			position.SupplyShares = position.SupplyShares.Add(shares)
			if err := s.positionStore.Update(ctx, tx, position); err != nil {
				return err
			}
		}

		market.TotalCash = market.TotalCash.Add(amount).Truncate(interest.MaxPrecision)
		market.SupplyShares = market.SupplyShares.Add(shares).Truncate(interest.MaxPrecision)
		if err := s.marketStore.Update(ctx, tx, market); err != nil {
			return err
		}

		return s.eventStore.Create(ctx, tx, &core.Event{
			TraceID: newTraceID(),
			Type:    core.EventSupplied,
			UserID:  userID,
			AssetID: assetID,
			Amount:  amount,
		})
	})
	if err != nil {
		// state rolled back; hand the pulled funds back
		_ = s.vault.Push(ctx, userID, assetID, amount)
		log.WithError(err).Errorln("supply")
		return err
	}

	s.accountService.InvalidateLiquidity(ctx, userID)
	return nil
}

func (s *operationService) Withdraw(ctx context.Context, userID, assetID string, amount decimal.Decimal) error {
	if err := s.guard.Enter(); err != nil {
		return core.ErrOperationInFlight
	}
	defer s.guard.Exit()

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"operation": "withdraw",
		"user":      userID,
		"asset":     assetID,
		"amount":    amount,
	})
	ctx = logger.WithContext(ctx, log)

	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	market, err := s.marketStore.Find(ctx, assetID)
	if err != nil {
		return err
	}
	if !market.IsListed() {
		return core.ErrMarketNotListed
	}

	if err := s.accrueAndPersist(ctx, market); err != nil {
		return err
	}

	position, err := s.positionStore.Find(ctx, userID, assetID)
	if err != nil {
		return err
	}

	supplyBalance := interest.SupplyBalance(position, market)
	if amount.GreaterThan(supplyBalance) {
		return core.ErrInsufficientBalance
	}

	if amount.GreaterThan(market.TotalCash.Sub(market.Reserves)) {
		return core.ErrInsufficientPoolLiquidity
	}

	price, err := s.priceService.GetUnderlyingPrice(ctx, assetID)
	if err != nil {
		return err
	}

	liquidity, err := s.accountService.AccountLiquidity(ctx, userID)
	if err != nil {
		return err
	}

	// solvency with the withdrawal tentatively applied: the account loses
	// amount * collateralFactor of borrowing capacity
	if liquidity.Sub(amount.Mul(market.CollateralFactor).Mul(price)).IsNegative() {
		return core.ErrInsufficientLiquidity
	}

	exchangeRate := s.marketService.CurExchangeRate(ctx, market)
	shares := amount.Div(exchangeRate).Truncate(interest.MaxPrecision)
	if amount.Equal(supplyBalance) {
		// full redemption burns every share, leaving no dust
		shares = position.SupplyShares
	}

	err = s.db.Tx(func(tx *db.DB) error {
		position.SupplyShares = position.SupplyShares.Sub(shares)
		if err := s.positionStore.Update(ctx, tx, position); err != nil {
			return err
		}

		market.TotalCash = market.TotalCash.Sub(amount).Truncate(interest.MaxPrecision)
		market.SupplyShares = market.SupplyShares.Sub(shares).Truncate(interest.MaxPrecision)
		if err := s.marketStore.Update(ctx, tx, market); err != nil {
			return err
		}

		if err := s.eventStore.Create(ctx, tx, &core.Event{
			TraceID: newTraceID(),
			Type:    core.EventWithdrawn,
			UserID:  userID,
			AssetID: assetID,
			Amount:  amount,
		}); err != nil {
			return err
		}

		// push last so a custody failure rolls everything back
		if err := s.vault.Push(ctx, userID, assetID, amount); err != nil {
			log.WithError(err).Infoln("vault.Push declined")
			return core.ErrTransferFailure
		}

		return nil
	})
	if err != nil {
		log.WithError(err).Errorln("withdraw")
		return err
	}

	s.accountService.InvalidateLiquidity(ctx, userID)
	return nil
}

func (s *operationService) Borrow(ctx context.Context, userID, assetID string, amount decimal.Decimal) error {
	if err := s.guard.Enter(); err != nil {
		return core.ErrOperationInFlight
	}
	defer s.guard.Exit()

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"operation": "borrow",
		"user":      userID,
		"asset":     assetID,
		"amount":    amount,
	})
	ctx = logger.WithContext(ctx, log)

	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	market, err := s.marketStore.Find(ctx, assetID)
	if err != nil {
		return err
	}
	if !market.IsListed() {
		return core.ErrMarketNotListed
	}

	if err := s.accrueAndPersist(ctx, market); err != nil {
		return err
	}

	if amount.GreaterThan(market.TotalCash.Sub(market.Reserves)) {
		return core.ErrInsufficientPoolLiquidity
	}

	if !market.BorrowAllowed(amount) {
		return core.ErrBorrowsOverCap
	}

	price, err := s.priceService.GetUnderlyingPrice(ctx, assetID)
	if err != nil {
		return err
	}

	liquidity, err := s.accountService.AccountLiquidity(ctx, userID)
	if err != nil {
		return err
	}

	// solvency with the borrow tentatively applied: the surplus must cover
	// the whole new debt
	if amount.Mul(price).GreaterThan(liquidity) {
		return core.ErrInsufficientLiquidity
	}

	position, err := s.positionStore.Find(ctx, userID, assetID)
	if err != nil {
		return err
	}

	newPrincipal := interest.BorrowBalance(position, market).Add(amount)

	err = s.db.Tx(func(tx *db.DB) error {
		position.BorrowPrincipal = newPrincipal
		position.BorrowIndex = market.BorrowIndex
		if position.ID == 0 {
			if err := s.positionStore.Create(ctx, tx, position); err != nil {
				return err
			}
		} else if err := s.positionStore.Update(ctx, tx, position); err != nil {
			return err
		}

		market.TotalCash = market.TotalCash.Sub(amount).Truncate(interest.MaxPrecision)
		market.TotalBorrows = market.TotalBorrows.Add(amount).Truncate(interest.MaxPrecision)
		if err := s.marketStore.Update(ctx, tx, market); err != nil {
			return err
		}

		if err := s.eventStore.Create(ctx, tx, &core.Event{
			TraceID: newTraceID(),
			Type:    core.EventBorrowed,
			UserID:  userID,
			AssetID: assetID,
			Amount:  amount,
		}); err != nil {
			return err
		}

		if err := s.vault.Push(ctx, userID, assetID, amount); err != nil {
			log.WithError(err).Infoln("vault.Push declined")
			return core.ErrTransferFailure
		}

		return nil
	})
	if err != nil {
		log.WithError(err).Errorln("borrow")
		return err
	}

	s.accountService.InvalidateLiquidity(ctx, userID)
	return nil
}

func (s *operationService) Repay(ctx context.Context, userID, assetID string, amount decimal.Decimal) error {
	if err := s.guard.Enter(); err != nil {
		return core.ErrOperationInFlight
	}
	defer s.guard.Exit()

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"operation": "repay",
		"user":      userID,
		"asset":     assetID,
		"amount":    amount,
	})
	ctx = logger.WithContext(ctx, log)

	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	market, err := s.marketStore.Find(ctx, assetID)
	if err != nil {
		return err
	}
	if !market.IsListed() {
		return core.ErrMarketNotListed
	}

	if err := s.marketService.AccrueInterest(ctx, market, s.clock()); err != nil {
		return err
	}

	position, err := s.positionStore.Find(ctx, userID, assetID)
	if err != nil {
		return err
	}

	owed := interest.BorrowBalance(position, market)
	if !owed.IsPositive() {
		return core.ErrInvalidAmount
	}

	// value-preserving clamp: never pull more than is owed
	repayAmount := amount
	if repayAmount.GreaterThan(owed) {
		repayAmount = owed
	}

	if err := s.vault.Pull(ctx, userID, assetID, repayAmount); err != nil {
		log.WithError(err).Infoln("vault.Pull declined")
		return core.ErrTransferFailure
	}

	err = s.db.Tx(func(tx *db.DB) error {
		position.BorrowPrincipal = owed.Sub(repayAmount)
		position.BorrowIndex = market.BorrowIndex
		if err := s.positionStore.Update(ctx, tx, position); err != nil {
			return err
		}

		market.TotalBorrows = market.TotalBorrows.Sub(repayAmount).Truncate(interest.MaxPrecision)
		if market.TotalBorrows.IsNegative() {
			market.TotalBorrows = decimal.Zero
		}
		market.TotalCash = market.TotalCash.Add(repayAmount).Truncate(interest.MaxPrecision)
		if err := s.marketStore.Update(ctx, tx, market); err != nil {
			return err
		}

		return s.eventStore.Create(ctx, tx, &core.Event{
			TraceID: newTraceID(),
			Type:    core.EventRepaid,
			UserID:  userID,
			AssetID: assetID,
			Amount:  repayAmount,
		})
	})
	if err != nil {
		_ = s.vault.Push(ctx, userID, assetID, repayAmount)
		log.WithError(err).Errorln("repay")
		return err
	}

	s.accountService.InvalidateLiquidity(ctx, userID)
	return nil
}

func (s *operationService) Liquidate(ctx context.Context, liquidator, borrower, repayAssetID, collateralAssetID string, amount decimal.Decimal) error {
	if err := s.guard.Enter(); err != nil {
		return core.ErrOperationInFlight
	}
	defer s.guard.Exit()

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"operation":  "liquidate",
		"liquidator": liquidator,
		"borrower":   borrower,
	})
	ctx = logger.WithContext(ctx, log)

	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	if liquidator == borrower {
		return core.ErrInvalidParams
	}

	repayMarket, err := s.marketStore.Find(ctx, repayAssetID)
	if err != nil {
		return err
	}
	if !repayMarket.IsListed() {
		return core.ErrMarketNotListed
	}

	collateralMarket := repayMarket
	if collateralAssetID != repayAssetID {
		collateralMarket, err = s.marketStore.Find(ctx, collateralAssetID)
		if err != nil {
			return err
		}
		if !collateralMarket.IsListed() {
			return core.ErrMarketNotListed
		}
	}

	if err := s.accrueAndPersist(ctx, repayMarket); err != nil {
		return err
	}
	if collateralMarket != repayMarket {
		if err := s.accrueAndPersist(ctx, collateralMarket); err != nil {
			return err
		}
	}

	liquidity, err := s.accountService.AccountLiquidity(ctx, borrower)
	if err != nil {
		return err
	}
	if !liquidity.IsNegative() {
		return core.ErrNotUnderwater
	}

	borrowPosition, err := s.positionStore.Find(ctx, borrower, repayAssetID)
	if err != nil {
		return err
	}

	owed := interest.BorrowBalance(borrowPosition, repayMarket)
	if !owed.IsPositive() {
		return core.ErrInvalidAmount
	}

	repayAmount := amount
	if repayAmount.GreaterThan(owed) {
		repayAmount = owed
	}

	repayPrice, err := s.priceService.GetUnderlyingPrice(ctx, repayAssetID)
	if err != nil {
		return err
	}
	collateralPrice, err := s.priceService.GetUnderlyingPrice(ctx, collateralAssetID)
	if err != nil {
		return err
	}

	// the repaid value inflated by the penalty, in collateral underlying units
	seizedValue := repayAmount.Mul(repayPrice).
		Mul(one.Add(collateralMarket.LiquidationIncentive)).
		Div(collateralPrice).
		Truncate(interest.MaxPrecision)

	collateralPosition, err := s.positionStore.Find(ctx, borrower, collateralAssetID)
	if err != nil {
		return err
	}

	collateralBalance := interest.SupplyBalance(collateralPosition, collateralMarket)
	if seizedValue.GreaterThan(collateralBalance) {
		return core.ErrExcessiveSeizure
	}

	exchangeRate := s.marketService.CurExchangeRate(ctx, collateralMarket)
	seizedShares := seizedValue.Div(exchangeRate).Truncate(interest.MaxPrecision)
	if seizedShares.GreaterThan(collateralPosition.SupplyShares) {
		seizedShares = collateralPosition.SupplyShares
	}

	liquidatorPosition, err := s.positionStore.Find(ctx, liquidator, collateralAssetID)
	if err != nil {
		return err
	}

	if err := s.vault.Pull(ctx, liquidator, repayAssetID, repayAmount); err != nil {
		log.WithError(err).Infoln("vault.Pull declined")
		return core.ErrTransferFailure
	}

	err = s.db.Tx(func(tx *db.DB) error {
		borrowPosition.BorrowPrincipal = owed.Sub(repayAmount)
		borrowPosition.BorrowIndex = repayMarket.BorrowIndex
		if err := s.positionStore.Update(ctx, tx, borrowPosition); err != nil {
			return err
		}

		// share transfer only; no value is created
		if collateralPosition.ID == borrowPosition.ID {
			collateralPosition = borrowPosition
		}
		collateralPosition.SupplyShares = collateralPosition.SupplyShares.Sub(seizedShares)
		if err := s.positionStore.Update(ctx, tx, collateralPosition); err != nil {
			return err
		}

		liquidatorPosition.SupplyShares = liquidatorPosition.SupplyShares.Add(seizedShares)
		if liquidatorPosition.ID == 0 {
			liquidatorPosition.BorrowIndex = collateralMarket.BorrowIndex
			if err := s.positionStore.Create(ctx, tx, liquidatorPosition); err != nil {
				return err
			}
		} else if err := s.positionStore.Update(ctx, tx, liquidatorPosition); err != nil {
			return err
		}

		repayMarket.TotalBorrows = repayMarket.TotalBorrows.Sub(repayAmount).Truncate(interest.MaxPrecision)
		if repayMarket.TotalBorrows.IsNegative() {
			repayMarket.TotalBorrows = decimal.Zero
		}
		repayMarket.TotalCash = repayMarket.TotalCash.Add(repayAmount).Truncate(interest.MaxPrecision)
		if err := s.marketStore.Update(ctx, tx, repayMarket); err != nil {
			return err
		}

		if collateralMarket != repayMarket {
			if err := s.marketStore.Update(ctx, tx, collateralMarket); err != nil {
				return err
			}
		}

		return s.eventStore.Create(ctx, tx, &core.Event{
			TraceID:         newTraceID(),
			Type:            core.EventLiquidated,
			UserID:          liquidator,
			AssetID:         repayAssetID,
			Amount:          repayAmount,
			OpponentID:      borrower,
			OpponentAssetID: collateralAssetID,
			OpponentAmount:  seizedValue,
		})
	})
	if err != nil {
		_ = s.vault.Push(ctx, liquidator, repayAssetID, repayAmount)
		log.WithError(err).Errorln("liquidate")
		return err
	}

	s.accountService.InvalidateLiquidity(ctx, borrower)
	s.accountService.InvalidateLiquidity(ctx, liquidator)
	log.Infoln("liquidated", repayAmount, "seized", seizedValue)
	return nil
}

func (s *operationService) ProposeAdminTransfer(ctx context.Context, caller, candidate string) error {
	if candidate == "" {
		return core.ErrInvalidParams
	}

	if err := s.adminService.Propose(ctx, caller, candidate); err != nil {
		return err
	}

	return s.db.Tx(func(tx *db.DB) error {
		return s.eventStore.Create(ctx, tx, &core.Event{
			TraceID:    newTraceID(),
			Type:       core.EventAdminProposed,
			UserID:     caller,
			OpponentID: candidate,
		})
	})
}

func (s *operationService) AcceptAdminTransfer(ctx context.Context, caller string) error {
	if err := s.adminService.Accept(ctx, caller); err != nil {
		return err
	}

	return s.db.Tx(func(tx *db.DB) error {
		return s.eventStore.Create(ctx, tx, &core.Event{
			TraceID: newTraceID(),
			Type:    core.EventAdminAccepted,
			UserID:  caller,
		})
	})
}

// accrueAndPersist advances the market to the current step and writes it
// through. The liquidity calculation reads committed state, so an in-memory
// accrual alone would value the market's debt at the previously persisted
// borrow index; every solvency or underwater decision must come after the
// accrued index is durable. A no-op within the current step.
func (s *operationService) accrueAndPersist(ctx context.Context, market *core.Market) error {
	prior := market.AccrualStep

	if err := s.marketService.AccrueInterest(ctx, market, s.clock()); err != nil {
		return err
	}

	if market.AccrualStep == prior {
		return nil
	}

	return s.db.Tx(func(tx *db.DB) error {
		return s.marketStore.Update(ctx, tx, market)
	})
}

func newTraceID() string {
	return uuid.Must(uuid.NewV4()).String()
}
