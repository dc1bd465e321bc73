package operation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"levee/core"
	"levee/pkg/number"
	accountservice "levee/service/account"
	adminservice "levee/service/admin"
	marketservice "levee/service/market"
	"levee/service/vault"
	eventstore "levee/store/event"
	marketstore "levee/store/market"
	positionstore "levee/store/position"

	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdmin   = "admin"
	testBTC     = "btc"
	testUSD     = "usd"
	testSeconds = int64(15)
)

type fakeOracle struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func (o *fakeOracle) GetUnderlyingPrice(ctx context.Context, assetID string) (decimal.Decimal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if p, ok := o.prices[assetID]; ok {
		return p, nil
	}

	return decimal.New(1, 0), nil
}

func (o *fakeOracle) setPrice(assetID string, price decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.prices[assetID] = price
}

type flakyVault struct {
	*vault.Memory
	pullErr error
	pushErr error
	onPull  func()
	onPush  func()
}

func (v *flakyVault) Pull(ctx context.Context, account, assetID string, amount decimal.Decimal) error {
	if v.onPull != nil {
		v.onPull()
	}

	if v.pullErr != nil {
		return v.pullErr
	}

	return v.Memory.Pull(ctx, account, assetID, amount)
}

func (v *flakyVault) Push(ctx context.Context, account, assetID string, amount decimal.Decimal) error {
	if v.onPush != nil {
		v.onPush()
	}

	if v.pushErr != nil {
		return v.pushErr
	}

	return v.Memory.Push(ctx, account, assetID, amount)
}

type testEnv struct {
	t         *testing.T
	db        *db.DB
	facade    core.IOperationService
	vault     *flakyVault
	oracle    *fakeOracle
	markets   core.IMarketStore
	positions core.IPositionStore
	events    core.IEventStore
	accounts  core.IAccountService
	now       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	base := time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)

	database := db.MustOpen(db.Config{
		Dialect: "sqlite3",
		Host:    filepath.Join(t.TempDir(), "levee.db"),
	})
	require.NoError(t, db.Migrate(database))
	t.Cleanup(func() { database.Close() })

	env := &testEnv{
		t:      t,
		db:     database,
		vault:  &flakyVault{Memory: vault.NewMemory()},
		oracle: &fakeOracle{prices: map[string]decimal.Decimal{}},
		now:    base.Add(time.Duration(testSeconds) * time.Second),
	}

	env.markets = marketstore.New(database)
	env.positions = positionstore.New(database)
	env.events = eventstore.New(database)

	marketz := marketservice.New(base.Unix(), testSeconds)
	env.accounts = accountservice.New(env.markets, env.positions, marketz, env.oracle)
	adminz := adminservice.New(propertystore.New(database), testAdmin)

	env.facade = New(
		database,
		env.markets,
		env.positions,
		env.events,
		marketz,
		env.accounts,
		adminz,
		env.oracle,
		env.vault,
		func() time.Time { return env.now },
	)

	return env
}

func (env *testEnv) advance(steps int64) {
	env.now = env.now.Add(time.Duration(steps*testSeconds) * time.Second)
}

func (env *testEnv) market(assetID string) *core.Market {
	market, err := env.markets.Find(context.Background(), assetID)
	require.NoError(env.t, err)
	return market
}

func (env *testEnv) position(userID, assetID string) *core.Position {
	position, err := env.positions.Find(context.Background(), userID, assetID)
	require.NoError(env.t, err)
	return position
}

func (env *testEnv) snapshot(userID, assetID string) *core.AccountSnapshot {
	snapshot, err := env.accounts.AccountSnapshot(context.Background(), userID, assetID)
	require.NoError(env.t, err)
	return snapshot
}

// zero-rate market so balances stay put unless a test opts into interest
func listReq(assetID, symbol string) core.ListMarketReq {
	return core.ListMarketReq{
		AssetID:              assetID,
		Symbol:               symbol,
		CollateralFactor:     number.Decimal("0.75"),
		ReserveFactor:        number.Decimal("0.1"),
		LiquidationIncentive: number.Decimal("0.1"),
		InitExchangeRate:     number.Decimal("1"),
		Kink:                 number.Decimal("0.9"),
	}
}

func (env *testEnv) mustList(req core.ListMarketReq) *core.Market {
	market, err := env.facade.ListMarket(context.Background(), testAdmin, req)
	require.NoError(env.t, err)
	return market
}

func assertDecimal(t *testing.T, expect string, got decimal.Decimal) {
	assert.True(t, got.Equal(number.Decimal(expect)), "expect %s got %s", expect, got)
}

func TestListMarket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.facade.ListMarket(ctx, "mallory", listReq(testBTC, "BTC"))
	assert.Equal(t, core.ErrUnauthorized, err)

	req := listReq(testBTC, "BTC")
	req.CollateralFactor = number.Decimal("0.95")
	_, err = env.facade.ListMarket(ctx, testAdmin, req)
	assert.Equal(t, core.ErrInvalidCollateralFactor, err)

	req = listReq(testBTC, "BTC")
	req.ReserveFactor = number.Decimal("1")
	_, err = env.facade.ListMarket(ctx, testAdmin, req)
	assert.Equal(t, core.ErrInvalidParams, err)

	req = listReq(testBTC, "BTC")
	req.LiquidationIncentive = number.Decimal("0.95")
	_, err = env.facade.ListMarket(ctx, testAdmin, req)
	assert.Equal(t, core.ErrInvalidParams, err)

	market := env.mustList(listReq(testBTC, "BTC"))
	assert.True(t, market.IsListed())
	assertDecimal(t, "1", market.BorrowIndex)
	assertDecimal(t, "1", market.ExchangeRate)
	assert.Equal(t, int64(1), market.AccrualStep)

	_, err = env.facade.ListMarket(ctx, testAdmin, listReq(testBTC, "BTC"))
	assert.Equal(t, core.ErrMarketAlreadyListed, err)

	events, err := env.events.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventMarketListed, events[0].Type)
	assert.Equal(t, testBTC, events[0].AssetID)
}

func TestSupplyAndWithdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustList(listReq(testBTC, "BTC"))
	env.vault.Credit("alice", testBTC, number.Decimal("100"))

	err := env.facade.Supply(ctx, "alice", testBTC, decimal.Zero)
	assert.Equal(t, core.ErrInvalidAmount, err)

	err = env.facade.Supply(ctx, "alice", testUSD, number.Decimal("1"))
	assert.Equal(t, core.ErrMarketNotListed, err)

	require.NoError(t, env.facade.Supply(ctx, "alice", testBTC, number.Decimal("100")))
	assertDecimal(t, "0", env.vault.Balance("alice", testBTC))

	market := env.market(testBTC)
	assertDecimal(t, "100", market.TotalCash)
	assertDecimal(t, "100", market.SupplyShares)

	position := env.position("alice", testBTC)
	assertDecimal(t, "100", position.SupplyShares)

	err = env.facade.Withdraw(ctx, "alice", testBTC, number.Decimal("101"))
	assert.Equal(t, core.ErrInsufficientBalance, err)

	require.NoError(t, env.facade.Withdraw(ctx, "alice", testBTC, number.Decimal("40")))
	assertDecimal(t, "40", env.vault.Balance("alice", testBTC))

	// full redemption burns every remaining share
	require.NoError(t, env.facade.Withdraw(ctx, "alice", testBTC, number.Decimal("60")))
	assertDecimal(t, "100", env.vault.Balance("alice", testBTC))

	position = env.position("alice", testBTC)
	assertDecimal(t, "0", position.SupplyShares)

	market = env.market(testBTC)
	assertDecimal(t, "0", market.TotalCash)
	assertDecimal(t, "0", market.SupplyShares)

	events, err := env.events.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, core.EventSupplied, events[1].Type)
	assert.Equal(t, core.EventWithdrawn, events[2].Type)
	assert.Equal(t, core.EventWithdrawn, events[3].Type)
}

func TestBorrowGates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustList(listReq(testBTC, "BTC"))
	env.mustList(listReq(testUSD, "USD"))

	env.vault.Credit("bob", testUSD, number.Decimal("1000"))
	require.NoError(t, env.facade.Supply(ctx, "bob", testUSD, number.Decimal("1000")))

	env.vault.Credit("alice", testBTC, number.Decimal("100"))
	require.NoError(t, env.facade.Supply(ctx, "alice", testBTC, number.Decimal("100")))

	// 100 collateral at factor 0.75 backs exactly 75 of debt
	require.NoError(t, env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("70")))
	assertDecimal(t, "70", env.vault.Balance("alice", testUSD))

	err := env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("6"))
	assert.Equal(t, core.ErrInsufficientLiquidity, err)

	require.NoError(t, env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("5")))
	assertDecimal(t, "75", env.vault.Balance("alice", testUSD))

	market := env.market(testUSD)
	assertDecimal(t, "925", market.TotalCash)
	assertDecimal(t, "75", market.TotalBorrows)

	snapshot := env.snapshot("alice", testUSD)
	assertDecimal(t, "75", snapshot.BorrowBalance)

	liquidity, err := env.accounts.AccountLiquidity(ctx, "alice")
	require.NoError(t, err)
	assertDecimal(t, "0", liquidity)
}

func TestBorrowPoolAndCapGates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := listReq(testUSD, "USD")
	req.BorrowCap = number.Decimal("50")
	env.mustList(req)
	env.mustList(listReq(testBTC, "BTC"))

	env.vault.Credit("bob", testUSD, number.Decimal("60"))
	require.NoError(t, env.facade.Supply(ctx, "bob", testUSD, number.Decimal("60")))

	env.vault.Credit("alice", testBTC, number.Decimal("1000"))
	require.NoError(t, env.facade.Supply(ctx, "alice", testBTC, number.Decimal("1000")))

	err := env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("70"))
	assert.Equal(t, core.ErrInsufficientPoolLiquidity, err)

	err = env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("55"))
	assert.Equal(t, core.ErrBorrowsOverCap, err)

	require.NoError(t, env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("50")))

	// the cap counts outstanding borrows, not lifetime volume
	err = env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("1"))
	assert.Equal(t, core.ErrBorrowsOverCap, err)
}

func TestWithdrawGates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustList(listReq(testBTC, "BTC"))
	env.mustList(listReq(testUSD, "USD"))

	env.vault.Credit("bob", testUSD, number.Decimal("100"))
	require.NoError(t, env.facade.Supply(ctx, "bob", testUSD, number.Decimal("100")))

	env.vault.Credit("alice", testBTC, number.Decimal("100"))
	require.NoError(t, env.facade.Supply(ctx, "alice", testBTC, number.Decimal("100")))
	require.NoError(t, env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("70")))

	// liquidity is 5; losing 7 * 0.75 of capacity would break solvency
	err := env.facade.Withdraw(ctx, "alice", testBTC, number.Decimal("7"))
	assert.Equal(t, core.ErrInsufficientLiquidity, err)

	require.NoError(t, env.facade.Withdraw(ctx, "alice", testBTC, number.Decimal("6")))

	// pool cash is down to 30 after the borrow
	err = env.facade.Withdraw(ctx, "bob", testUSD, number.Decimal("50"))
	assert.Equal(t, core.ErrInsufficientPoolLiquidity, err)

	require.NoError(t, env.facade.Withdraw(ctx, "bob", testUSD, number.Decimal("30")))
}

func TestRepayClamp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustList(listReq(testBTC, "BTC"))
	env.mustList(listReq(testUSD, "USD"))

	env.vault.Credit("bob", testUSD, number.Decimal("100"))
	require.NoError(t, env.facade.Supply(ctx, "bob", testUSD, number.Decimal("100")))

	env.vault.Credit("alice", testBTC, number.Decimal("100"))
	require.NoError(t, env.facade.Supply(ctx, "alice", testBTC, number.Decimal("100")))
	require.NoError(t, env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("70")))

	require.NoError(t, env.facade.Repay(ctx, "alice", testUSD, number.Decimal("20")))
	snapshot := env.snapshot("alice", testUSD)
	assertDecimal(t, "50", snapshot.BorrowBalance)

	// over-repay pulls exactly what is owed
	require.NoError(t, env.facade.Repay(ctx, "alice", testUSD, number.Decimal("1000")))
	assertDecimal(t, "0", env.vault.Balance("alice", testUSD))

	snapshot = env.snapshot("alice", testUSD)
	assertDecimal(t, "0", snapshot.BorrowBalance)

	market := env.market(testUSD)
	assertDecimal(t, "100", market.TotalCash)
	assertDecimal(t, "0", market.TotalBorrows)

	err := env.facade.Repay(ctx, "alice", testUSD, number.Decimal("1"))
	assert.Equal(t, core.ErrInvalidAmount, err)

	events, err := env.events.FindByUser(ctx, "alice", 10)
	require.NoError(t, err)
	var repaid []*core.Event
	for _, event := range events {
		if event.Type == core.EventRepaid {
			repaid = append(repaid, event)
		}
	}
	require.Len(t, repaid, 2)
	assertDecimal(t, "50", repaid[0].Amount)
}

func TestInterestAccrualLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// per-step rates: base 0.000001, multiplier 0.00001
	usd := listReq(testUSD, "USD")
	usd.BaseRate = number.Decimal("2.1024")
	usd.Multiplier = number.Decimal("21.024")
	usd.JumpMultiplier = number.Decimal("42.048")
	env.mustList(usd)

	btc := listReq(testBTC, "BTC")
	btc.CollateralFactor = number.Decimal("0.9")
	env.mustList(btc)

	env.vault.Credit("bob", testUSD, number.Decimal("100"))
	require.NoError(t, env.facade.Supply(ctx, "bob", testUSD, number.Decimal("100")))

	env.vault.Credit("alice", testBTC, number.Decimal("200"))
	require.NoError(t, env.facade.Supply(ctx, "alice", testBTC, number.Decimal("200")))
	require.NoError(t, env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("80")))

	// utilization 0.8, borrow rate 0.000009 per step, 100 steps
	env.advance(100)

	env.vault.Credit("alice", testUSD, number.Decimal("10"))
	require.NoError(t, env.facade.Repay(ctx, "alice", testUSD, number.Decimal("1000")))
	assertDecimal(t, "9.928", env.vault.Balance("alice", testUSD))

	market := env.market(testUSD)
	assertDecimal(t, "0", market.TotalBorrows)
	assertDecimal(t, "100.072", market.TotalCash)
	assertDecimal(t, "0.0072", market.Reserves)
	assertDecimal(t, "1.0009", market.BorrowIndex)

	// suppliers carry the interest net of reserves
	snapshot := env.snapshot("bob", testUSD)
	assertDecimal(t, "100.0648", snapshot.SupplyBalance)

	require.NoError(t, env.facade.Withdraw(ctx, "bob", testUSD, snapshot.SupplyBalance))
	assertDecimal(t, "100.0648", env.vault.Balance("bob", testUSD))

	// after the last supplier exits only the reserves remain in the pool
	market = env.market(testUSD)
	assertDecimal(t, "0", market.SupplyShares)
	assert.True(t, market.TotalCash.Equal(market.Reserves),
		"cash %s reserves %s", market.TotalCash, market.Reserves)
}

func TestSolvencyGatesSeeAccruedInterest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// per-step rates: base 0.000001, multiplier 0.00001
	usd := listReq(testUSD, "USD")
	usd.BaseRate = number.Decimal("2.1024")
	usd.Multiplier = number.Decimal("21.024")
	usd.JumpMultiplier = number.Decimal("42.048")
	env.mustList(usd)
	env.mustList(listReq(testBTC, "BTC"))

	env.vault.Credit("bob", testUSD, number.Decimal("100"))
	require.NoError(t, env.facade.Supply(ctx, "bob", testUSD, number.Decimal("100")))

	env.vault.Credit("alice", testBTC, number.Decimal("100"))
	require.NoError(t, env.facade.Supply(ctx, "alice", testBTC, number.Decimal("100")))
	require.NoError(t, env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("70")))

	// utilization 0.7, borrow rate 0.000008 per step; after 20000 steps the
	// debt grows to 70 * 1.16 = 81.2 against 75 of capacity
	env.advance(20000)

	err := env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("4"))
	assert.Equal(t, core.ErrInsufficientLiquidity, err)

	// the rejected borrow still left the accrual on disk
	market := env.market(testUSD)
	assertDecimal(t, "1.16", market.BorrowIndex)
	assertDecimal(t, "81.2", market.TotalBorrows)
	assertDecimal(t, "1.12", market.Reserves)

	liquidity, err := env.accounts.AccountLiquidity(ctx, "alice")
	require.NoError(t, err)
	assertDecimal(t, "-6.2", liquidity)

	// underwater purely through accrued interest, with no price move
	env.vault.Credit("carol", testUSD, number.Decimal("50"))
	require.NoError(t, env.facade.Liquidate(ctx, "carol", "alice", testUSD, testBTC, number.Decimal("10")))

	// 10 * 1.1 of collateral changes hands at price parity
	alicePosition := env.position("alice", testBTC)
	assertDecimal(t, "89", alicePosition.SupplyShares)

	carolPosition := env.position("carol", testBTC)
	assertDecimal(t, "11", carolPosition.SupplyShares)

	snapshot := env.snapshot("alice", testUSD)
	assertDecimal(t, "71.2", snapshot.BorrowBalance)
}

func TestNestedOperationRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustList(listReq(testBTC, "BTC"))
	env.vault.Credit("alice", testBTC, number.Decimal("100"))

	var nested error
	env.vault.onPull = func() {
		nested = env.facade.Withdraw(ctx, "alice", testBTC, number.Decimal("1"))
	}

	require.NoError(t, env.facade.Supply(ctx, "alice", testBTC, number.Decimal("50")))
	assert.Equal(t, core.ErrOperationInFlight, nested)

	// the outer supply committed untouched by the rejected nested call
	market := env.market(testBTC)
	assertDecimal(t, "50", market.TotalCash)
	assertDecimal(t, "50", env.vault.Balance("alice", testBTC))

	env.vault.onPull = nil
	nested = nil
	env.vault.onPush = func() {
		nested = env.facade.Supply(ctx, "alice", testBTC, number.Decimal("1"))
	}

	require.NoError(t, env.facade.Withdraw(ctx, "alice", testBTC, number.Decimal("20")))
	assert.Equal(t, core.ErrOperationInFlight, nested)

	market = env.market(testBTC)
	assertDecimal(t, "30", market.TotalCash)
	assertDecimal(t, "70", env.vault.Balance("alice", testBTC))
}

func TestLiquidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustList(listReq(testBTC, "BTC"))
	env.mustList(listReq(testUSD, "USD"))

	env.vault.Credit("bob", testUSD, number.Decimal("1000"))
	require.NoError(t, env.facade.Supply(ctx, "bob", testUSD, number.Decimal("1000")))

	env.vault.Credit("alice", testBTC, number.Decimal("100"))
	require.NoError(t, env.facade.Supply(ctx, "alice", testBTC, number.Decimal("100")))
	require.NoError(t, env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("70")))

	env.vault.Credit("carol", testUSD, number.Decimal("100"))

	err := env.facade.Liquidate(ctx, "carol", "alice", testUSD, testBTC, number.Decimal("20"))
	assert.Equal(t, core.ErrNotUnderwater, err)

	// collateral value drops to 80, capacity 60 against 70 of debt
	env.oracle.setPrice(testBTC, number.Decimal("0.8"))

	err = env.facade.Liquidate(ctx, "alice", "alice", testUSD, testBTC, number.Decimal("20"))
	assert.Equal(t, core.ErrInvalidParams, err)

	require.NoError(t, env.facade.Liquidate(ctx, "carol", "alice", testUSD, testBTC, number.Decimal("20")))
	assertDecimal(t, "80", env.vault.Balance("carol", testUSD))

	// 20 * 1.1 / 0.8 = 27.5 of collateral changes hands
	alicePosition := env.position("alice", testBTC)
	assertDecimal(t, "72.5", alicePosition.SupplyShares)

	carolPosition := env.position("carol", testBTC)
	assertDecimal(t, "27.5", carolPosition.SupplyShares)

	// seizure moves shares between accounts without minting any
	market := env.market(testBTC)
	assert.True(t, market.SupplyShares.Equal(
		alicePosition.SupplyShares.Add(carolPosition.SupplyShares)))
	assertDecimal(t, "100", market.TotalCash)

	snapshot := env.snapshot("alice", testUSD)
	assertDecimal(t, "50", snapshot.BorrowBalance)

	usdMarket := env.market(testUSD)
	assertDecimal(t, "950", usdMarket.TotalCash)
	assertDecimal(t, "50", usdMarket.TotalBorrows)

	events, err := env.events.FindByUser(ctx, "carol", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventLiquidated, events[0].Type)
	assert.Equal(t, "alice", events[0].OpponentID)
	assert.Equal(t, testBTC, events[0].OpponentAssetID)
	assertDecimal(t, "27.5", events[0].OpponentAmount)
}

func TestLiquidateSeizureBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	btc := listReq(testBTC, "BTC")
	btc.CollateralFactor = number.Decimal("0.9")
	env.mustList(btc)
	env.mustList(listReq(testUSD, "USD"))

	env.vault.Credit("bob", testUSD, number.Decimal("1000"))
	require.NoError(t, env.facade.Supply(ctx, "bob", testUSD, number.Decimal("1000")))

	env.vault.Credit("alice", testBTC, number.Decimal("110"))
	require.NoError(t, env.facade.Supply(ctx, "alice", testBTC, number.Decimal("110")))
	require.NoError(t, env.facade.Borrow(ctx, "alice", testUSD, number.Decimal("99")))

	// debt value climbs to 123.75 against 99 of capacity
	env.oracle.setPrice(testUSD, number.Decimal("1.25"))
	env.vault.Credit("carol", testUSD, number.Decimal("200"))

	// repaying 81 would seize 81 * 1.25 * 1.1 = 111.375, above the collateral
	err := env.facade.Liquidate(ctx, "carol", "alice", testUSD, testBTC, number.Decimal("81"))
	assert.Equal(t, core.ErrExcessiveSeizure, err)

	// repaying 80 seizes exactly the collateral balance of 110
	require.NoError(t, env.facade.Liquidate(ctx, "carol", "alice", testUSD, testBTC, number.Decimal("80")))

	alicePosition := env.position("alice", testBTC)
	assertDecimal(t, "0", alicePosition.SupplyShares)

	carolPosition := env.position("carol", testBTC)
	assertDecimal(t, "110", carolPosition.SupplyShares)

	snapshot := env.snapshot("alice", testUSD)
	assertDecimal(t, "19", snapshot.BorrowBalance)
}

func TestTransferFailureLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustList(listReq(testBTC, "BTC"))
	env.vault.Credit("alice", testBTC, number.Decimal("100"))
	require.NoError(t, env.facade.Supply(ctx, "alice", testBTC, number.Decimal("100")))

	env.vault.pushErr = errors.New("custody down")

	err := env.facade.Withdraw(ctx, "alice", testBTC, number.Decimal("40"))
	assert.Equal(t, core.ErrTransferFailure, err)

	// the rolled back transaction left market and position untouched
	market := env.market(testBTC)
	assertDecimal(t, "100", market.TotalCash)
	assertDecimal(t, "100", market.SupplyShares)

	position := env.position("alice", testBTC)
	assertDecimal(t, "100", position.SupplyShares)
	assertDecimal(t, "0", env.vault.Balance("alice", testBTC))

	env.vault.pushErr = nil
	require.NoError(t, env.facade.Withdraw(ctx, "alice", testBTC, number.Decimal("40")))
	assertDecimal(t, "40", env.vault.Balance("alice", testBTC))

	// a declined pull aborts a supply before anything is written
	env.vault.pullErr = errors.New("custody down")
	err = env.facade.Supply(ctx, "alice", testBTC, number.Decimal("40"))
	assert.Equal(t, core.ErrTransferFailure, err)

	market = env.market(testBTC)
	assertDecimal(t, "60", market.TotalCash)
	assertDecimal(t, "40", env.vault.Balance("alice", testBTC))
}

func TestAdminHandover(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.facade.ProposeAdminTransfer(ctx, "mallory", "mallory")
	assert.Equal(t, core.ErrUnauthorized, err)

	err = env.facade.AcceptAdminTransfer(ctx, "carol")
	assert.Equal(t, core.ErrUnauthorized, err)

	require.NoError(t, env.facade.ProposeAdminTransfer(ctx, testAdmin, "carol"))

	// the incumbent keeps office until the candidate accepts
	env.mustList(listReq(testBTC, "BTC"))

	err = env.facade.AcceptAdminTransfer(ctx, "dave")
	assert.Equal(t, core.ErrUnauthorized, err)

	require.NoError(t, env.facade.AcceptAdminTransfer(ctx, "carol"))

	_, err = env.facade.ListMarket(ctx, testAdmin, listReq(testUSD, "USD"))
	assert.Equal(t, core.ErrUnauthorized, err)

	_, err = env.facade.ListMarket(ctx, "carol", listReq(testUSD, "USD"))
	require.NoError(t, err)

	// a completed handover can not be replayed
	err = env.facade.AcceptAdminTransfer(ctx, "carol")
	assert.Equal(t, core.ErrUnauthorized, err)
}
