package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"levee/core"
	"levee/pkg/number"
	accountservice "levee/service/account"
	marketservice "levee/service/market"
	"levee/service/oracle"
	eventstore "levee/store/event"
	marketstore "levee/store/market"
	positionstore "levee/store/position"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiquidityEndpoint(t *testing.T) {
	database := db.MustOpen(db.Config{
		Dialect: "sqlite3",
		Host:    filepath.Join(t.TempDir(), "levee.db"),
	})
	require.NoError(t, db.Migrate(database))
	t.Cleanup(func() { database.Close() })

	ctx := context.Background()
	marketStore := marketstore.New(database)
	positionStore := positionstore.New(database)
	eventStore := eventstore.New(database)

	market := &core.Market{
		AssetID:          "btc",
		Symbol:           "BTC",
		TotalCash:        number.Decimal("100"),
		SupplyShares:     number.Decimal("100"),
		CollateralFactor: number.Decimal("0.5"),
		InitExchangeRate: number.Decimal("1"),
		BorrowIndex:      number.Decimal("1"),
		ExchangeRate:     number.Decimal("1"),
		AccrualStep:      1,
	}
	require.NoError(t, database.Tx(func(tx *db.DB) error {
		return marketStore.Save(ctx, tx, market)
	}))

	position := &core.Position{
		UserID:       "alice",
		AssetID:      "btc",
		SupplyShares: number.Decimal("100"),
		BorrowIndex:  number.Decimal("1"),
	}
	require.NoError(t, database.Tx(func(tx *db.DB) error {
		return positionStore.Create(ctx, tx, position)
	}))

	marketService := marketservice.New(time.Now().Add(-time.Hour).Unix(), 15)
	accountService := accountservice.New(marketStore, positionStore, marketService, oracle.NewOnePrice())

	handler := Handle(marketStore, positionStore, eventStore, marketService, accountService)

	req := httptest.NewRequest(http.MethodGet, "/accounts/alice/liquidity", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		UserID    string                  `json:"user_id"`
		Liquidity decimal.Decimal         `json:"liquidity"`
		Snapshots []*core.AccountSnapshot `json:"snapshots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))

	assert.Equal(t, "alice", view.UserID)
	assert.True(t, view.Liquidity.Equal(number.Decimal("50")), "liquidity %s", view.Liquidity)

	// one snapshot per position the account holds
	require.Len(t, view.Snapshots, 1)
	assert.Equal(t, "btc", view.Snapshots[0].AssetID)
	assert.True(t, view.Snapshots[0].SupplyBalance.Equal(number.Decimal("100")))
	assert.True(t, view.Snapshots[0].BorrowBalance.IsZero())

	// an account with no positions reports empty snapshots, not an error
	req = httptest.NewRequest(http.MethodGet, "/accounts/bob/liquidity", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var empty struct {
		Liquidity decimal.Decimal         `json:"liquidity"`
		Snapshots []*core.AccountSnapshot `json:"snapshots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.True(t, empty.Liquidity.IsZero())
	assert.Empty(t, empty.Snapshots)
}
