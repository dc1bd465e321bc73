package cmd

import (
	"time"

	"levee/core"
	"levee/service/account"
	"levee/service/admin"
	marketservice "levee/service/market"
	"levee/service/oracle"
	"levee/store/event"
	"levee/store/market"
	"levee/store/position"

	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
)

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func providePropertyStore(db *db.DB) property.Store {
	return propertystore.New(db)
}

func provideMarketStore(db *db.DB) core.IMarketStore {
	return market.New(db)
}

func providePositionStore(db *db.DB) core.IPositionStore {
	return position.New(db)
}

func provideEventStore(db *db.DB) core.IEventStore {
	return event.New(db)
}

func provideMarketService() core.IMarketService {
	return marketservice.New(cfg.App.Genesis, cfg.App.SecondsPerStep)
}

func providePriceService() core.IPriceOracle {
	return oracle.NewOnePrice()
}

func provideAccountService(
	marketStore core.IMarketStore,
	positionStore core.IPositionStore,
	marketService core.IMarketService,
	priceService core.IPriceOracle,
) core.IAccountService {
	return account.Cache(
		account.New(marketStore, positionStore, marketService, priceService),
		time.Second,
	)
}

func provideAdminService(propertyStore property.Store) core.IAdminService {
	return admin.New(propertyStore, cfg.App.Admin)
}
