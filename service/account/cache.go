package account

import (
	"context"
	"fmt"
	"time"

	"levee/core"

	"github.com/bluele/gcache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Cache wraps an account service with a per-account liquidity cache. The
// full calculation scans every listed market, and it runs on each withdraw,
// borrow and liquidate attempt; the facade invalidates the entry whenever it
// mutates one of the account's positions, so a cached value is only ever
// served between mutations.
func Cache(service core.IAccountService, exp time.Duration) core.IAccountService {
	return &cacheAccountService{
		IAccountService: service,
		cache:           gcache.New(2048).LRU().Expiration(exp).Build(),
		sf:              &singleflight.Group{},
	}
}

type cacheAccountService struct {
	core.IAccountService
	cache gcache.Cache
	sf    *singleflight.Group
}

func (s *cacheAccountService) AccountLiquidity(ctx context.Context, userID string) (decimal.Decimal, error) {
	key := s.liquidityKey(userID)

	if v, err := s.cache.Get(key); err == nil {
		if liquidity, ok := v.(decimal.Decimal); ok {
			return liquidity, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		liquidity, err := s.IAccountService.AccountLiquidity(ctx, userID)
		if err != nil {
			return decimal.Zero, err
		}

		s.cache.Set(key, liquidity)
		return liquidity, nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return v.(decimal.Decimal), nil
}

func (s *cacheAccountService) InvalidateLiquidity(ctx context.Context, userID string) {
	s.cache.Remove(s.liquidityKey(userID))
}

func (s *cacheAccountService) liquidityKey(userID string) string {
	return fmt.Sprintf("liquidity:%s", userID)
}
