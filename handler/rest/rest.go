// Package rest exposes the read-only surface: market views, account
// liquidity, account snapshots and the event feed. Mutating operations enter
// through the host ledger, not over HTTP.
package rest

import (
	"net/http"

	"levee/core"
	"levee/handler/param"
	"levee/handler/render"
	"levee/handler/views"

	"github.com/go-chi/chi"
	"github.com/spf13/cast"
)

// Handle rest api
func Handle(
	marketStore core.IMarketStore,
	positionStore core.IPositionStore,
	eventStore core.IEventStore,
	marketService core.IMarketService,
	accountService core.IAccountService,
) http.Handler {
	r := chi.NewRouter()

	r.Get("/markets", allMarketsHandler(marketStore, marketService))
	r.Get("/markets/{asset}", marketHandler(marketStore, marketService))
	r.Get("/accounts/{user}/liquidity", liquidityHandler(positionStore, accountService))
	r.Get("/accounts/{user}/snapshots/{asset}", snapshotHandler(accountService))
	r.Get("/accounts/{user}/events", userEventsHandler(eventStore))
	r.Get("/events", eventsHandler(eventStore))

	return r
}

func allMarketsHandler(marketStore core.IMarketStore, marketService core.IMarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		markets, err := marketStore.All(ctx)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		marketViews := make([]*views.Market, 0, len(markets))
		for _, m := range markets {
			marketViews = append(marketViews, marketView(r, m, marketService))
		}

		render.JSON(w, marketViews)
	}
}

func marketHandler(marketStore core.IMarketStore, marketService core.IMarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		market, err := marketStore.Find(ctx, chi.URLParam(r, "asset"))
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		if !market.IsListed() {
			render.NotFoundRequest(w, core.ErrMarketNotListed)
			return
		}

		render.JSON(w, marketView(r, market, marketService))
	}
}

func liquidityHandler(positionStore core.IPositionStore, accountService core.IAccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := chi.URLParam(r, "user")

		liquidity, err := accountService.AccountLiquidity(ctx, userID)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		positions, err := positionStore.FindByUser(ctx, userID)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		snapshots := make([]*core.AccountSnapshot, 0, len(positions))
		for _, position := range positions {
			snapshot, err := accountService.AccountSnapshot(ctx, userID, position.AssetID)
			if err != nil {
				render.BadRequest(w, err)
				return
			}
			snapshots = append(snapshots, snapshot)
		}

		render.JSON(w, views.Account{
			UserID:    userID,
			Liquidity: liquidity,
			Snapshots: snapshots,
		})
	}
}

func snapshotHandler(accountService core.IAccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		snapshot, err := accountService.AccountSnapshot(ctx, chi.URLParam(r, "user"), chi.URLParam(r, "asset"))
		if err != nil {
			if err == core.ErrMarketNotListed {
				render.NotFoundRequest(w, err)
				return
			}
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, snapshot)
	}
}

func eventsHandler(eventStore core.IEventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		fromID := cast.ToUint64(r.URL.Query().Get("from"))
		limit := cast.ToInt(r.URL.Query().Get("limit"))
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		events, err := eventStore.List(ctx, fromID, limit)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, events)
	}
}

func userEventsHandler(eventStore core.IEventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var params struct {
			Limit int `json:"limit"`
		}
		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		if params.Limit <= 0 || params.Limit > 500 {
			params.Limit = 100
		}

		events, err := eventStore.FindByUser(ctx, chi.URLParam(r, "user"), params.Limit)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, events)
	}
}

func marketView(r *http.Request, market *core.Market, marketService core.IMarketService) *views.Market {
	ctx := r.Context()

	return &views.Market{
		Market:             *market,
		CurExchangeRate:    marketService.CurExchangeRate(ctx, market),
		CurUtilizationRate: marketService.CurUtilizationRate(ctx, market),
		SupplyAPY:          marketService.CurSupplyRate(ctx, market),
		BorrowAPY:          marketService.CurBorrowRate(ctx, market),
	}
}
