package handler

import (
	"net/http"

	"levee/core"
	"levee/handler/hc"
	"levee/handler/rest"

	"github.com/fox-one/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/cors"
)

// Server api server
type Server struct {
	MarketStore    core.IMarketStore
	PositionStore  core.IPositionStore
	EventStore     core.IEventStore
	MarketService  core.IMarketService
	AccountService core.IAccountService
	Version        string
}

// Handler assembles the read-only api
func (s Server) Handler() http.Handler {
	mux := chi.NewMux()
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(cors.AllowAll().Handler)
	mux.Use(logger.WithRequestID)
	mux.Use(middleware.Logger)

	mux.Mount("/hc", hc.Handle(s.Version))
	mux.Mount("/api", rest.Handle(s.MarketStore, s.PositionStore, s.EventStore, s.MarketService, s.AccountService))

	return mux
}
