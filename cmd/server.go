package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"levee/handler"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "run the levee read-only api server",
	Run: func(cmd *cobra.Command, args []string) {
		database := provideDatabase()
		defer database.Close()

		marketStore := provideMarketStore(database)
		positionStore := providePositionStore(database)
		eventStore := provideEventStore(database)
		marketService := provideMarketService()
		priceService := providePriceService()
		accountService := provideAccountService(marketStore, positionStore, marketService, priceService)

		svr := handler.Server{
			MarketStore:    marketStore,
			PositionStore:  positionStore,
			EventStore:     eventStore,
			MarketService:  marketService,
			AccountService: accountService,
			Version:        rootCmd.Version,
		}

		port, _ := cmd.Flags().GetInt("port")
		if port <= 0 {
			port = cfg.App.Port
		}

		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: svr.Handler(),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go func() {
			logrus.Infoln("serve at", server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.WithError(err).Fatal("server aborted")
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Errorln("server shutdown")
		}
	},
}

func init() {
	serverCmd.Flags().Int("port", 0, "custom server port")
	rootCmd.AddCommand(serverCmd)
}
