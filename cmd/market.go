package cmd

import (
	"levee/core"
	"levee/pkg/number"
	"levee/service/operation"
	"levee/service/vault"

	"github.com/spf13/cobra"
)

// command for listing a new market, administrator only
var listMarketCmd = &cobra.Command{
	Use:   "list-market <asset> <symbol>",
	Short: "list a new market",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database := provideDatabase()
		defer database.Close()

		marketStore := provideMarketStore(database)
		positionStore := providePositionStore(database)
		eventStore := provideEventStore(database)
		marketService := provideMarketService()
		priceService := providePriceService()
		accountService := provideAccountService(marketStore, positionStore, marketService, priceService)
		adminService := provideAdminService(providePropertyStore(database))

		facade := operation.New(
			database,
			marketStore,
			positionStore,
			eventStore,
			marketService,
			accountService,
			adminService,
			priceService,
			vault.NewMemory(),
			nil,
		)

		flag := func(name string) string {
			v, _ := cmd.Flags().GetString(name)
			return v
		}

		market, err := facade.ListMarket(ctx, cfg.App.Admin, core.ListMarketReq{
			AssetID:              args[0],
			Symbol:               args[1],
			CollateralFactor:     number.Decimal(flag("collateral-factor")),
			ReserveFactor:        number.Decimal(flag("reserve-factor")),
			LiquidationIncentive: number.Decimal(flag("liquidation-incentive")),
			InitExchangeRate:     number.Decimal(flag("init-exchange-rate")),
			BorrowCap:            number.Decimal(flag("borrow-cap")),
			BaseRate:             number.Decimal(flag("base-rate")),
			Multiplier:           number.Decimal(flag("multiplier")),
			JumpMultiplier:       number.Decimal(flag("jump-multiplier")),
			Kink:                 number.Decimal(flag("kink")),
		})
		if err != nil {
			cmd.PrintErrln("list market error:", err)
			return
		}

		cmd.Println("market listed:", market.AssetID, market.Symbol)
	},
}

func init() {
	listMarketCmd.Flags().String("collateral-factor", "0.75", "fraction of supply value usable as borrowing capacity")
	listMarketCmd.Flags().String("reserve-factor", "0.1", "protocol cut of interest income")
	listMarketCmd.Flags().String("liquidation-incentive", "0.1", "surcharge on seized collateral")
	listMarketCmd.Flags().String("init-exchange-rate", "1", "exchange rate before any shares exist")
	listMarketCmd.Flags().String("borrow-cap", "0", "max outstanding borrows, zero for no cap")
	listMarketCmd.Flags().String("base-rate", "0.025", "base borrow rate per year")
	listMarketCmd.Flags().String("multiplier", "0.2", "rate slope below the kink, per year")
	listMarketCmd.Flags().String("jump-multiplier", "1", "rate slope above the kink, per year")
	listMarketCmd.Flags().String("kink", "0.8", "utilization threshold where the slope steepens")

	rootCmd.AddCommand(listMarketCmd)
}
