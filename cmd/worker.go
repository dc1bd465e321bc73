package cmd

import (
	"os/signal"
	"syscall"

	"levee/worker"
	"levee/worker/accrual"

	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "run background jobs",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		database := provideDatabase()
		defer database.Close()

		marketStore := provideMarketStore(database)
		marketService := provideMarketService()

		workers := []worker.Worker{
			accrual.New(database, marketStore, marketService),
		}

		g, ctx := errgroup.WithContext(ctx)
		for _, w := range workers {
			w := w
			g.Go(func() error {
				return w.Run(ctx)
			})
		}

		if err := g.Wait(); err != nil {
			logger.FromContext(ctx).WithError(err).Infoln("workers exited")
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
