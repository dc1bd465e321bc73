package accrual

import (
	"context"
	"time"

	"levee/core"
	"levee/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"golang.org/x/sync/errgroup"
)

// Accrual advances every market's borrow index once per cycle so indexes and
// rates stay fresh in markets no operation has touched. Operations accrue on
// their own; a concurrent write is caught by the market's version and
// retried next cycle.
type Accrual struct {
	worker.TickWorker
	db            *db.DB
	marketStore   core.IMarketStore
	marketService core.IMarketService
}

// New new accrual worker
func New(
	database *db.DB,
	marketStore core.IMarketStore,
	marketService core.IMarketService,
) *Accrual {
	return &Accrual{
		TickWorker:    worker.TickWorker{Delay: 15 * time.Second},
		db:            database,
		marketStore:   marketStore,
		marketService: marketService,
	}
}

// Run run worker
func (w *Accrual) Run(ctx context.Context) error {
	return w.StartTick(ctx, w.onWork)
}

func (w *Accrual) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "accrual")

	markets, err := w.marketStore.All(ctx)
	if err != nil {
		log.WithError(err).Errorln("markets.All")
		return err
	}

	var g errgroup.Group
	for _, m := range markets {
		market := m
		g.Go(func() error {
			if err := w.accrueMarket(ctx, market); err != nil {
				log.WithError(err).Errorln("accrue", market.AssetID)
			}
			return nil
		})
	}

	return g.Wait()
}

func (w *Accrual) accrueMarket(ctx context.Context, market *core.Market) error {
	now := time.Now()

	step, err := w.marketService.CurrentStep(ctx, now)
	if err != nil {
		return err
	}

	if step <= market.AccrualStep {
		return nil
	}

	if err := w.marketService.AccrueInterest(ctx, market, now); err != nil {
		return err
	}

	return w.db.Tx(func(tx *db.DB) error {
		return w.marketStore.Update(ctx, tx, market)
	})
}
