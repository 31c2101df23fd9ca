package application

import (
	"context"
	"errors"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"go.uber.org/zap"
)

// SettleExpiredUseCase records DeadlineExpired closures for products whose deadline passed
// without any request touching them. Reads never depend on it.
type SettleExpiredUseCase struct {
	repos     domain.Repositories
	tx        domain.Transactor
	lifecycle domain.Lifecycle
	clock     Clock
	publisher domain.EventPublisher
}

func NewSettleExpiredUseCase(repos domain.Repositories, tx domain.Transactor, policy domain.BidPolicy, clock Clock, publisher domain.EventPublisher) *SettleExpiredUseCase {
	return &SettleExpiredUseCase{
		repos:     repos,
		tx:        tx,
		lifecycle: domain.NewLifecycle(policy),
		clock:     clock,
		publisher: publisher,
	}
}

// Execute settles each expired product in its own transaction and returns how many it closed.
func (uc *SettleExpiredUseCase) Execute(ctx context.Context) (int, error) {
	candidates, err := uc.repos.Products.ListExpiredUnsettled(ctx, uc.clock.Now())
	if err != nil {
		return 0, storageErr("settle expired", err)
	}

	var (
		settled int
		errs    []error
	)
	for _, c := range candidates {
		var closed *domain.AuctionClosed
		err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
			product, err := repos.Products.GetForUpdate(ctx, c.ID)
			if err != nil {
				return storageErr("settle expired: load product", err)
			}
			if !uc.lifecycle.Settle(product, uc.clock.Now()) {
				return nil
			}
			if err := repos.Products.Save(ctx, product); err != nil {
				return storageErr("settle expired: save product", err)
			}
			highest, err := repos.Bids.GetHighestBid(ctx, product.ID)
			if err != nil {
				return storageErr("settle expired: highest bid", err)
			}
			ev := domain.NewAuctionClosed(product, highest)
			closed = &ev
			return nil
		})
		if err != nil {
			log.Error("SettleExpiredUseCase: failed to settle product", zap.String("productID", c.ID.String()), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if closed != nil {
			settled++
			publish(ctx, uc.publisher, *closed)
		}
	}
	if settled > 0 {
		log.Info("SettleExpiredUseCase: settled expired auctions", zap.Int("count", settled))
	}
	return settled, errors.Join(errs...)
}

// Run calls Execute every interval until ctx is done.
func (uc *SettleExpiredUseCase) Run(ctx context.Context, interval time.Duration) {
	log.Info("Settlement sweeper started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Settlement sweeper stopped")
			return
		case <-ticker.C:
			if _, err := uc.Execute(ctx); err != nil {
				log.Warn("Settlement sweep finished with errors", zap.Error(err))
			}
		}
	}
}
