package application

import (
	"context"
	"errors"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	userdomain "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlaceBidDTO is the input of PlaceBidUseCase. Price is nil when the caller sent none.
type PlaceBidDTO struct {
	ProductID uuid.UUID
	Bidder    userdomain.Principal
	Price     *decimal.Decimal
}

// PlaceBidUseCase admits a bid on a product. Reading the floor, validating and inserting run
// in one transaction holding the product lock, so concurrent bids on a product are serialized.
type PlaceBidUseCase struct {
	tx        domain.Transactor
	users     userdomain.UserRepository
	validator domain.BidValidator
	lifecycle domain.Lifecycle
	clock     Clock
	publisher domain.EventPublisher
}

func NewPlaceBidUseCase(tx domain.Transactor, users userdomain.UserRepository, policy domain.BidPolicy, clock Clock, publisher domain.EventPublisher) *PlaceBidUseCase {
	return &PlaceBidUseCase{
		tx:        tx,
		users:     users,
		validator: domain.NewBidValidator(policy),
		lifecycle: domain.NewLifecycle(policy),
		clock:     clock,
		publisher: publisher,
	}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	fields := []zap.Field{
		zap.String("productID", cmd.ProductID.String()),
		zap.String("userID", cmd.Bidder.ID.String()),
	}
	log.Info("Executing PlaceBidUseCase", fields...)

	// 1. only existing users may bid
	if _, err := authorize(ctx, uc.users, cmd.Bidder, userdomain.RoleUser); err != nil {
		log.Warn("PlaceBidUseCase: bidder rejected", append(fields, zap.Error(err))...)
		return nil, err
	}

	var (
		bid       *domain.Bid
		rejection error
		closed    *domain.AuctionClosed
	)
	// 2. lock the product, validate against the floor seen under that lock and insert
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		product, err := repos.Products.GetForUpdate(ctx, cmd.ProductID)
		if err != nil && !errors.Is(err, domain.ErrProductNotFound) {
			return storageErr("place bid: load product", err)
		}
		// read after the lock is held so the transaction order decides against closures
		now := uc.clock.Now()

		var floor domain.Floor
		if product != nil {
			floor, err = domain.NewPriceResolver(repos.Bids).Resolve(ctx, product)
			if err != nil {
				return storageErr("place bid", err)
			}
		}

		if verr := uc.validator.Validate(product, cmd.Price, floor, now); verr != nil {
			rejection = verr
			// an expired deadline observed here gets recorded before the rejection
			if product != nil && uc.lifecycle.Settle(product, now) {
				if err := repos.Products.Save(ctx, product); err != nil {
					return storageErr("place bid: settle product", err)
				}
				ev := domain.NewAuctionClosed(product, floor.HighestBid)
				closed = &ev
			}
			return nil
		}

		bid = domain.NewBid(uuid.New(), product.ID, cmd.Bidder.ID, *cmd.Price, now)
		if err := repos.Bids.Save(ctx, bid); err != nil {
			return storageErr("place bid: save bid", err)
		}
		return nil
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindConflict {
			log.Warn("PlaceBidUseCase: concurrent bid won the race", append(fields, zap.Error(err))...)
		} else {
			log.Error("PlaceBidUseCase: transaction failed", append(fields, zap.Error(err))...)
		}
		return nil, err
	}

	if closed != nil {
		log.Info("PlaceBidUseCase: settled expired auction", append(fields, zap.String("reason", string(closed.Reason)))...)
		publish(ctx, uc.publisher, *closed)
	}
	if rejection != nil {
		log.Warn("PlaceBidUseCase: bid rejected", append(fields, zap.String("reason", string(domain.KindOf(rejection))))...)
		return nil, rejection
	}

	// the price is only formatted once validated, String expands the exponent
	log.Info("PlaceBidUseCase: bid accepted",
		append(fields, zap.String("bidID", bid.ID.String()), zap.String("price", bid.Price.String()))...)
	publish(ctx, uc.publisher, domain.BidPlaced{
		ProductID: bid.ProductID,
		BidID:     bid.ID,
		BidderID:  bid.BidderID,
		Price:     bid.Price,
		PlacedAt:  bid.CreatedAt,
	})
	return bid, nil
}
