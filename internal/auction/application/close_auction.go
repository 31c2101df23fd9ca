package application

import (
	"context"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	userdomain "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CloseAuctionDTO struct {
	ProductID uuid.UUID
	Actor     userdomain.Principal
}

// CloseAuctionUseCase ends bidding early on behalf of the owning administrator.
type CloseAuctionUseCase struct {
	tx        domain.Transactor
	users     userdomain.UserRepository
	lifecycle domain.Lifecycle
	clock     Clock
	publisher domain.EventPublisher
}

func NewCloseAuctionUseCase(tx domain.Transactor, users userdomain.UserRepository, policy domain.BidPolicy, clock Clock, publisher domain.EventPublisher) *CloseAuctionUseCase {
	return &CloseAuctionUseCase{
		tx:        tx,
		users:     users,
		lifecycle: domain.NewLifecycle(policy),
		clock:     clock,
		publisher: publisher,
	}
}

func (uc *CloseAuctionUseCase) Execute(ctx context.Context, cmd CloseAuctionDTO) (*ProductStateDTO, error) {
	fields := []zap.Field{
		zap.String("productID", cmd.ProductID.String()),
		zap.String("userID", cmd.Actor.ID.String()),
	}
	log.Info("Executing CloseAuctionUseCase", fields...)

	owner, err := authorize(ctx, uc.users, cmd.Actor, userdomain.RoleAdmin)
	if err != nil {
		log.Warn("CloseAuctionUseCase: actor rejected", append(fields, zap.Error(err))...)
		return nil, err
	}

	var (
		state  *ProductStateDTO
		closed *domain.AuctionClosed
	)
	err = uc.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		product, err := repos.Products.GetForUpdate(ctx, cmd.ProductID)
		if err != nil {
			return storageErr("close auction: load product", err)
		}
		now := uc.clock.Now()

		changed, err := uc.lifecycle.CloseManually(product, cmd.Actor.ID, now)
		if err != nil {
			return err
		}
		if changed {
			if err := repos.Products.Save(ctx, product); err != nil {
				return storageErr("close auction: save product", err)
			}
		}

		highest, err := repos.Bids.GetHighestBid(ctx, product.ID)
		if err != nil {
			return storageErr("close auction: highest bid", err)
		}
		state = newProductState(uc.lifecycle, product, highest, now)
		state.OwnerName = owner.FullName()
		if changed {
			ev := domain.NewAuctionClosed(product, highest)
			closed = &ev
		}
		return nil
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			log.Error("CloseAuctionUseCase: transaction failed", append(fields, zap.Error(err))...)
		} else {
			log.Warn("CloseAuctionUseCase: closure rejected", append(fields, zap.Error(err))...)
		}
		return nil, err
	}

	if closed == nil {
		log.Info("CloseAuctionUseCase: auction was already closed", fields...)
		return state, nil
	}
	log.Info("CloseAuctionUseCase: auction closed",
		append(fields, zap.String("reason", string(closed.Reason)), zap.String("price", closed.FinalPrice.String()))...)
	publish(ctx, uc.publisher, *closed)
	return state, nil
}
