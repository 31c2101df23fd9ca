package application

import (
	"context"
	"fmt"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	userdomain "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetProductStateUseCase reads one product with its current price and highest bid.
type GetProductStateUseCase struct {
	repos     domain.Repositories
	users     userdomain.UserRepository
	lifecycle domain.Lifecycle
	clock     Clock
}

func NewGetProductStateUseCase(repos domain.Repositories, users userdomain.UserRepository, policy domain.BidPolicy, clock Clock) *GetProductStateUseCase {
	return &GetProductStateUseCase{repos: repos, users: users, lifecycle: domain.NewLifecycle(policy), clock: clock}
}

func (uc *GetProductStateUseCase) Execute(ctx context.Context, productID uuid.UUID) (*ProductStateDTO, error) {
	product, err := uc.repos.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, storageErr("get product state", err)
	}
	highest, err := uc.repos.Bids.GetHighestBid(ctx, product.ID)
	if err != nil {
		return nil, storageErr("get product state", err)
	}
	state := newProductState(uc.lifecycle, product, highest, uc.clock.Now())
	if state.OwnerName, err = newOwnerNames(uc.users).lookup(ctx, product); err != nil {
		return nil, err
	}
	return state, nil
}

// ListBidsUseCase returns the bid history of a product in acceptance order.
type ListBidsUseCase struct {
	repos domain.Repositories
}

func NewListBidsUseCase(repos domain.Repositories) *ListBidsUseCase {
	return &ListBidsUseCase{repos: repos}
}

func (uc *ListBidsUseCase) Execute(ctx context.Context, productID uuid.UUID) ([]*BidDTO, error) {
	if _, err := uc.repos.Products.GetByID(ctx, productID); err != nil {
		return nil, storageErr("list bids", err)
	}
	bids, err := uc.repos.Bids.GetBidsByProductID(ctx, productID)
	if err != nil {
		return nil, storageErr("list bids", err)
	}
	out := make([]*BidDTO, 0, len(bids))
	for _, b := range bids {
		out = append(out, newBidDTO(b))
	}
	return out, nil
}

// ListOpenUseCase returns every product still open for bidding, each with its current price.
type ListOpenUseCase struct {
	repos     domain.Repositories
	users     userdomain.UserRepository
	lifecycle domain.Lifecycle
	clock     Clock
}

func NewListOpenUseCase(repos domain.Repositories, users userdomain.UserRepository, policy domain.BidPolicy, clock Clock) *ListOpenUseCase {
	return &ListOpenUseCase{repos: repos, users: users, lifecycle: domain.NewLifecycle(policy), clock: clock}
}

func (uc *ListOpenUseCase) Execute(ctx context.Context) ([]*ProductStateDTO, error) {
	now := uc.clock.Now()
	candidates, err := uc.repos.Products.ListOpen(ctx, now)
	if err != nil {
		return nil, storageErr("list open products", err)
	}

	names := newOwnerNames(uc.users)
	out := make([]*ProductStateDTO, 0, len(candidates))
	for _, p := range candidates {
		// storage status may lag, the lifecycle decides
		if uc.lifecycle.StateAt(p, now) != domain.StateOpen {
			continue
		}
		highest, err := uc.repos.Bids.GetHighestBid(ctx, p.ID)
		if err != nil {
			return nil, storageErr("list open products", err)
		}
		state := newProductState(uc.lifecycle, p, highest, now)
		if state.OwnerName, err = names.lookup(ctx, p); err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	log.Debug("ListOpenUseCase: listed products", zap.Int("count", len(out)))
	return out, nil
}

// ListSoldUseCase returns every closed product with its final price and winner.
type ListSoldUseCase struct {
	repos     domain.Repositories
	users     userdomain.UserRepository
	lifecycle domain.Lifecycle
	clock     Clock
}

func NewListSoldUseCase(repos domain.Repositories, users userdomain.UserRepository, policy domain.BidPolicy, clock Clock) *ListSoldUseCase {
	return &ListSoldUseCase{repos: repos, users: users, lifecycle: domain.NewLifecycle(policy), clock: clock}
}

func (uc *ListSoldUseCase) Execute(ctx context.Context) ([]*SoldProductDTO, error) {
	now := uc.clock.Now()
	candidates, err := uc.repos.Products.ListClosed(ctx, now)
	if err != nil {
		return nil, storageErr("list sold products", err)
	}

	names := newOwnerNames(uc.users)
	out := make([]*SoldProductDTO, 0, len(candidates))
	for _, p := range candidates {
		if uc.lifecycle.StateAt(p, now) != domain.StateClosed {
			continue
		}
		highest, err := uc.repos.Bids.GetHighestBid(ctx, p.ID)
		if err != nil {
			return nil, storageErr(fmt.Sprintf("list sold products: product %s", p.ID), err)
		}
		sold := newSoldProduct(uc.lifecycle, p, highest, now)
		if sold.OwnerName, err = names.lookup(ctx, p); err != nil {
			return nil, err
		}
		out = append(out, sold)
	}
	log.Debug("ListSoldUseCase: listed products", zap.Int("count", len(out)))
	return out, nil
}
