package application

import (
	"context"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	userdomain "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateProductDTO struct {
	Owner          userdomain.Principal
	Name           string
	Description    string
	StartingPrice  *decimal.Decimal
	BiddingEndTime *time.Time
}

// CreateProductUseCase lists a new product for auction.
type CreateProductUseCase struct {
	products  domain.ProductRepository
	users     userdomain.UserRepository
	lifecycle domain.Lifecycle
	clock     Clock
}

func NewCreateProductUseCase(products domain.ProductRepository, users userdomain.UserRepository, policy domain.BidPolicy, clock Clock) *CreateProductUseCase {
	return &CreateProductUseCase{
		products:  products,
		users:     users,
		lifecycle: domain.NewLifecycle(policy),
		clock:     clock,
	}
}

func (uc *CreateProductUseCase) Execute(ctx context.Context, cmd CreateProductDTO) (*ProductStateDTO, error) {
	log.Info("Executing CreateProductUseCase",
		zap.String("userID", cmd.Owner.ID.String()),
		zap.String("name", cmd.Name),
	)

	owner, err := authorize(ctx, uc.users, cmd.Owner, userdomain.RoleAdmin)
	if err != nil {
		log.Warn("CreateProductUseCase: owner rejected", zap.String("userID", cmd.Owner.ID.String()), zap.Error(err))
		return nil, err
	}

	now := uc.clock.Now()
	product, err := domain.NewProduct(uuid.New(), owner.ID, cmd.Name, cmd.Description, cmd.StartingPrice, cmd.BiddingEndTime, now)
	if err != nil {
		log.Warn("CreateProductUseCase: invalid product", zap.String("userID", owner.ID.String()), zap.Error(err))
		return nil, err
	}
	if err := uc.products.Create(ctx, product); err != nil {
		log.Error("CreateProductUseCase: failed to create product", zap.String("productID", product.ID.String()), zap.Error(err))
		return nil, storageErr("create product", err)
	}

	log.Info("CreateProductUseCase: product created",
		zap.String("productID", product.ID.String()),
		zap.String("price", product.StartingPrice.String()),
		zap.Time("biddingEndTime", product.BiddingEndTime),
	)
	state := newProductState(uc.lifecycle, product, nil, now)
	state.OwnerName = owner.FullName()
	return state, nil
}
