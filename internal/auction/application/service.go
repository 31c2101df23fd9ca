package application

import (
	"context"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	userdomain "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/google/uuid"
)

// AuctionService exposes the auction use cases to the infra layer (HTTP, websocket).
type AuctionService interface {
	CreateProduct(ctx context.Context, cmd CreateProductDTO) (*ProductStateDTO, error)
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error)
	CloseAuction(ctx context.Context, cmd CloseAuctionDTO) (*ProductStateDTO, error)
	GetProductState(ctx context.Context, productID uuid.UUID) (*ProductStateDTO, error)
	ListBids(ctx context.Context, productID uuid.UUID) ([]*BidDTO, error)
	ListOpen(ctx context.Context) ([]*ProductStateDTO, error)
	ListSold(ctx context.Context) ([]*SoldProductDTO, error)
	SettleExpired(ctx context.Context) (int, error)
}

// Deps are the collaborators every use case is built from.
type Deps struct {
	Repos      domain.Repositories
	Transactor domain.Transactor
	Users      userdomain.UserRepository
	Policy     domain.BidPolicy
	Clock      Clock
	Publisher  domain.EventPublisher
}

type auctionService struct {
	createProductUC   *CreateProductUseCase
	placeBidUC        *PlaceBidUseCase
	closeAuctionUC    *CloseAuctionUseCase
	getProductStateUC *GetProductStateUseCase
	listBidsUC        *ListBidsUseCase
	listOpenUC        *ListOpenUseCase
	listSoldUC        *ListSoldUseCase
	settleExpiredUC   *SettleExpiredUseCase
}

func NewAuctionService(d Deps) AuctionService {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	return &auctionService{
		createProductUC:   NewCreateProductUseCase(d.Repos.Products, d.Users, d.Policy, d.Clock),
		placeBidUC:        NewPlaceBidUseCase(d.Transactor, d.Users, d.Policy, d.Clock, d.Publisher),
		closeAuctionUC:    NewCloseAuctionUseCase(d.Transactor, d.Users, d.Policy, d.Clock, d.Publisher),
		getProductStateUC: NewGetProductStateUseCase(d.Repos, d.Users, d.Policy, d.Clock),
		listBidsUC:        NewListBidsUseCase(d.Repos),
		listOpenUC:        NewListOpenUseCase(d.Repos, d.Users, d.Policy, d.Clock),
		listSoldUC:        NewListSoldUseCase(d.Repos, d.Users, d.Policy, d.Clock),
		settleExpiredUC:   NewSettleExpiredUseCase(d.Repos, d.Transactor, d.Policy, d.Clock, d.Publisher),
	}
}

func (as *auctionService) CreateProduct(ctx context.Context, cmd CreateProductDTO) (*ProductStateDTO, error) {
	return as.createProductUC.Execute(ctx, cmd)
}

func (as *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	return as.placeBidUC.Execute(ctx, cmd)
}

func (as *auctionService) CloseAuction(ctx context.Context, cmd CloseAuctionDTO) (*ProductStateDTO, error) {
	return as.closeAuctionUC.Execute(ctx, cmd)
}

func (as *auctionService) GetProductState(ctx context.Context, productID uuid.UUID) (*ProductStateDTO, error) {
	return as.getProductStateUC.Execute(ctx, productID)
}

func (as *auctionService) ListBids(ctx context.Context, productID uuid.UUID) ([]*BidDTO, error) {
	return as.listBidsUC.Execute(ctx, productID)
}

func (as *auctionService) ListOpen(ctx context.Context) ([]*ProductStateDTO, error) {
	return as.listOpenUC.Execute(ctx)
}

func (as *auctionService) ListSold(ctx context.Context) ([]*SoldProductDTO, error) {
	return as.listSoldUC.Execute(ctx)
}

func (as *auctionService) SettleExpired(ctx context.Context) (int, error) {
	return as.settleExpiredUC.Execute(ctx)
}
