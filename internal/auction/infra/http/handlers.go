package http

import (
	"errors"

	"github.com/cristianortiz/auctionhouse/internal/auction/application"
	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/cristianortiz/auctionhouse/internal/user/infra/auth"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionHandler exposes the auction service over HTTP.
type AuctionHandler struct {
	service  application.AuctionService
	verifier *auth.Verifier
	validate *validator.Validate
}

func NewAuctionHandler(service application.AuctionService, verifier *auth.Verifier) *AuctionHandler {
	return &AuctionHandler{
		service:  service,
		verifier: verifier,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the handlers under api (usually /api/v1).
func (h *AuctionHandler) RegisterRoutes(api fiber.Router) {
	products := api.Group("/products")
	products.Get("/", h.ListOpen)
	products.Get("/sold", h.verifier.Required(), h.ListSold)
	products.Get("/:id", h.GetProduct)
	products.Get("/:id/bids", h.ListBids)
	products.Post("/:id/bids", h.verifier.Required(), h.PlaceBid)

	admin := api.Group("/admin", h.verifier.Required())
	admin.Post("/products", h.CreateProduct)
	admin.Put("/products/:id/end", h.CloseAuction)
}

// ListOpen handles GET /products
func (h *AuctionHandler) ListOpen(c *fiber.Ctx) error {
	products, err := h.service.ListOpen(c.UserContext())
	if err != nil {
		return h.fail(c, "ListOpen", err)
	}
	return JSONResponse(c, fiber.StatusOK, products, "open products")
}

// ListSold handles GET /products/sold
func (h *AuctionHandler) ListSold(c *fiber.Ctx) error {
	products, err := h.service.ListSold(c.UserContext())
	if err != nil {
		return h.fail(c, "ListSold", err)
	}
	return JSONResponse(c, fiber.StatusOK, products, "sold products")
}

// GetProduct handles GET /products/:id
func (h *AuctionHandler) GetProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return h.fail(c, "GetProduct", err)
	}
	state, err := h.service.GetProductState(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "GetProduct", err)
	}
	return JSONResponse(c, fiber.StatusOK, state, "product state")
}

// ListBids handles GET /products/:id/bids
func (h *AuctionHandler) ListBids(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return h.fail(c, "ListBids", err)
	}
	bids, err := h.service.ListBids(c.UserContext(), id)
	if err != nil {
		return h.fail(c, "ListBids", err)
	}
	return JSONResponse(c, fiber.StatusOK, bids, "bids")
}

// PlaceBid handles POST /products/:id/bids
func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFrom(c)
	id, err := productID(c)
	if err != nil {
		return h.fail(c, "PlaceBid", err)
	}
	var req PlaceBidRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, "PlaceBid", errors.Join(domain.ErrInvalidInput, err))
	}

	bid, err := h.service.PlaceBid(c.UserContext(), application.PlaceBidDTO{
		ProductID: id,
		Bidder:    principal,
		Price:     req.Price,
	})
	if err != nil {
		return h.fail(c, "PlaceBid", err)
	}
	return JSONResponse(c, fiber.StatusCreated, application.BidDTO{
		ID:        bid.ID,
		ProductID: bid.ProductID,
		BidderID:  bid.BidderID,
		Price:     bid.Price,
		CreatedAt: bid.CreatedAt,
	}, "bid placed")
}

// CreateProduct handles POST /admin/products
func (h *AuctionHandler) CreateProduct(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFrom(c)
	var req CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, "CreateProduct", errors.Join(domain.ErrInvalidInput, err))
	}
	if err := h.validate.Struct(req); err != nil {
		return h.fail(c, "CreateProduct", validationError(err))
	}

	state, err := h.service.CreateProduct(c.UserContext(), application.CreateProductDTO{
		Owner:          principal,
		Name:           req.Name,
		Description:    req.Description,
		StartingPrice:  req.StartingPrice,
		BiddingEndTime: req.BiddingEndTime,
	})
	if err != nil {
		return h.fail(c, "CreateProduct", err)
	}
	return JSONResponse(c, fiber.StatusCreated, state, "product created")
}

// CloseAuction handles PUT /admin/products/:id/end
func (h *AuctionHandler) CloseAuction(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFrom(c)
	id, err := productID(c)
	if err != nil {
		return h.fail(c, "CloseAuction", err)
	}
	state, err := h.service.CloseAuction(c.UserContext(), application.CloseAuctionDTO{
		ProductID: id,
		Actor:     principal,
	})
	if err != nil {
		return h.fail(c, "CloseAuction", err)
	}
	return JSONResponse(c, fiber.StatusOK, state, "bidding ended")
}

func (h *AuctionHandler) fail(c *fiber.Ctx, handler string, err error) error {
	status, message := MapErrorToHTTP(err)
	fields := []zap.Field{
		zap.String("handler", handler),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= fiber.StatusInternalServerError {
		log.Error(handler+": request failed", fields...)
	} else {
		log.Warn(handler+": request rejected", fields...)
	}
	return JSONError(c, status, err, message)
}

// productID parses :id. A malformed id cannot name a product, so it is NotFound.
func productID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, errors.Join(domain.ErrProductNotFound, err)
	}
	return id, nil
}
