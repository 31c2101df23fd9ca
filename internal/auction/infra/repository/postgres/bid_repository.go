package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// BidRepository implements domain.BidRepository interface
type BidRepository struct {
	db DBTX
}

func NewBidRepository(db DBTX) *BidRepository {
	return &BidRepository{db: db}
}

const bidColumns = `id, product_id, bidder_id, bid_price::text, created_at`

// Save only inserts; the product lock is taken by the caller's transaction.
func (r *BidRepository) Save(ctx context.Context, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, product_id, bidder_id, bid_price, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := r.db.Exec(ctx, query,
		bid.ID,
		bid.ProductID,
		bid.BidderID,
		bid.Price,
		bid.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: bid of %s on product %s already exists", domain.ErrConflict, bid.Price, bid.ProductID)
		}
		return fmt.Errorf("insert bid %s: %w", bid.ID, err)
	}
	return nil
}

func (r *BidRepository) GetBidsByProductID(ctx context.Context, productID uuid.UUID) ([]*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE product_id = $1
        ORDER BY created_at ASC, bid_price ASC
    `
	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list bids of product %s: %w", productID, err)
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bids of product %s: %w", productID, err)
	}
	return bids, nil
}

// GetHighestBid returns nil, nil when the product has no bids.
func (r *BidRepository) GetHighestBid(ctx context.Context, productID uuid.UUID) (*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE product_id = $1
        ORDER BY bid_price DESC, created_at ASC, id ASC
        LIMIT 1
    `
	bid, err := scanBid(r.db.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("highest bid of product %s: %w", productID, err)
	}
	return bid, nil
}

func scanBid(row pgx.Row) (*domain.Bid, error) {
	var (
		b     domain.Bid
		price string
	)
	if err := row.Scan(&b.ID, &b.ProductID, &b.BidderID, &price, &b.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if b.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse bid price %q: %w", price, err)
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}
