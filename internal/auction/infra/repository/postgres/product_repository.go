package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProductRepository implements domain.ProductRepository interface
type ProductRepository struct {
	db DBTX
}

func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, description, starting_price::text, bidding_end_time, owner_id, status, closure_reason, closed_at, created_at, updated_at`

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
        INSERT INTO products (id, name, description, starting_price, bidding_end_time, owner_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.StartingPrice,
		p.BiddingEndTime,
		p.OwnerID,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product %s: %w", p.ID, err)
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetForUpdate takes a row lock held until the surrounding transaction ends.
func (r *ProductRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProductRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// Save writes the mutable columns. A closure already stored is never overwritten.
func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	var (
		reason   *string
		closedAt *time.Time
	)
	if p.Closure != nil {
		rs := string(p.Closure.Reason)
		reason, closedAt = &rs, &p.Closure.At
	}
	query := `
        UPDATE products
        SET status = $2,
            closure_reason = COALESCE(closure_reason, $3),
            closed_at = COALESCE(closed_at, $4),
            updated_at = $5
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, p.ID, p.Status, reason, closedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, p.ID)
	}
	return nil
}

func (r *ProductRepository) ListOpen(ctx context.Context, asOf time.Time) ([]*domain.Product, error) {
	return r.list(ctx, `closed_at IS NULL AND bidding_end_time >= $1`, asOf)
}

func (r *ProductRepository) ListClosed(ctx context.Context, asOf time.Time) ([]*domain.Product, error) {
	return r.list(ctx, `closed_at IS NOT NULL OR bidding_end_time <= $1`, asOf)
}

func (r *ProductRepository) ListExpiredUnsettled(ctx context.Context, asOf time.Time) ([]*domain.Product, error) {
	return r.list(ctx, `closed_at IS NULL AND bidding_end_time <= $1`, asOf)
}

func (r *ProductRepository) list(ctx context.Context, where string, asOf time.Time) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE ` + where + ` ORDER BY created_at ASC, id ASC`
	// timestamptz keeps microseconds
	rows, err := r.db.Query(ctx, query, asOf.Truncate(time.Microsecond))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p        domain.Product
		price    string
		reason   *string
		closedAt *time.Time
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&price,
		&p.BiddingEndTime,
		&p.OwnerID,
		&p.Status,
		&reason,
		&closedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.StartingPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse starting price %q: %w", price, err)
	}
	p.BiddingEndTime = p.BiddingEndTime.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if reason != nil && closedAt != nil {
		p.Closure = &domain.Closure{Reason: domain.ClosureReason(*reason), At: closedAt.UTC()}
	}
	return &p, nil
}
