package postgres

import (
	"context"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewRepositories binds both repositories to db.
func NewRepositories(db DBTX) domain.Repositories {
	return domain.Repositories{
		Products: NewProductRepository(db),
		Bids:     NewBidRepository(db),
	}
}

const pgUniqueViolation = "23505"
