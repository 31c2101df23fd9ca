package postgres

import (
	"context"
	"fmt"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Transactor runs work in a pgx transaction with repositories bound to it.
type Transactor struct {
	pool *pgxpool.Pool
}

func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) (err error) {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// commit or roll back depending on how fn ended
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic during transaction", zap.Any("panic", r))
			_ = tx.Rollback(ctx)
			panic(r)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Warn("Failed to roll back transaction", zap.Error(rbErr))
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error("Failed to commit transaction", zap.Error(commitErr))
			err = fmt.Errorf("%w: commit transaction: %w", domain.ErrInternal, commitErr)
		}
	}()

	return fn(ctx, NewRepositories(tx))
}
