package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository implements domain.UserRepository for PostgreSQL.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, role, first_name, last_name FROM users WHERE id = $1`

	u := &domain.User{}
	err := r.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Role, &u.FirstName, &u.LastName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// Create inserts u, used to seed accounts.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
        INSERT INTO users (id, role, first_name, last_name)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO NOTHING
    `
	if _, err := r.db.Exec(ctx, query, u.ID, u.Role, u.FirstName, u.LastName); err != nil {
		return fmt.Errorf("create user %s: %w", u.ID, err)
	}
	return nil
}
