package memory

import (
	"context"
	"sync"

	"github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/google/uuid"
)

// Directory is an in-memory domain.UserRepository.
type Directory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

func NewDirectory(users ...domain.User) *Directory {
	d := &Directory{users: make(map[uuid.UUID]domain.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *Directory) Create(_ context.Context, u *domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[u.ID]; !ok {
		d.users[u.ID] = *u
	}
	return nil
}

func (d *Directory) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}
