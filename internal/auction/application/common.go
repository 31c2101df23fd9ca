package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	userdomain "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Clock supplies the current time to the use cases.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// storageErr wraps a repository failure. Domain errors keep their kind; anything else is Internal.
func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrInternal) || domain.KindOf(err) != domain.KindInternal {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrInternal, err)
}

// authorize checks the principal's role and that the account still exists.
func authorize(ctx context.Context, users userdomain.UserRepository, p userdomain.Principal, role userdomain.Role) (*userdomain.User, error) {
	if p.Role != role {
		return nil, fmt.Errorf("%w: %s role required", domain.ErrUnauthorized, role)
	}
	u, err := users.GetByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, p.ID)
		}
		return nil, storageErr("get user", err)
	}
	if u.Role != role {
		return nil, fmt.Errorf("%w: %s role required", domain.ErrUnauthorized, role)
	}
	return u, nil
}

// publish sends events after commit. Failures are logged only.
func publish(ctx context.Context, pub domain.EventPublisher, events ...domain.Event) {
	if pub == nil {
		return
	}
	for _, ev := range events {
		if err := pub.Publish(ctx, ev); err != nil {
			log.Error("failed to publish event",
				zap.String("type", ev.Type()),
				zap.String("productID", ev.AggregateID().String()),
				zap.Error(err),
			)
		}
	}
}

// ownerNames resolves owner display names, remembering each id for the duration of one query.
type ownerNames struct {
	users userdomain.UserRepository
	names map[string]string
}

func newOwnerNames(users userdomain.UserRepository) *ownerNames {
	return &ownerNames{users: users, names: make(map[string]string)}
}

func (o *ownerNames) lookup(ctx context.Context, p *domain.Product) (string, error) {
	key := p.OwnerID.String()
	if name, ok := o.names[key]; ok {
		return name, nil
	}
	u, err := o.users.GetByID(ctx, p.OwnerID)
	switch {
	case errors.Is(err, userdomain.ErrUserNotFound):
		o.names[key] = ""
		return "", nil
	case err != nil:
		return "", storageErr("get owner", err)
	}
	o.names[key] = u.FullName()
	return o.names[key], nil
}
