package main

import (
	"time"

	auctionmemory "github.com/cristianortiz/auctionhouse/internal/auction/infra/repository/memory"
	auctionpg "github.com/cristianortiz/auctionhouse/internal/auction/infra/repository/postgres"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	userdomain "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/cristianortiz/auctionhouse/internal/user/infra/auth"
	usermemory "github.com/cristianortiz/auctionhouse/internal/user/infra/repository/memory"
	userpg "github.com/cristianortiz/auctionhouse/internal/user/infra/repository/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const demoTokenTTL = 24 * time.Hour

func postgresStores(pool *pgxpool.Pool) stores {
	return stores{
		repos: auctionpg.NewRepositories(pool),
		tx:    auctionpg.NewTransactor(pool),
		users: userpg.NewUserRepository(pool),
	}
}

// memoryStores seeds one admin and two bidders and logs a token for each of them.
func memoryStores(verifier *auth.Verifier) (stores, error) {
	log := logger.GetLogger()
	accounts := []userdomain.User{
		{ID: uuid.New(), Role: userdomain.RoleAdmin, FirstName: "Ada", LastName: "Admin"},
		{ID: uuid.New(), Role: userdomain.RoleUser, FirstName: "Bob", LastName: "Bidder"},
		{ID: uuid.New(), Role: userdomain.RoleUser, FirstName: "Carol", LastName: "Bidder"},
	}

	now := time.Now().UTC()
	for _, u := range accounts {
		token, err := verifier.Issue(userdomain.Principal{ID: u.ID, Role: u.Role}, demoTokenTTL, now)
		if err != nil {
			return stores{}, err
		}
		log.Info("Demo account",
			zap.String("userID", u.ID.String()),
			zap.String("role", string(u.Role)),
			zap.String("name", u.FullName()),
			zap.String("token", token),
		)
	}

	store := auctionmemory.NewStore()
	return stores{
		repos: store.Repositories(),
		tx:    store,
		users: usermemory.NewDirectory(accounts...),
	}, nil
}
