package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cristianortiz/auctionhouse/internal/auction/application"
	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	auctionhttp "github.com/cristianortiz/auctionhouse/internal/auction/infra/http"
	"github.com/cristianortiz/auctionhouse/internal/auction/infra/messaging"
	auctionws "github.com/cristianortiz/auctionhouse/internal/auction/infra/websocket"
	"github.com/cristianortiz/auctionhouse/internal/shared/config"
	"github.com/cristianortiz/auctionhouse/internal/shared/db"
	"github.com/cristianortiz/auctionhouse/internal/shared/db/migrations"
	"github.com/cristianortiz/auctionhouse/internal/shared/httpserver"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/cristianortiz/auctionhouse/internal/shared/websocket"
	userdomain "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/cristianortiz/auctionhouse/internal/user/infra/auth"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const devJWTSecret = "auctionhouse-dev-secret"

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP and websocket server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "apply pending migrations before serving (postgres store only)",
				Value: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, c.Bool("migrate"))
		},
	}
}

type stores struct {
	repos domain.Repositories
	tx    domain.Transactor
	users userdomain.UserRepository
}

func serve(ctx context.Context, cfg config.Config, migrate bool) error {
	log := logger.GetLogger()
	log.Info("Starting auctionhouse server...", zap.String("store", cfg.StoreDriver))

	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.StoreDriver != config.StoreMemory {
			return errors.New("JWT_SECRET is required")
		}
		log.Warn("JWT_SECRET not set, using the development secret")
		secret = devJWTSecret
	}
	verifier := auth.NewVerifier(secret)

	var st stores
	switch cfg.StoreDriver {
	case config.StorePostgres:
		if migrate {
			log.Info("Running database migrations...")
			if err := migrations.RunMigrations(cfg.MigrationURL, cfg.PostgresDSN(), migrations.Up); err != nil {
				return fmt.Errorf("database migration failed: %w", err)
			}
		}
		pool, err := db.GetPostgresDBPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		st = postgresStores(pool)
	case config.StoreMemory:
		var err error
		if st, err = memoryStores(verifier); err != nil {
			return err
		}
	}
	return run(ctx, cfg, verifier, st)
}

func run(ctx context.Context, cfg config.Config, verifier *auth.Verifier, st stores) error {
	log := logger.GetLogger()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	publishers := domain.Publishers{auctionws.NewPublisher(hub)}
	if cfg.RabbitMQURL != "" {
		mq, err := messaging.Dial(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			return err
		}
		defer mq.Close()
		publishers = append(publishers, mq)
	}

	policy := domain.BidPolicy{
		AllowBidAtStartingPrice: cfg.AllowBidAtStartingPrice,
		DeadlineInclusive:       cfg.DeadlineInclusive,
	}
	deps := application.Deps{
		Repos:      st.repos,
		Transactor: st.tx,
		Users:      st.users,
		Policy:     policy,
		Clock:      application.SystemClock{},
		Publisher:  publishers,
	}
	service := application.NewAuctionService(deps)

	if cfg.SettleInterval > 0 {
		settler := application.NewSettleExpiredUseCase(deps.Repos, deps.Transactor, deps.Policy, deps.Clock, deps.Publisher)
		go settler.Run(ctx, cfg.SettleInterval)
	}

	server := httpserver.NewServer()
	auctionhttp.NewAuctionHandler(service, verifier).RegisterRoutes(server.App().Group("/api/v1"))

	wsHandler := auctionws.NewAuctionWSHandler(service, hub, verifier)
	wsHandler.RegisterRoutes(ctx, server.App())
	go wsHandler.ListenForMessages(ctx)

	if err := server.Start(ctx, cfg.ServerAddress); err != nil {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	log.Info("auctionhouse stopped")
	return nil
}
