package main

import (
	"os"

	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	app := &cli.App{
		Name:  "auctionhouse",
		Usage: "online auction bidding service",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal("auctionhouse failed", zap.Error(err))
	}
}
