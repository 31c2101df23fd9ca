package main

import (
	"fmt"

	"github.com/cristianortiz/auctionhouse/internal/shared/config"
	"github.com/cristianortiz/auctionhouse/internal/shared/db/migrations"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Usage:     "apply or revert the database schema",
		ArgsUsage: "up|down",
		Action: func(c *cli.Context) error {
			dir := migrations.Direction(c.Args().First())
			if dir == "" {
				dir = migrations.Up
			}
			if dir != migrations.Up && dir != migrations.Down {
				return fmt.Errorf("unknown direction %q, want up or down", dir)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return migrations.RunMigrations(cfg.MigrationURL, cfg.PostgresDSN(), dir)
		},
	}
}
