package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads from the environment (or a .env file).
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	StoreDriver   string `mapstructure:"STORE_DRIVER"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	DBMaxConns int32  `mapstructure:"DB_MAX_CONNS"`

	MigrationURL string `mapstructure:"MIGRATION_URL"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	RabbitMQURL   string `mapstructure:"RABBITMQ_URL"`
	RabbitMQQueue string `mapstructure:"RABBITMQ_QUEUE"`

	SettleInterval time.Duration `mapstructure:"SETTLE_INTERVAL"`

	AllowBidAtStartingPrice bool `mapstructure:"AUCTION_ALLOW_BID_AT_STARTING_PRICE"`
	DeadlineInclusive       bool `mapstructure:"AUCTION_DEADLINE_INCLUSIVE"`
}

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var keys = map[string]any{
	"SERVER_ADDRESS":                      ":9000",
	"STORE_DRIVER":                        StorePostgres,
	"DB_HOST":                             "localhost",
	"DB_PORT":                             "5432",
	"DB_USER":                             "postgres",
	"DB_PASSWORD":                         "",
	"DB_NAME":                             "auctionhouse",
	"DB_SSLMODE":                          "disable",
	"DB_MAX_CONNS":                        10,
	"MIGRATION_URL":                       "file://internal/shared/db/migrations/sql",
	"JWT_SECRET":                          "",
	"RABBITMQ_URL":                        "",
	"RABBITMQ_QUEUE":                      "auction_events",
	"SETTLE_INTERVAL":                     "0s",
	"AUCTION_ALLOW_BID_AT_STARTING_PRICE": false,
	"AUCTION_DEADLINE_INCLUSIVE":          true,
}

// Load reads an optional .env file, then environment variables over the defaults above.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, def := range keys {
		v.SetDefault(key, def)
		// AutomaticEnv alone does not make Unmarshal see env-only keys.
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.SettleInterval < 0 {
		return fmt.Errorf("config: SETTLE_INTERVAL must not be negative")
	}
	return nil
}

// PostgresDSN builds the connection URL used by both pgxpool and golang-migrate.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}
