package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// GetLogger returns the process wide zap.Logger, built once on first use.
// LOG_FORMAT=json selects the production encoder, anything else the development one.
// LOG_LEVEL overrides the level of either config. Both may come from a .env file.
func GetLogger() *zap.Logger {
	once.Do(func() {
		var err error
		logger, err = fromEnv()
		if err != nil {
			panic("failed logger setup : " + err.Error())
		}
	})
	return logger
}

// fromEnv reads .env itself: package level loggers are built before config.Load runs.
func fromEnv() (*zap.Logger, error) {
	_ = godotenv.Load()
	return build(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))
}

func build(format, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if strings.EqualFold(format, "json") {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}
