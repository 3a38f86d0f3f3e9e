package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	// Counterpart notification endpoint; deliveries are fire-and-forget
	// through the outbox dispatcher.
	NotifyURL         string `env:"NOTIFY_URL" envDefault:"http://notify-sink:8081"`
	OutboxIntervalS   int    `env:"OUTBOX_INTERVAL_S" envDefault:"5"`
	OutboxBatchSize   int    `env:"OUTBOX_BATCH_SIZE" envDefault:"10"`
	OutboxMaxAttempts int    `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"5"`
	NotifyTimeoutS    int    `env:"NOTIFY_TIMEOUT_S" envDefault:"5"`

	// Advisory mid-market rates for the currency-mismatch warning, as
	// "FROM_TO=rate" pairs. Balance arithmetic never reads these.
	AdvisoryRates string `env:"ADVISORY_RATES" envDefault:"USD_CNY=7.2,EUR_USD=1.087,GBP_USD=1.266"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
