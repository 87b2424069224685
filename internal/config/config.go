package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type APIConfig struct {
	Addr             string        `envconfig:"BITQUEST_API_ADDR" default:":8080"`
	DatabasePath     string        `envconfig:"BITQUEST_DB_PATH" default:"bitquest.db"`
	MarketStatePath  string        `envconfig:"BITQUEST_MARKET_STATE_PATH" default:"market.json"`
	MarketRefreshMin time.Duration `envconfig:"BITQUEST_MARKET_REFRESH_MIN" default:"2s"`
	WorkerTickEvery  time.Duration `envconfig:"BITQUEST_WORKER_TICK_EVERY" default:"5s"`
}

type CLIConfig struct {
	APIBaseURL string `envconfig:"BQ_API_BASE_URL" default:"http://localhost:8080"`
}

// LoadAPIFromEnv reads the server configuration from the environment,
// loading a .env file first when one exists.
func LoadAPIFromEnv() (APIConfig, error) {
	_ = godotenv.Load()

	var cfg APIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.Addr != "" && !strings.Contains(cfg.Addr, ":") {
		cfg.Addr = ":" + cfg.Addr
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	_ = godotenv.Load()

	var cfg CLIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return CLIConfig{APIBaseURL: "http://localhost:8080"}
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	return cfg
}
