package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all runtime settings, loaded from the environment.
type Config struct {
	Environment string
	HTTPAddr    string

	Database Database
	OpenAI   OpenAI
	Sweep    Sweep

	RateLimitPerMinute int
}

// Database selects the backing store. Driver is "postgres" or "sqlite".
type Database struct {
	Driver string
	DSN    string
}

// OpenAI configures the optional summarization integration. An empty APIKey
// disables the feature.
type OpenAI struct {
	APIKey string
	Model  string
}

// Sweep controls the overdue/expired background sweeper.
type Sweep struct {
	Enabled      bool
	PollInterval time.Duration
	BatchSize    int
}

// IsProduction reports whether the app runs with production safety rails.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from the environment. A .env file is honored when
// present so local development matches the deployment contract.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment: getEnv("INVOZO_ENV", "development"),
		HTTPAddr:    getEnv("INVOZO_HTTP_ADDR", ":8080"),
		Database: Database{
			Driver: getEnv("INVOZO_DB_DRIVER", "sqlite"),
			DSN:    getEnv("INVOZO_DB_DSN", "file:invozo.db?_pragma=foreign_keys(1)"),
		},
		OpenAI: OpenAI{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  getEnv("INVOZO_OPENAI_MODEL", "gpt-4o-mini"),
		},
		Sweep: Sweep{
			Enabled:      getEnvBool("INVOZO_SWEEP_ENABLED", true),
			PollInterval: getEnvDuration("INVOZO_SWEEP_INTERVAL", time.Minute),
			BatchSize:    getEnvInt("INVOZO_SWEEP_BATCH_SIZE", 100),
		},
		RateLimitPerMinute: getEnvInt("INVOZO_RATE_LIMIT_PER_MINUTE", 240),
	}

	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return Config{}, ErrUnsupportedDriver
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
