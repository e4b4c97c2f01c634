// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	DBURL            string        `mapstructure:"DB_URL"`
	GithubToken      string        `mapstructure:"GITHUB_TOKEN"`
	RepoOwner        string        `mapstructure:"REPO_OWNER"`
	TargetMonth      string        `mapstructure:"TARGET_MONTH"`
	CrawlInterval    time.Duration `mapstructure:"CRAWL_INTERVAL"`
	CacheTTL         time.Duration `mapstructure:"CACHE_TTL"`
	CrawlConcurrency int           `mapstructure:"CRAWL_CONCURRENCY"`
	CrawlMaxAttempts int           `mapstructure:"CRAWL_MAX_ATTEMPTS"`
	HTTPAddr         string        `mapstructure:"HTTP_ADDR"`

	// TargetMonthTime is the parsed TARGET_MONTH; zero when unset, in which
	// case each crawl targets the current calendar month.
	TargetMonthTime time.Time `mapstructure:"-"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CRAWL_INTERVAL", "24h")
	viper.SetDefault("CACHE_TTL", "24h")
	viper.SetDefault("CRAWL_CONCURRENCY", 5)
	viper.SetDefault("CRAWL_MAX_ATTEMPTS", 5)
	viper.SetDefault("HTTP_ADDR", ":8080")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.TargetMonth != "" {
		parsed, err := time.Parse("2006-01", cfg.TargetMonth)
		if err != nil {
			return nil, fmt.Errorf("TARGET_MONTH must be in YYYY-MM format: %w", err)
		}
		cfg.TargetMonthTime = parsed.UTC()
	}

	// Validate required fields. GITHUB_TOKEN stays optional: unauthenticated
	// crawls work against public accounts, just with a smaller rate budget.
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.RepoOwner == "" {
		return nil, errors.New("REPO_OWNER is a required configuration field")
	}
	if cfg.CrawlConcurrency < 1 {
		return nil, errors.New("CRAWL_CONCURRENCY must be at least 1")
	}
	if cfg.CrawlMaxAttempts < 1 {
		return nil, errors.New("CRAWL_MAX_ATTEMPTS must be at least 1")
	}

	return &cfg, nil
}
