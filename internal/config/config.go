// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// minProductionSecretLen is the shortest token secret accepted in production.
const minProductionSecretLen = 32

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Session tokens
	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET,required,unset"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET,required,unset"`
	RegisterTokenTTL   time.Duration `env:"REGISTER_TOKEN_TTL" envDefault:"2h"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`

	// Background image fetcher. Disabled when the access key is empty.
	UnsplashAccessKey  string        `env:"UNSPLASH_ACCESS_KEY,unset"`
	UnsplashBaseURL    string        `env:"UNSPLASH_BASE_URL" envDefault:"https://api.unsplash.com"`
	UnsplashHourlyCap  int           `env:"UNSPLASH_HOURLY_LIMIT" envDefault:"50"`
	ImageFetchInterval time.Duration `env:"IMAGE_FETCH_INTERVAL" envDefault:"12h"`
	ImageQuery         string        `env:"IMAGE_QUERY" envDefault:"nature landscape"`
	ImageOrientation   string        `env:"IMAGE_ORIENTATION" envDefault:"landscape"`
	LatestImageTTL     time.Duration `env:"LATEST_IMAGE_CACHE_TTL" envDefault:"10m"`

	// Rate limiting for /auth endpoints
	AuthRateLimitEnabled bool `env:"AUTH_RATE_LIMIT_ENABLED" envDefault:"true"`
	AuthRateLimitRPS     int  `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst   int  `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// FetcherEnabled reports whether the background image fetcher should run.
func (c *Config) FetcherEnabled() bool {
	return c.UnsplashAccessKey != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.IsProduction() {
		if len(c.AccessTokenSecret) < minProductionSecretLen {
			return fmt.Errorf("ACCESS_TOKEN_SECRET must be at least %d bytes in production", minProductionSecretLen)
		}
		if len(c.RefreshTokenSecret) < minProductionSecretLen {
			return fmt.Errorf("REFRESH_TOKEN_SECRET must be at least %d bytes in production", minProductionSecretLen)
		}
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.RegisterTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.ImageFetchInterval <= 0 {
		return errors.New("IMAGE_FETCH_INTERVAL must be positive")
	}
	return nil
}

// Load reads an optional .env file, parses environment variables and
// returns a validated Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv paths. Missing files are skipped;
// variables already present in the environment are never overridden.
func LoadFiles(paths ...string) (*Config, error) {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Platform-assigned PORT wins only when APP_PORT is not set explicitly.
	if _, ok := os.LookupEnv("APP_PORT"); !ok {
		if port, ok := os.LookupEnv("PORT"); ok {
			p, err := strconv.Atoi(port)
			if err != nil {
				return nil, fmt.Errorf("failed to parse config: invalid PORT %q", port)
			}
			cfg.AppPort = p
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
