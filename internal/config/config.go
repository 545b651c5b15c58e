package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/streakrpro/backend/internal/game"
	"gopkg.in/yaml.v3"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset. Never use it in production.
const DevJWTSecret = "streakr-dev-signing-key"

type DBConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"streakr"`
	Password string `env:"DB_PASSWORD" envDefault:"streakr"`
	Name     string `env:"DB_NAME" envDefault:"streakr"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN renders the lib/pq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`
	DB   DBConfig

	JWTSecret string `env:"JWT_SECRET" envDefault:"streakr-dev-signing-key"`

	LocalStorePath string `env:"LOCAL_STORE_PATH" envDefault:"streakr-local.db"`
	GameConfigPath string `env:"GAME_CONFIG_PATH"`

	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"250ms"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	StrictTransitions  bool     `env:"GAME_STRICT_TRANSITIONS" envDefault:"false"`
}

// Load reads the process configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionIdleTTL <= 0 {
		return nil, fmt.Errorf("SESSION_IDLE_TTL must be positive, got %s", cfg.SessionIdleTTL)
	}
	if cfg.SessionSweepInterval <= 0 {
		return nil, fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive, got %s", cfg.SessionSweepInterval)
	}
	return &cfg, nil
}

// UsesDevSecret reports whether tokens are signed with the built-in key.
func (c *Config) UsesDevSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

// LoadGameConfig decodes the YAML tuning file at path over the default game
// rules. An empty path yields the defaults. Durations are written as "10s".
func LoadGameConfig(path string) (game.Config, error) {
	cfg := game.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return game.Config{}, fmt.Errorf("read game config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return game.Config{}, fmt.Errorf("decode game config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return game.Config{}, fmt.Errorf("invalid game config: %w", err)
	}
	return cfg, nil
}
