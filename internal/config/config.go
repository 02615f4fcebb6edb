// Package config loads application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Registry backends understood by the server.
const (
	RegistryMemory = "memory"
	RegistryRedis  = "redis"
	RegistryMySQL  = "mysql"
)

// Password schemes understood by the server.
const (
	PasswordBcrypt = "bcrypt"
	PasswordSHA256 = "sha256"
)

// ErrInvalidConfig is wrapped by every validation failure returned from Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all runtime configuration values.
type Config struct {
	App       App
	DB        DB
	JWT       JWT
	Registry  Registry
	Password  Password
	Queue     Queue
	Redis     RedisConfig
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Cache     CacheConfig     `envPrefix:"CACHE_"`
}

// App contains HTTP process parameters.
type App struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"APP_PORT" envDefault:"8080"`
}

// DB contains MySQL connection parameters.
type DB struct {
	User        string `env:"DB_USER" envDefault:"root"`
	Pass        string `env:"DB_PASS"`
	Host        string `env:"DB_HOST" envDefault:"localhost"`
	Port        string `env:"DB_PORT" envDefault:"3306"`
	Name        string `env:"DB_NAME" envDefault:"travel_planner"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

// JWT contains access token parameters. The signing secret has no default.
type JWT struct {
	Secret    string        `env:"JWT_SECRET,required,notEmpty"`
	Issuer    string        `env:"JWT_ISSUER" envDefault:"AITravelPlanner"`
	Audience  string        `env:"JWT_AUDIENCE" envDefault:"AITravelPlannerUsers"`
	AccessTTL time.Duration `env:"JWT_ACCESS_TTL" envDefault:"24h"`
}

// Registry selects where refresh tokens live.
type Registry struct {
	Backend                string        `env:"REGISTRY_BACKEND" envDefault:"memory"`
	Prefix                 string        `env:"REGISTRY_PREFIX" envDefault:"rt"`
	TokenTTL               time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"0s"` // 0 keeps tokens until used or revoked
	RevokeOnPasswordChange bool          `env:"REVOKE_ON_PASSWORD_CHANGE" envDefault:"false"`
}

// Password selects the stored hash format.
type Password struct {
	Scheme     string `env:"PASSWORD_SCHEME" envDefault:"bcrypt"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`
}

// Queue contains RabbitMQ parameters. An empty URL disables publishing.
type Queue struct {
	URL             string `env:"RABBITMQ_URL"`
	Name            string `env:"RABBITMQ_QUEUE" envDefault:"travel_planner_events"`
	ActivityLogFile string `env:"ACTIVITY_LOG_FILE" envDefault:"logs/activity.log"`
}

// Load reads an optional .env file and then the process environment.
// A missing JWT_SECRET is reported as an error so the caller can refuse to start.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.RateLimit.normalize()
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Registry.Backend {
	case RegistryMemory, RegistryRedis, RegistryMySQL:
	default:
		return fmt.Errorf("%w: unknown REGISTRY_BACKEND %q", ErrInvalidConfig, c.Registry.Backend)
	}
	switch c.Password.Scheme {
	case PasswordBcrypt, PasswordSHA256:
	default:
		return fmt.Errorf("%w: unknown PASSWORD_SCHEME %q", ErrInvalidConfig, c.Password.Scheme)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("%w: JWT_ACCESS_TTL must be positive", ErrInvalidConfig)
	}
	if c.Registry.TokenTTL < 0 {
		return fmt.Errorf("%w: REFRESH_TOKEN_TTL must not be negative", ErrInvalidConfig)
	}
	return nil
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production" || c.App.Env == "prod"
}
