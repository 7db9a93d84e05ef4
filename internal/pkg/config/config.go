package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port        string   `env:"PORT,          default=3000"`
	Env         string   `env:"ENV,           default=development"`
	LogLevel    string   `env:"LOG_LEVEL,     default=info"`
	BasePath    string   `env:"API_BASE_PATH, default=/api"`
	CORSOrigins []string `env:"CORS_ORIGINS,  default=*"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
	Audit AuditConfig
}

type AuthConfig struct {
	JWTSecret          string        `env:"JWT_SECRET, required"`
	CustomerTokenTTL   time.Duration `env:"CUSTOMER_TOKEN_TTL,   default=168h"`
	AdminTokenTTL      time.Duration `env:"ADMIN_TOKEN_TTL,      default=24h"`
	MaxSessionAge      time.Duration `env:"MAX_SESSION_AGE,      default=720h"`
	BcryptCost         int           `env:"BCRYPT_COST,          default=10"`
	LoginMaxFailures   int           `env:"LOGIN_MAX_FAILURES,   default=10"`
	LoginFailureWindow time.Duration `env:"LOGIN_FAILURE_WINDOW, default=15m"`
	// RateLimit is the per-IP request rate (req/s) allowed on /auth routes.
	RateLimit float64 `env:"AUTH_RATE_LIMIT, default=20"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=silianos_voyage"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// IsDevelopment reports whether internal error details may be shown to clients.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through the given lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Auth.CustomerTokenTTL <= 0 || cfg.Auth.AdminTokenTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}
	cfg.BasePath = "/" + strings.Trim(cfg.BasePath, "/")
	if cfg.BasePath == "/" {
		cfg.BasePath = ""
	}
	return &cfg, nil
}
