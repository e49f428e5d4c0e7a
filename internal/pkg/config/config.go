package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/insureportal/portal-api/internal/core/domain"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	Cookie    CookieConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Activity  ActivityConfig
	Numbering NumberingConfig
}

type CookieConfig struct {
	Name   string `env:"AUTH_COOKIE_NAME,   default=token"`
	Secure bool   `env:"AUTH_COOKIE_SECURE, default=false"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=portal"`
}

// RedisConfig is optional: an empty Addr runs the service without Redis.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

type RateLimitConfig struct {
	Backend  string        `env:"RATE_LIMIT_BACKEND,  default=memory"`
	Requests int           `env:"RATE_LIMIT_REQUESTS, default=100"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW,   default=1m"`
	MaxKeys  int           `env:"RATE_LIMIT_MAX_KEYS, default=10000"`
}

type ActivityConfig struct {
	Workers int `env:"ACTIVITY_WORKERS, default=4"`
}

type NumberFormatConfig struct {
	Prefix   string `env:"PREFIX"`
	WithYear bool   `env:"WITH_YEAR"`
	Width    int    `env:"WIDTH"`
}

type NumberingConfig struct {
	Policy    NumberFormatConfig `env:", prefix=POLICY_NUMBER_"`
	Claim     NumberFormatConfig `env:", prefix=CLAIM_NUMBER_"`
	Complaint NumberFormatConfig `env:", prefix=COMPLAINT_NUMBER_"`
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// NumberFormats merges the configured formats over the defaults. A format is
// taken from the environment only when its prefix is set.
func (c *Config) NumberFormats() map[domain.RecordType]domain.NumberFormat {
	formats := domain.DefaultNumberFormats()
	for t, nc := range map[domain.RecordType]NumberFormatConfig{
		domain.RecordPolicy:    c.Numbering.Policy,
		domain.RecordClaim:     c.Numbering.Claim,
		domain.RecordComplaint: c.Numbering.Complaint,
	} {
		if nc.Prefix == "" {
			continue
		}
		f := domain.NumberFormat{Prefix: nc.Prefix, WithYear: nc.WithYear, Width: nc.Width}
		if f.Width <= 0 {
			f.Width = formats[t].Width
		}
		formats[t] = f
	}
	return formats
}

func (c *Config) validate() error {
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: RATE_LIMIT_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("config: rate limit requests and window must be positive")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be positive")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := load(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
