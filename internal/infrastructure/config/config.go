package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Backend drivers.
const (
	DriverSupabase = "supabase"
	DriverMongo    = "mongo"
)

type Config struct {
	Port             string        `env:"PORT,               default=8080"`
	Env              string        `env:"ENV,                default=development"`
	LogLevel         string        `env:"LOG_LEVEL,          default=info"`
	PublicURL        string        `env:"PUBLIC_URL,         default=http://localhost:8080"`
	SessionTTL       time.Duration `env:"SESSION_TTL,        default=168h"`
	CookieSecure     bool          `env:"COOKIE_SECURE,      default=false"`
	LoginEmailDomain string        `env:"LOGIN_EMAIL_DOMAIN, default=electrix.com"`
	CleanupWorkers   int           `env:"CLEANUP_WORKERS,    default=4"`
	UploadMaxBytes   int64         `env:"UPLOAD_MAX_BYTES,   default=10485760"`

	Backend  BackendConfig
	Supabase SupabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type BackendConfig struct {
	Driver  string        `env:"BACKEND_DRIVER,  default=supabase"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT, default=15s"`
}

type SupabaseConfig struct {
	URL     string `env:"SUPABASE_URL"`
	AnonKey string `env:"SUPABASE_ANON_KEY"`
}

// MongoConfig configures the self-hosted backend.
type MongoConfig struct {
	URI       string        `env:"MONGO_URI,          default=mongodb://localhost:27017"`
	Database  string        `env:"MONGO_DB,           default=electrix"`
	JWTSecret string        `env:"BACKEND_JWT_SECRET"`
	TokenTTL  time.Duration `env:"BACKEND_TOKEN_TTL,  default=1h"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,        default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=0"`
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend.Driver {
	case DriverSupabase:
		if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required for the %s driver", DriverSupabase)
		}
	case DriverMongo:
		if c.Mongo.JWTSecret == "" {
			return fmt.Errorf("BACKEND_JWT_SECRET is required for the %s driver", DriverMongo)
		}
	default:
		return fmt.Errorf("unknown BACKEND_DRIVER %q", c.Backend.Driver)
	}
	return nil
}
