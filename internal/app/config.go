package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	BcryptCost   int    `default:"10" usage:"bcrypt cost for password hashes" flag:"bcrypt-cost"`
	MaxBodyBytes int64  `default:"1048576" usage:"Maximum request body size" flag:"max-body-bytes"`

	// SecureCookies marks the refresh token cookie Secure; enable behind TLS.
	SecureCookies bool `default:"false" usage:"Send cookies only over HTTPS" flag:"secure-cookies"`

	JWT       JWTConfig
	Checkout  CheckoutConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// JWTConfig configures access and refresh tokens.
type JWTConfig struct {
	AccessSecret  string        `usage:"HMAC secret for access tokens" flag:"jwt-access-secret"`
	RefreshSecret string        `usage:"HMAC secret for refresh tokens" flag:"jwt-refresh-secret"`
	AccessTTL     time.Duration `default:"1h" usage:"Access token lifetime" flag:"jwt-access-ttl"`
	RefreshTTL    time.Duration `default:"720h" usage:"Refresh token lifetime" flag:"jwt-refresh-ttl"`
}

// CheckoutConfig controls retries of conflicting transactions.
type CheckoutConfig struct {
	MaxRetries int `default:"3" usage:"Retries after a transaction conflict" flag:"checkout-max-retries"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Time to refill the bucket"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	case c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "":
		return errors.New("JWT secrets are required: set STORE_JWT_ACCESS_SECRET and STORE_JWT_REFRESH_SECRET")
	case c.JWT.AccessSecret == c.JWT.RefreshSecret:
		return errors.New("access and refresh secrets must differ")
	case c.Checkout.MaxRetries < 0:
		return errors.Errorf("invalid checkout retries %d", c.Checkout.MaxRetries)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
