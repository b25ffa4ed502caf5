package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoaderConfig() aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "STORE",
		SkipFlags: true,
		SkipFiles: true,
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("STORE_DATABASE_URL", "postgres://localhost/store")
	t.Setenv("STORE_JWT_ACCESS_SECRET", "access")
	t.Setenv("STORE_JWT_REFRESH_SECRET", "refresh")
	t.Setenv("STORE_CHECKOUT_MAX_RETRIES", "5")
	t.Setenv("PORT", "")

	cfg, err := loadConfig(testLoaderConfig())
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, "postgres://localhost/store", cfg.DatabaseURL)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 5, cfg.Checkout.MaxRetries)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("STORE_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "postgres://platform/store")
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_JWT_ACCESS_SECRET", "access")
	t.Setenv("STORE_JWT_REFRESH_SECRET", "refresh")

	cfg, err := loadConfig(testLoaderConfig())
	require.NoError(t, err)
	assert.Equal(t, "postgres://platform/store", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	for _, tt := range []struct {
		name string
		env  map[string]string
	}{
		{name: "NoDatabase", env: map[string]string{
			"STORE_JWT_ACCESS_SECRET":  "a",
			"STORE_JWT_REFRESH_SECRET": "b",
		}},
		{name: "NoSecrets", env: map[string]string{
			"STORE_DATABASE_URL": "postgres://localhost/store",
		}},
		{name: "SameSecrets", env: map[string]string{
			"STORE_DATABASE_URL":       "postgres://localhost/store",
			"STORE_JWT_ACCESS_SECRET":  "same",
			"STORE_JWT_REFRESH_SECRET": "same",
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{
				"DATABASE_URL",
				"STORE_DATABASE_URL",
				"STORE_JWT_ACCESS_SECRET",
				"STORE_JWT_REFRESH_SECRET",
			} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(testLoaderConfig())
			require.Error(t, err)
		})
	}
}
