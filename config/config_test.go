package config

import (
	"testing"
	"time"

	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("PROFILE_STORE", "")
	t.Setenv("ZONES_DIRECTORY", "")
	t.Setenv("EXPIRY_CHECK_INTERVAL", "")

	cfg := LoadConfig()

	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "tucheng.json", cfg.ZonesDirectory)
	assert.Equal(t, time.Minute, cfg.ExpiryCheckInterval)
	assert.Equal(t, StoreFile, cfg.ProfileConfig.Store)
	assert.Equal(t, "user_profile", cfg.ProfileConfig.Key)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:9000")
	t.Setenv("PROFILE_STORE", StoreRedis)
	t.Setenv("REDIS_HOST", "cache:6379")
	t.Setenv("EXPIRY_CHECK_INTERVAL", "15s")
	t.Setenv("TRACING", "true")

	cfg := LoadConfig()

	assert.Equal(t, StoreRedis, cfg.ProfileConfig.Store)
	assert.Equal(t, "cache:6379", cfg.RedisConfig.HOST)
	assert.Equal(t, 15*time.Second, cfg.ExpiryCheckInterval)
	assert.True(t, cfg.Tracing)
	require.NoError(t, cfg.Validate())
}

func TestValidate_Failures(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:9000")
	t.Setenv("PROFILE_STORE", "")
	base := LoadConfig

	cases := map[string]func(c *Config){
		"missing base url": func(c *Config) { c.APIBaseURL = "" },
		"unknown store":    func(c *Config) { c.ProfileConfig.Store = "sqlite" },
		"missing path":     func(c *Config) { c.ProfileConfig.Path = "" },
		"redis host": func(c *Config) {
			c.ProfileConfig.Store = StoreRedis
			c.RedisConfig.HOST = ""
		},
		"dynamo table": func(c *Config) {
			c.ProfileConfig.Store = StoreDynamoDB
			c.ProfileConfig.Table = ""
		},
		"interval": func(c *Config) { c.ExpiryCheckInterval = 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrInvalidConfig)
		})
	}
}
