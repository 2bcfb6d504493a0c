package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("REFRESH_TOKEN_TTL", "")
	t.Setenv("REFRESH_TOKEN_BYTES", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("NOTIFY_DRIVER", "")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 32, cfg.RefreshBytes)
	assert.Equal(t, 24*time.Hour, cfg.ResetTTL)
	assert.False(t, cfg.RevokeOnReset)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "log", cfg.NotifyDriver)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("REFRESH_TOKEN_RETENTION", "168h")
	t.Setenv("REVOKE_SESSIONS_ON_RESET", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SERVER_PORT", "9090")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshRetain)
	assert.True(t, cfg.RevokeOnReset)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, ":9090", cfg.Addr())
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "soon")
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("REVOKE_SESSIONS_ON_RESET", "maybe")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.False(t, cfg.RevokeOnReset)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := Config{
		AccessTTL:      time.Minute,
		RefreshTTL:     time.Hour,
		ResetTTL:       time.Hour,
		RefreshBytes:   32,
		BcryptCost:     10,
		DatabaseDriver: "sqlite",
		NotifyDriver:   "log",
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "short refresh token", mutate: func(c *Config) { c.RefreshBytes = 16 }},
		{name: "zero access ttl", mutate: func(c *Config) { c.AccessTTL = 0 }},
		{name: "negative retention", mutate: func(c *Config) { c.RefreshRetain = -time.Hour }},
		{name: "bcrypt cost too low", mutate: func(c *Config) { c.BcryptCost = 2 }},
		{name: "unknown driver", mutate: func(c *Config) { c.DatabaseDriver = "mysql" }},
		{name: "unknown notifier", mutate: func(c *Config) { c.NotifyDriver = "pigeon" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
		})
	}
}

func TestCSV_Empty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, CSV(""))
}
