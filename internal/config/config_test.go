package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, "development", cfg.Env)
	require.False(t, cfg.IsProduction())
	require.True(t, cfg.DBEnabled)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "http://localhost:3001", cfg.StoreURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("ENV", "production")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := Load()

	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.True(t, cfg.IsProduction())
	require.False(t, cfg.DBEnabled)
	require.Equal(t, 5433, cfg.Database.Port)
	require.Equal(t, 10, cfg.Database.MaxConns, "unparsable values fall back to the default")
}

func TestGetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "app",
		Password: "secret",
		Database: "storefront",
		SSLMode:  "require",
	}
	require.Equal(t,
		"host=db.internal port=5432 user=app password=secret dbname=storefront sslmode=require",
		cfg.GetDSN())
}
