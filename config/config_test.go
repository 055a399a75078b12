package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "DB_NAME", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "polling", cfg.Database.DBName)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", DBName: "polling", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@db:5432/polling?sslmode=disable", c.DSN())

	c.URL = "postgres://explicit/url"
	assert.Equal(t, "postgres://explicit/url", c.DSN())
}
