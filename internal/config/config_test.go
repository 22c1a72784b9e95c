package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, int32(20), cfg.Postgres.MaxConns)
	assert.Equal(t, "campus_events", cfg.Mongo.Database)
	assert.Equal(t, 10*time.Minute, cfg.Redis.UserTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", " SQLite ")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("SQLITE_PATH", "/tmp/events.db")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("TOKEN_TTL", "2h")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "/tmp/events.db", cfg.SQLite.Path)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}

func TestParseError(t *testing.T) {
	t.Setenv("REDIS_DB", "not-an-int")

	_, err := Parse()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"))
}

func TestPostgresDSN(t *testing.T) {
	c := Postgres{Host: "h", Port: "1", User: "u", Password: "p", Name: "n", SSLMode: "require"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=require", c.DSN())
}

func TestValidateServe(t *testing.T) {
	cfg := Config{Auth: Auth{JWTSecret: "short", TokenTTL: time.Hour}}
	assert.Error(t, cfg.ValidateServe())

	cfg.Auth.JWTSecret = strings.Repeat("s", 32)
	assert.NoError(t, cfg.ValidateServe())

	cfg.Auth.TokenTTL = 0
	assert.Error(t, cfg.ValidateServe())
}
