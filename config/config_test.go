package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24, cfg.JWT.ExpireHours)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 15, cfg.AWS.PresignExpireMinutes)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_EXPIRE_HOURS", "48")
	t.Setenv("RECORDING_SPOOL_DIR", "/var/spool/calls")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 48, cfg.JWT.ExpireHours)
	assert.Equal(t, "/var/spool/calls", cfg.Recording.SpoolDir)
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("JWT_EXPIRE_HOURS", "not-a-number")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.JWT.ExpireHours)
}

func TestDatabaseDSNFromParts(t *testing.T) {
	db := DatabaseConfig{
		Host: "db", Port: "5432", User: "app", Password: "secret",
		DBName: "consultations", SSLMode: "disable",
	}
	assert.Equal(t,
		"postgres://app:secret@db:5432/consultations?sslmode=disable",
		db.DSN(),
	)
}

func TestDatabaseDSNPrefersURL(t *testing.T) {
	db := DatabaseConfig{URL: "postgres://u:p@h:5432/x", Host: "ignored"}
	assert.Equal(t, "postgres://u:p@h:5432/x", db.DSN())
}
