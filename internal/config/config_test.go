package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "s3cret")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8431", cfg.HTTPAddr)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "s3cret", cfg.Token.Secret)
	assert.Equal(t, "HS256", cfg.Token.Algorithm)
	assert.Equal(t, 30, cfg.Token.TTLMinutes)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Database.Timeout)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	os.Unsetenv("JWT_SECRET_KEY")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadDotenv(t *testing.T) {
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	// registered so the value written by godotenv is cleared afterwards
	t.Setenv("JWT_SECRET_KEY", "")
	os.Unsetenv("JWT_SECRET_KEY")
	t.Setenv("DATABASE_DRIVER", "")
	os.Unsetenv("DATABASE_DRIVER")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET_KEY=from-file\nJWT_ACCESS_TOKEN_EXPIRE_MINUTES=60\nDATABASE_DRIVER=sqlite\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Token.Secret)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	// the process environment wins over the file
	assert.Equal(t, 5, cfg.Token.TTLMinutes)
}
