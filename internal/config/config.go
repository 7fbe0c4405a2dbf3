// Package config assembles the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/database"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Config is read once at startup.
type Config struct {
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8431"`
	BcryptCost    int    `env:"BCRYPT_COST" envDefault:"12"`
	SnowflakeNode int64  `env:"SNOWFLAKE_NODE" envDefault:"1"`

	Database database.Config
	Log      utilities.Config
	Token    auth.TokenConfig
}

// Load reads files (default .env) into the environment when they exist and
// then parses the environment. Variables already set win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
