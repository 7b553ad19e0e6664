package config_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/stitch/pkg/config"
	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Port     int           `env:"SAMPLE_PORT" envDefault:"8080"`
	Issuer   string        `env:"SAMPLE_ISSUER,required"`
	TTL      time.Duration `env:"SAMPLE_TTL" envDefault:"30m"`
	LogLevel string        `env:"LOG_LEVEL" envDefault:"info"`
}

func TestLoadWithOptions(t *testing.T) {
	t.Parallel()

	t.Run("defaults and overrides", func(t *testing.T) {
		var cfg sample
		err := config.LoadWithOptions(&cfg, env.Options{Environment: map[string]string{
			"SAMPLE_ISSUER": "stitchd",
			"SAMPLE_TTL":    "5s",
		}})
		require.NoError(t, err)
		require.Equal(t, 8080, cfg.Port)
		require.Equal(t, "stitchd", cfg.Issuer)
		require.Equal(t, 5*time.Second, cfg.TTL)
		require.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("missing required", func(t *testing.T) {
		var cfg sample
		err := config.LoadWithOptions(&cfg, env.Options{Environment: map[string]string{}})
		require.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		require.ErrorIs(t, config.Load[sample](nil), config.ErrNilPointer)
	})
}
