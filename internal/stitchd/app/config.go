package app

import (
	"errors"
	"time"

	"github.com/aussiebroadwan/stitch/pkg/config"
)

// Config is read from the environment, and from a .env file when present.
type Config struct {
	Issuer       string `env:"STITCHD_ISSUER" envDefault:"http://localhost:8080"`
	DatabaseFile string `env:"STITCHD_DATABASE_FILE" envDefault:"stitchd.db"`
	PepperFile   string `env:"STITCHD_PEPPER_FILE" envDefault:"pepper"`

	// SigningKeyFile holds a PKCS8 Ed25519 key. Without it a key is generated
	// per process and every token dies with a restart.
	SigningKeyFile string `env:"STITCHD_SIGNING_KEY_FILE"`

	// CustomTokenSecret enables the custom-token provider.
	CustomTokenSecret string `env:"STITCHD_CUSTOM_TOKEN_SECRET"`

	AccessTokenTTL  time.Duration `env:"STITCHD_ACCESS_TOKEN_TTL" envDefault:"30m"`
	RefreshTokenTTL time.Duration `env:"STITCHD_REFRESH_TOKEN_TTL" envDefault:"720h"`

	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Port                 int           `env:"STITCHD_PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"STITCHD_SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"STITCHD_HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Issuer == "" {
		errs = append(errs, errors.New("STITCHD_ISSUER is required"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("STITCHD_ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		errs = append(errs, errors.New("STITCHD_REFRESH_TOKEN_TTL must not be shorter than the access token TTL"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, errors.New("STITCHD_PORT is out of range"))
	}
	return errors.Join(errs...)
}
