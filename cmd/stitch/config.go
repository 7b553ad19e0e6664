package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/stitch/pkg/config"
)

// Profile is the CLI configuration. The YAML file is read first and STITCH_*
// variables override individual fields.
type Profile struct {
	AppID    string `yaml:"app_id" env:"STITCH_APP_ID"`
	BaseURL  string `yaml:"base_url" env:"STITCH_BASE_URL"`
	LogLevel string `yaml:"log_level" env:"STITCH_LOG_LEVEL"`

	Storage StorageConfig `yaml:"storage" envPrefix:"STITCH_STORAGE_"`
}

// StorageConfig selects where the user cache lives between invocations.
type StorageConfig struct {
	// Driver is one of memory, fs, sqlite, redis, postgres or mongo.
	Driver string `yaml:"driver" env:"DRIVER"`

	// Path is the fs state file or the sqlite database.
	Path string `yaml:"path" env:"PATH"`

	// URL is the redis, postgres or mongo connection string.
	URL        string `yaml:"url" env:"URL"`
	Database   string `yaml:"database" env:"DATABASE"`
	Table      string `yaml:"table" env:"TABLE"`
	Collection string `yaml:"collection" env:"COLLECTION"`
}

func defaultConfigPath() string {
	if p := os.Getenv("STITCH_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "stitch.yaml"
	}
	return filepath.Join(dir, "stitch", "config.yaml")
}

// loadProfile reads path, which may be missing when every required field comes
// from the environment. environ replaces the process environment when non nil.
func loadProfile(path string, environ map[string]string) (Profile, error) {
	var p Profile

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Profile{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return Profile{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := config.LoadWithOptions(&p, env.Options{Environment: environ}); err != nil {
		return Profile{}, err
	}

	if p.LogLevel == "" {
		p.LogLevel = "warn"
	}
	if p.Storage.Driver == "" {
		p.Storage.Driver = "fs"
	}
	if p.Storage.Path == "" {
		switch p.Storage.Driver {
		case "fs":
			p.Storage.Path = filepath.Join(filepath.Dir(path), "state.json")
		case "sqlite":
			p.Storage.Path = filepath.Join(filepath.Dir(path), "state.db")
		}
	}

	return p, p.Validate()
}

func (p Profile) Validate() error {
	var errs []error
	if p.AppID == "" {
		errs = append(errs, errors.New("app_id is required"))
	}
	if p.BaseURL == "" {
		errs = append(errs, errors.New("base_url is required"))
	}
	switch p.Storage.Driver {
	case "memory", "fs", "sqlite":
	case "redis", "postgres", "mongo":
		if p.Storage.URL == "" {
			errs = append(errs, fmt.Errorf("storage.url is required for the %s driver", p.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", p.Storage.Driver))
	}
	return errors.Join(errs...)
}
