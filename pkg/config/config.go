// Package config loads environment-driven settings into tagged structs.
//
// Structs use caarlos0/env tags:
//
//	type Config struct {
//		Port int `env:"STITCHD_PORT" envDefault:"8080"`
//	}
//
// A .env file in the working directory is loaded once, before the first
// parse, and never overrides variables that are already set.
package config

import (
	"errors"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNilPointer    = errors.New("config: nil pointer")
	ErrParsingConfig = errors.New("config: failed to parse")
)

var dotenvOnce sync.Once

// Load populates v from the environment.
func Load[T any](v *T) error {
	return LoadWithOptions(v, env.Options{})
}

// LoadWithOptions is Load with explicit parser options, mainly so tests can
// feed a fixed environment instead of the process one.
func LoadWithOptions[T any](v *T, opts env.Options) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// A missing .env file is fine.
		_ = godotenv.Load()
	})

	if err := env.ParseWithOptions(v, opts); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad is Load for values the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(err)
	}
}
