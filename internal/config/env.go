package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env is the process configuration read from the environment.
type Env struct {
	Dir      string        `env:"TECHDRAW_CONFIG_DIR"  envDefault:"configs"`
	Profile  string        `env:"TECHDRAW_PROFILE"`
	Catalog  string        `env:"TECHDRAW_CATALOG_DIR" envDefault:"data"`
	Addr     string        `env:"TECHDRAW_ADDR"        envDefault:":8090"`
	SaveDir  string        `env:"TECHDRAW_SAVE_DIR"`
	Debounce time.Duration `env:"TECHDRAW_WATCH_DEBOUNCE" envDefault:"750ms"`
	Seed     *uint64       `env:"TECHDRAW_SEED"`
	Debug    bool          `env:"TECHDRAW_DEBUG"`

	// OTelEndpoint enables trace export when set.
	OTelEndpoint string `env:"TECHDRAW_OTEL_ENDPOINT"`
	OTelDisabled bool   `env:"TECHDRAW_OTEL_DISABLED"`
}

// ParseEnv loads Env from environment variables.
func ParseEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Overrides turns the env knobs into resolver overrides.
func (e Env) Overrides() Overrides {
	return Overrides{Seed: e.Seed}
}

// TraceEndpoint is the OTLP endpoint to export to, or "" when tracing is off.
func (e Env) TraceEndpoint() string {
	if e.OTelDisabled {
		return ""
	}
	return e.OTelEndpoint
}
