// Package config loads process-level tunables for the identity-scoped
// state engine from the environment.
//
// Grounded on juliankoehn-goplugins/core/framework/config (envconfig.Process
// into a struct tree, env tag + default tag per field) and on
// navindex-colly/env's godotenv-then-envconfig ordering for development
// convenience.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is every environment-tunable knob loaded at startup. Only
// Storage is read (by cmd/sessnerctl); the Persistence, Scrubber and
// Reattach values are loaded but not passed to those components, which
// use their own constants with the same defaults.
type Config struct {
	Persistence Persistence
	Scrubber    Scrubber
	Reattach    Reattach
	Storage     Storage
}

// Persistence holds tunables for the Persistence Layer's (C10) write
// cadence.
type Persistence struct {
	DebounceInterval   time.Duration `envconfig:"PERSIST_DEBOUNCE_INTERVAL" default:"1s"`
	ImmediateWriteRest time.Duration `envconfig:"PERSIST_IMMEDIATE_WRITE_REST" default:"100ms"`
}

// Scrubber holds tunables for the Native-Store Scrubber's (C12) two tick
// periods.
type Scrubber struct {
	ScrubInterval     time.Duration `envconfig:"SCRUBBER_SCRUB_INTERVAL" default:"2s"`
	SweepInterval     time.Duration `envconfig:"SCRUBBER_SWEEP_INTERVAL" default:"60s"`
	RemovalRetryDelay time.Duration `envconfig:"SCRUBBER_REMOVAL_RETRY_DELAY" default:"100ms"`
}

// Reattach holds tunables for Restart Reattachment's (C11) timing.
type Reattach struct {
	InitialWait    time.Duration `envconfig:"REATTACH_INITIAL_WAIT" default:"2s"`
	RetryWait      time.Duration `envconfig:"REATTACH_RETRY_WAIT" default:"1s"`
	MaxRetries     int           `envconfig:"REATTACH_MAX_RETRIES" default:"3"`
	ValidatorDelay time.Duration `envconfig:"REATTACH_VALIDATOR_DELAY" default:"10s"`
}

// Storage controls where the durable persistence layers keep their
// files, per the DOMAIN STACK's primary/secondary layer assignment.
type Storage struct {
	BadgerPath string `envconfig:"STORAGE_BADGER_PATH" default:"./data/primary.badger"`
	SQLitePath string `envconfig:"STORAGE_SQLITE_PATH" default:"./data/secondary.sqlite3"`
}

// Load reads a ".env" file if present (development convenience, ignored
// silently if absent) and then populates Config from the environment,
// the same ordering navindex-colly/env uses.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
