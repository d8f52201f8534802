/*
Package config loads runtime settings from a .env file and the environment.

PRECEDENCE (highest first):
  1. CLI flags (applied by cmd/roster)
  2. Process environment
  3. .env file
  4. Defaults

VARIABLES:
  ROSTER_ADDR            HTTP listen address          (:8080)
  ROSTER_DB              SQLite path, or :memory:     (roster.db)
  APP_PASSWORD           Shared API password          (empty = gate off)
  ROSTER_TIMEZONE        Zone of upload timestamps    (America/New_York)
  ROSTER_INBOX           Drop folder to scan          (empty = off)
  ROSTER_INBOX_INTERVAL  Drop folder scan interval    (1m)
  ROSTER_MAX_UPLOAD_MB   Upload body limit            (32)
  LOG_LEVEL              debug, info, warn, error     (info)
  LOG_JSON               JSON log output              (false)
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings.
type Config struct {
	Addr          string
	DBPath        string
	Password      string
	Timezone      string
	InboxDir      string
	InboxInterval time.Duration
	MaxUploadMB   int
	LogLevel      string
	LogJSON       bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:          ":8080",
		DBPath:        "roster.db",
		Timezone:      "America/New_York",
		InboxInterval: time.Minute,
		MaxUploadMB:   32,
		LogLevel:      "info",
	}
}

// Load reads envFile (if it exists) into the environment without
// overriding variables already set, then builds a Config from it.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a variable lookup, starting from Default.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	str := func(key string, dest *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dest = v
		}
	}
	str("ROSTER_ADDR", &cfg.Addr)
	str("ROSTER_DB", &cfg.DBPath)
	str("APP_PASSWORD", &cfg.Password)
	str("ROSTER_TIMEZONE", &cfg.Timezone)
	str("ROSTER_INBOX", &cfg.InboxDir)
	str("LOG_LEVEL", &cfg.LogLevel)

	if v, ok := lookup("ROSTER_INBOX_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("ROSTER_INBOX_INTERVAL: %w", err)
		}
		cfg.InboxInterval = d
	}
	if v, ok := lookup("ROSTER_MAX_UPLOAD_MB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("ROSTER_MAX_UPLOAD_MB: %w", err)
		}
		cfg.MaxUploadMB = n
	}
	if v, ok := lookup("LOG_JSON"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("LOG_JSON: %w", err)
		}
		cfg.LogJSON = b
	}

	return cfg, nil
}

// Validate checks settings that would otherwise fail at first use.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address is required")
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.InboxInterval <= 0 {
		return fmt.Errorf("inbox interval must be positive, got %s", c.InboxInterval)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload must be positive, got %d MB", c.MaxUploadMB)
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
