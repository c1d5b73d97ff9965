// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	AdminKeySalt string
	CORSOrigins  []string
	Governance   GovernanceConfig
}

// GovernanceConfig holds the timing and policy knobs of the governance engine.
type GovernanceConfig struct {
	MonitorInterval        time.Duration `env:"MONITOR_INTERVAL" envDefault:"60s"`
	AbsenceThreshold       time.Duration `env:"ABSENCE_THRESHOLD" envDefault:"5m"`
	DeletionDelay          time.Duration `env:"DELETION_DELAY" envDefault:"12h"`
	DeletionExtension      time.Duration `env:"DELETION_EXTENSION" envDefault:"1h"`
	DeletionGrace          time.Duration `env:"DELETION_GRACE" envDefault:"2s"`
	RecoveryPasswordLength int           `env:"RECOVERY_PASSWORD_LENGTH" envDefault:"12"`
	ScrutatorAutoApprove   bool          `env:"SCRUTATOR_AUTO_APPROVE" envDefault:"false"`
	DBConnectTimeout       time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"30s"`
}

// DefaultGovernanceConfig returns the production defaults
func DefaultGovernanceConfig() GovernanceConfig {
	return GovernanceConfig{
		MonitorInterval:        60 * time.Second,
		AbsenceThreshold:       5 * time.Minute,
		DeletionDelay:          12 * time.Hour,
		DeletionExtension:      time.Hour,
		DeletionGrace:          2 * time.Second,
		RecoveryPasswordLength: 12,
		DBConnectTimeout:       30 * time.Second,
	}
}

// ParseGovernance reads governance settings from the environment
func ParseGovernance() (GovernanceConfig, error) {
	var gc GovernanceConfig
	if err := env.Parse(&gc); err != nil {
		return GovernanceConfig{}, fmt.Errorf("parse governance env: %w", err)
	}
	if gc.MonitorInterval <= 0 {
		return GovernanceConfig{}, errors.New("MONITOR_INTERVAL must be positive")
	}
	if gc.DeletionGrace < 0 {
		return GovernanceConfig{}, errors.New("DELETION_GRACE must not be negative")
	}
	if gc.RecoveryPasswordLength < 12 {
		return GovernanceConfig{}, errors.New("RECOVERY_PASSWORD_LENGTH must be at least 12")
	}
	return gc, nil
}

// ParseFlags validates flags and sets port number
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	// A missing .env file is fine; real env vars always win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	fs := flag.NewFlagSet("assembly-vote", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	cfg.CORSOrigins = parseOrigins(os.Getenv("CORS_ORIGINS"))

	gc, err := ParseGovernance()
	if err != nil {
		return Config{}, err
	}
	cfg.Governance = gc

	return cfg, nil
}

func parseOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
