// Package config loads server settings from flags, an optional .env file and
// the environment. Environment values win over flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/warp/canteen-ledger/ledger"
)

type Config struct {
	RunAddress        string        `env:"RUN_ADDRESS"`
	DatabasePath      string        `env:"DATABASE_PATH"`
	LogLevel          string        `env:"LOG_LEVEL"`
	AdjustmentMode    string        `env:"ADJUSTMENT_MODE"`
	DedupeImportBatch bool          `env:"DEDUPE_IMPORT_BATCH"`
	IntegrityInterval time.Duration `env:"INTEGRITY_INTERVAL"`
	AllowedOrigins    []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	SeedAdminPassword string        `env:"SEED_ADMIN_PASSWORD"`
	SeedTechPassword  string        `env:"SEED_TECH_PASSWORD"`
}

// Load reads .env (if present), the command line and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return parse(flag.CommandLine, nil, env.Options{})
}

// MustLoad is Load for main packages.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadFrom parses args and an explicit environment instead of the process
// ones. Used by tests.
func LoadFrom(args []string, environ map[string]string) (*Config, error) {
	fs := flag.NewFlagSet("canteen", flag.ContinueOnError)
	return parse(fs, args, env.Options{Environment: environ})
}

func parse(fs *flag.FlagSet, args []string, opts env.Options) (*Config, error) {
	var cfg Config
	origins := loadFlags(fs, &cfg)

	if fs == flag.CommandLine {
		if !fs.Parsed() {
			flag.Parse()
		}
	} else if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	cfg.AllowedOrigins = splitList(*origins)

	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFlags(fs *flag.FlagSet, cfg *Config) *string {
	fs.StringVar(&cfg.RunAddress, "a", ":8080", "Run address in format host:port")
	fs.StringVar(&cfg.DatabasePath, "db", "canteen.db", "SQLite database path")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.AdjustmentMode, "adjustment-mode", string(ledger.AdjustmentReject), "ADJUSTMENT handling: reject or record")
	fs.BoolVar(&cfg.DedupeImportBatch, "dedupe-import", false, "Skip repeated external IDs within one import")
	fs.DurationVar(&cfg.IntegrityInterval, "integrity-interval", time.Hour, "Balance integrity check interval (0 disables)")
	fs.StringVar(&cfg.SeedAdminPassword, "seed-admin-password", "password", "Password for the seeded admin account")
	fs.StringVar(&cfg.SeedTechPassword, "seed-tech-password", "password", "Password for the seeded tech account")
	return fs.String("origins", "http://localhost:3000,http://localhost:5173", "Comma separated CORS origins")
}

// Validate checks values that flags and env tags cannot.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("database path is not set")
	}
	switch ledger.AdjustmentMode(c.AdjustmentMode) {
	case ledger.AdjustmentReject, ledger.AdjustmentRecord:
	default:
		return fmt.Errorf("unknown adjustment mode %q", c.AdjustmentMode)
	}
	if c.IntegrityInterval < 0 {
		return fmt.Errorf("integrity interval must not be negative: %s", c.IntegrityInterval)
	}
	if c.SeedAdminPassword == "" || c.SeedTechPassword == "" {
		return errors.New("seed passwords must not be empty")
	}
	return nil
}

// EngineOptions maps the ledger settings onto engine options.
func (c *Config) EngineOptions() ledger.Options {
	return ledger.Options{
		AdjustmentMode:    ledger.AdjustmentMode(c.AdjustmentMode),
		DedupeWithinBatch: c.DedupeImportBatch,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
