package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (skipped when path is
// empty), merges it on top of the built-in defaults, applies HOUSESIM_*
// environment variable overrides, and returns the final Config. The caller
// must invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known HOUSESIM_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators vary a run without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setInt64(&cfg.Simulation.Seed, "HOUSESIM_SEED")
	setInt(&cfg.Simulation.Months, "HOUSESIM_MONTHS")
	setInt(&cfg.Simulation.Regions, "HOUSESIM_REGIONS")
	setInt(&cfg.Simulation.TargetPopulation, "HOUSESIM_TARGET_POPULATION")

	setFloat64(&cfg.Bank.InterestRate, "HOUSESIM_BANK_INTEREST_RATE")
	setFloat64(&cfg.Bank.MaxLTI, "HOUSESIM_BANK_MAX_LTI")

	setBool(&cfg.Recording.Enabled, "HOUSESIM_RECORDING_ENABLED")
	setStr(&cfg.Recording.DBPath, "HOUSESIM_RECORDING_DB_PATH")

	setBool(&cfg.Server.Enabled, "HOUSESIM_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "HOUSESIM_SERVER_PORT")
	setStr(&cfg.Server.AdminKey, "HOUSESIM_SERVER_ADMIN_KEY")

	setStr(&cfg.LogLevel, "HOUSESIM_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
