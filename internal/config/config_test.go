package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestDerivedParams(t *testing.T) {
	cfg := Defaults()
	cfg.Simulation.TargetPopulation = 10000
	cfg.Bank.MortgageDurationYears = 25
	cfg.Household.HoldPeriodYears = 11
	require.NoError(t, cfg.Validate())

	d := cfg.Derived
	assert.Equal(t, 300, d.NPayments)
	assert.InDelta(t, 1.0/132.0, d.MonthlyPSell, 1e-12)
	assert.InDelta(t, 200.0, d.MarketAvgT, 1e-9)
	assert.InDelta(t, math.Exp(-1.0/200.0), d.MarketAvgDecay, 1e-12)
	assert.InDelta(t, math.Exp(-10000.0/500000.0), d.YieldDecayShort, 1e-12)
	assert.InDelta(t, math.Exp(-10000.0/100000000.0), d.YieldDecayLong, 1e-12)
	assert.Greater(t, d.YieldDecayLong, d.YieldDecayShort)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero months", func(c *Config) { c.Simulation.Months = 0 }},
		{"zero regions", func(c *Config) { c.Simulation.Regions = 0 }},
		{"zero population", func(c *Config) { c.Simulation.TargetPopulation = 0 }},
		{"single quality band", func(c *Config) { c.Simulation.NQuality = 1 }},
		{"bid up below one", func(c *Config) { c.Market.BidUp = 0.99 }},
		{"inverted reference prices", func(c *Config) {
			c.Market.ReferencePriceMin = 2e5
			c.Market.ReferencePriceMax = 1e5
		}},
		{"zero min itv", func(c *Config) { c.Bank.MinITV = 0 }},
		{"zero mortgage duration", func(c *Config) { c.Bank.MortgageDurationYears = 0 }},
		{"haircut of one", func(c *Config) { c.Bank.HaircutBTL = 1 }},
		{"negative haircut", func(c *Config) { c.Bank.HaircutFTB = -0.1 }},
		{"tenancy noise swallows mean", func(c *Config) {
			c.Household.TenancyLengthAverage = 3
			c.Household.TenancyLengthEpsilon = 3
		}},
		{"zero hold period", func(c *Config) { c.Household.HoldPeriodYears = 0 }},
		{"zero housing ratio", func(c *Config) { c.Construction.HousesPerHousehold = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "housesim.toml")
	body := `
log_level = "debug"

[simulation]
seed = 99
months = 36

[bank]
interest_rate = 0.05
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(99), cfg.Simulation.Seed)
	assert.Equal(t, 36, cfg.Simulation.Months)
	assert.InDelta(t, 0.05, cfg.Bank.InterestRate, 1e-12)

	// Untouched fields keep their defaults.
	def := Defaults()
	assert.Equal(t, def.Simulation.Regions, cfg.Simulation.Regions)
	assert.Equal(t, def.Market.BidUp, cfg.Market.BidUp)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOUSESIM_SEED", "1234")
	t.Setenv("HOUSESIM_MONTHS", "7")
	t.Setenv("HOUSESIM_BANK_MAX_LTI", "3.5")
	t.Setenv("HOUSESIM_RECORDING_ENABLED", "true")
	t.Setenv("HOUSESIM_SERVER_ADMIN_KEY", "hunter2")
	t.Setenv("HOUSESIM_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(1234), cfg.Simulation.Seed)
	assert.Equal(t, 7, cfg.Simulation.Months)
	assert.InDelta(t, 3.5, cfg.Bank.MaxLTI, 1e-12)
	assert.True(t, cfg.Recording.Enabled)
	assert.Equal(t, "hunter2", cfg.Server.AdminKey)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("HOUSESIM_MONTHS", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Simulation.Months, cfg.Simulation.Months)
}
