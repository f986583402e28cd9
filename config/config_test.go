package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadWithViper(New())
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, uint64(500), cfg.Platform.FeeBps)
	assert.Equal(t, uint64(100_000), cfg.Platform.MinPrice)
	assert.Equal(t, uint8(60), cfg.Verification.MinScore)
	assert.Equal(t, 300, cfg.Verification.SignatureMaxAgeSeconds)
	assert.Equal(t, uint16(144), cfg.Oracle.MaxVerificationsPerDay)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("EXCHAINGE_PLATFORM_FEE_BPS", "300")
	t.Setenv("EXCHAINGE_DATABASE_PATH", "/tmp/ledger.db")

	cfg, err := LoadWithViper(New())
	require.NoError(t, err)
	assert.Equal(t, uint64(300), cfg.Platform.FeeBps)
	assert.Equal(t, "/tmp/ledger.db", cfg.Database.Path)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exchainge.toml")
	content := `
[platform]
fee_bps = 300

[oracle]
max_verifications_per_day = 2
burst_per_minute = 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), cfg.Platform.FeeBps)
	assert.Equal(t, uint64(DefaultMaxFeeBps), cfg.Platform.MaxFeeBps)
	assert.Equal(t, uint16(2), cfg.Oracle.MaxVerificationsPerDay)
	assert.Equal(t, 10, cfg.Oracle.BurstPerMinute)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"empty database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"shared wallet path", func(c *Config) { c.Wallet.Path = c.Database.Path }, "wallet.path"},
		{"wallet path spelled differently", func(c *Config) {
			c.Database.Path = "x.db"
			c.Wallet.Path = "./sub/../x.db"
		}, "same file"},
		{"fee above cap", func(c *Config) { c.Platform.FeeBps = 2001 }, "platform.fee_bps"},
		{"cap above denominator", func(c *Config) { c.Platform.MaxFeeBps = 10_001 }, "platform.max_fee_bps"},
		{"zero min price", func(c *Config) { c.Platform.MinPrice = 0 }, "platform.min_price"},
		{"max below min", func(c *Config) { c.Platform.MaxPrice = 10 }, "platform.max_price"},
		{"score above 100", func(c *Config) { c.Verification.MinScore = 101 }, "verification.min_score"},
		{"zero freshness window", func(c *Config) { c.Verification.SignatureMaxAgeSeconds = 0 }, "signature_max_age_seconds"},
		{"zero daily quota", func(c *Config) { c.Oracle.MaxVerificationsPerDay = 0 }, "max_verifications_per_day"},
		{"negative burst", func(c *Config) { c.Oracle.BurstPerMinute = -1 }, "burst_per_minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "exchainge.toml")

	cfg := Default()
	cfg.Platform.FeeBps = 250
	cfg.Log.JSON = true
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	// Second save keeps a backup of the first
	cfg.Platform.FeeBps = 100
	require.NoError(t, Save(path, cfg))
	_, err = os.Stat(path + ".back")
	assert.NoError(t, err)
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Platform.FeeBps = 9999
	assert.Error(t, Save(filepath.Join(t.TempDir(), "x.toml"), cfg))
}
