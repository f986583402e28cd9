// Package config loads exchainge configuration from TOML files and
// EXCHAINGE_* environment variables using Viper.
package config

// Config represents the complete exchainge configuration
type Config struct {
	Database     DatabaseConfig     `mapstructure:"database" toml:"database"`
	Wallet       WalletConfig       `mapstructure:"wallet" toml:"wallet"`
	Platform     PlatformConfig     `mapstructure:"platform" toml:"platform"`
	Verification VerificationConfig `mapstructure:"verification" toml:"verification"`
	Oracle       OracleConfig       `mapstructure:"oracle" toml:"oracle"`
	Events       EventsConfig       `mapstructure:"events" toml:"events"`
	Log          LogConfig          `mapstructure:"log" toml:"log"`
}

// DatabaseConfig configures the SQLite ledger database
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// WalletConfig configures the SQLite payment rail. The rail lives in its own
// database file: it stands in for an external value-transfer system.
type WalletConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// PlatformConfig configures fee and pricing bounds.
type PlatformConfig struct {
	FeeBps    uint64 `mapstructure:"fee_bps" toml:"fee_bps"`         // fee applied at platform initialization (default: 500)
	MaxFeeBps uint64 `mapstructure:"max_fee_bps" toml:"max_fee_bps"` // upper bound for any fee update (default: 2000)
	MinPrice  uint64 `mapstructure:"min_price" toml:"min_price"`     // smallest listing price in base units (default: 100000)
	MaxPrice  uint64 `mapstructure:"max_price" toml:"max_price"`     // largest listing price in base units (default: 1e12)
}

// VerificationConfig configures the verification thresholds
type VerificationConfig struct {
	MinScore               uint8 `mapstructure:"min_score" toml:"min_score"`                                 // minimum verification and anti-synthesis score (default: 60)
	SignatureMaxAgeSeconds int   `mapstructure:"signature_max_age_seconds" toml:"signature_max_age_seconds"` // oracle signature freshness window (default: 300)

	// Optional external prover. Proofs are only checked against the
	// submitted public values when ProofVerifierURL is set.
	ProofVerifierURL            string `mapstructure:"proof_verifier_url" toml:"proof_verifier_url"`
	ProofVerifierTimeoutSeconds int    `mapstructure:"proof_verifier_timeout_seconds" toml:"proof_verifier_timeout_seconds"` // default: 30
	ProofVerifierAllowPrivate   bool   `mapstructure:"proof_verifier_allow_private" toml:"proof_verifier_allow_private"`     // permit loopback/private prover addresses
}

// OracleConfig configures the per-oracle rate limits
type OracleConfig struct {
	MaxVerificationsPerDay uint16 `mapstructure:"max_verifications_per_day" toml:"max_verifications_per_day"` // quota written at registry initialization (default: 144)
	BurstPerMinute         int    `mapstructure:"burst_per_minute" toml:"burst_per_minute"`                   // 0 disables the burst throttle
}

// EventsConfig configures event emission
type EventsConfig struct {
	Outbox bool `mapstructure:"outbox" toml:"outbox"` // persist events to the event_outbox table for relay
}

// LogConfig configures the global logger
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json"`
	Level string `mapstructure:"level" toml:"level"`
}
