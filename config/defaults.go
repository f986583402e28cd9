package config

import "github.com/spf13/viper"

// Default values shared by SetDefaults and Default.
const (
	DefaultDatabasePath           = "exchainge.db"
	DefaultWalletPath             = "exchainge-wallet.db"
	DefaultFeeBps                 = 500
	DefaultMaxFeeBps              = 2000
	DefaultMinPrice               = 100_000
	DefaultMaxPrice               = 1_000_000_000_000
	DefaultMinScore               = 60
	DefaultSignatureMaxAgeSeconds = 300
	DefaultMaxVerificationsPerDay = 144 // one every ten minutes
	DefaultProofVerifierTimeout   = 30
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("wallet.path", DefaultWalletPath)

	v.SetDefault("platform.fee_bps", DefaultFeeBps)
	v.SetDefault("platform.max_fee_bps", DefaultMaxFeeBps)
	v.SetDefault("platform.min_price", DefaultMinPrice)
	v.SetDefault("platform.max_price", DefaultMaxPrice)

	v.SetDefault("verification.min_score", DefaultMinScore)
	v.SetDefault("verification.signature_max_age_seconds", DefaultSignatureMaxAgeSeconds)
	v.SetDefault("verification.proof_verifier_url", "")
	v.SetDefault("verification.proof_verifier_timeout_seconds", DefaultProofVerifierTimeout)
	v.SetDefault("verification.proof_verifier_allow_private", false)

	v.SetDefault("oracle.max_verifications_per_day", DefaultMaxVerificationsPerDay)
	v.SetDefault("oracle.burst_per_minute", 0)

	v.SetDefault("events.outbox", true)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// Default returns the configuration produced by SetDefaults alone.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: DefaultDatabasePath},
		Wallet:   WalletConfig{Path: DefaultWalletPath},
		Platform: PlatformConfig{
			FeeBps:    DefaultFeeBps,
			MaxFeeBps: DefaultMaxFeeBps,
			MinPrice:  DefaultMinPrice,
			MaxPrice:  DefaultMaxPrice,
		},
		Verification: VerificationConfig{
			MinScore:                    DefaultMinScore,
			SignatureMaxAgeSeconds:      DefaultSignatureMaxAgeSeconds,
			ProofVerifierTimeoutSeconds: DefaultProofVerifierTimeout,
		},
		Oracle: OracleConfig{MaxVerificationsPerDay: DefaultMaxVerificationsPerDay},
		Events: EventsConfig{Outbox: true},
		Log:    LogConfig{Level: "info"},
	}
}
