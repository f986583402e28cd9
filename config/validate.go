package config

import (
	"path/filepath"

	"github.com/teranos/exchainge/errors"
)

// MaxBPS is the basis-point denominator; no fee may exceed it.
const MaxBPS = 10_000

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path cannot be empty")
	}
	if c.Wallet.Path == "" {
		return errors.New("wallet.path cannot be empty")
	}
	if samePath(c.Wallet.Path, c.Database.Path) {
		return errors.Newf("wallet.path %q and database.path %q name the same file", c.Wallet.Path, c.Database.Path)
	}

	if c.Platform.MaxFeeBps > MaxBPS {
		return errors.Newf("platform.max_fee_bps must be <= %d, got %d", MaxBPS, c.Platform.MaxFeeBps)
	}
	if c.Platform.FeeBps > c.Platform.MaxFeeBps {
		return errors.Newf("platform.fee_bps (%d) exceeds platform.max_fee_bps (%d)", c.Platform.FeeBps, c.Platform.MaxFeeBps)
	}
	if c.Platform.MinPrice == 0 {
		return errors.New("platform.min_price must be > 0")
	}
	if c.Platform.MaxPrice < c.Platform.MinPrice {
		return errors.Newf("platform.max_price (%d) is below platform.min_price (%d)", c.Platform.MaxPrice, c.Platform.MinPrice)
	}

	if c.Verification.MinScore == 0 || c.Verification.MinScore > 100 {
		return errors.Newf("verification.min_score must be in 1..100, got %d", c.Verification.MinScore)
	}
	if c.Verification.SignatureMaxAgeSeconds <= 0 {
		return errors.Newf("verification.signature_max_age_seconds must be > 0, got %d", c.Verification.SignatureMaxAgeSeconds)
	}
	if c.Verification.ProofVerifierURL != "" && c.Verification.ProofVerifierTimeoutSeconds <= 0 {
		return errors.Newf("verification.proof_verifier_timeout_seconds must be > 0, got %d", c.Verification.ProofVerifierTimeoutSeconds)
	}

	if c.Oracle.MaxVerificationsPerDay == 0 {
		return errors.New("oracle.max_verifications_per_day must be > 0")
	}
	// Burst throttle: 0 = disabled, negative = invalid
	if c.Oracle.BurstPerMinute < 0 {
		return errors.Newf("oracle.burst_per_minute must be >= 0, got %d", c.Oracle.BurstPerMinute)
	}

	return nil
}

func samePath(a, b string) bool {
	return absPath(a) == absPath(b)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
