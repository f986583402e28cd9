package verify

import (
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/listing"
)

var (
	ErrListingInactive = listing.ErrInactive
	ErrListingExpired  = listing.ErrExpired

	ErrAlreadyVerified = errors.Reason("listing_already_verified", errors.ErrConflict, "listing is already verified")
	ErrUnknownEvidence = errors.Reason("evidence_unknown", errors.ErrValidation, "unsupported evidence type")

	// Proof mode
	ErrPublicValuesMalformed = errors.Reason("public_values_malformed", errors.ErrValidation, "public values are malformed")
	ErrPublicValuesMismatch  = errors.Reason("public_values_mismatch", errors.ErrValidation, "public values differ from the verified proof output")
	ErrCommitmentZero        = errors.Reason("commitment_zero", errors.ErrValidation, "commitment is all zeros")
	ErrCommitmentMismatch    = errors.Reason("commitment_mismatch", errors.ErrValidation, "commitment does not match the public values")
	ErrScoreTooLow           = errors.Reason("verification_score_too_low", errors.ErrValidation, "verification score below threshold")
	ErrAntiSynthesisTooLow   = errors.Reason("anti_synthesis_score_too_low", errors.ErrValidation, "anti-synthesis score below threshold")
	ErrPhysicsInconsistent   = errors.Reason("physics_inconsistent", errors.ErrValidation, "physics consistency check failed")
	ErrProofRejected         = errors.Reason("proof_rejected", errors.ErrExternal, "proof verifier rejected the proof")

	// Oracle mode
	ErrDataHashEmpty         = errors.Reason("data_hash_empty", errors.ErrValidation, "data hash is empty")
	ErrDataHashTooLong       = errors.Reason("data_hash_too_long", errors.ErrValidation, "data hash is too long")
	ErrLocationTooLong       = errors.Reason("location_too_long", errors.ErrValidation, "location is too long")
	ErrTooManySensorReadings = errors.Reason("too_many_sensor_readings", errors.ErrValidation, "too many sensor readings")
	ErrSensorReadingInvalid  = errors.Reason("sensor_reading_invalid", errors.ErrValidation, "sensor reading is invalid")
	ErrSignatureFromFuture   = errors.Reason("signature_from_future", errors.ErrValidation, "signature timestamp is in the future")
	ErrSignatureStale        = errors.Reason("signature_stale", errors.ErrValidation, "signature timestamp is too old")
	ErrSignatureInvalid      = errors.Reason("signature_invalid", errors.ErrUnauthorized, "signature does not verify")
	ErrSignatureCheckFailed  = errors.Reason("signature_verifier_failed", errors.ErrExternal, "signature verifier failed")
)
