package oracle

import (
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/ledger"
)

var (
	ErrRegistryNotInitialized = ledger.ErrOracleRegistryNotInitialized
	ErrRegistryExists         = ledger.ErrOracleRegistryExists
	ErrNotFound               = ledger.ErrOracleNotFound
	ErrAlreadyRegistered      = ledger.ErrOracleExists

	ErrMaxPerDayInvalid     = errors.Reason("max_per_day_invalid", errors.ErrValidation, "max verifications per day out of range")
	ErrTooManyOperators     = errors.Reason("too_many_operators", errors.ErrValidation, "operator allow-list is full")
	ErrHardwareIDInvalid    = errors.Reason("hardware_id_invalid", errors.ErrValidation, "hardware id is empty or too long")
	ErrCertificationInvalid = errors.Reason("certification_hash_invalid", errors.ErrValidation, "certification hash is empty or too long")
	ErrReasonTooLong        = errors.Reason("reason_too_long", errors.ErrValidation, "reason is too long")
	ErrNotRegistryAuthority = errors.Reason("not_registry_authority", errors.ErrUnauthorized, "caller is not the oracle registry authority")
	ErrOperatorNotAllowed   = errors.Reason("operator_not_allowed", errors.ErrUnauthorized, "operator is not on the allow-list")
	ErrNotOperator          = errors.Reason("not_oracle_operator", errors.ErrUnauthorized, "caller does not operate this oracle")
	ErrInactive             = errors.Reason("oracle_inactive", errors.ErrUnauthorized, "oracle is not active")
	ErrAlreadyDeactivated   = errors.Reason("oracle_already_deactivated", errors.ErrConflict, "oracle is already deactivated")
	ErrDailyLimitExceeded   = errors.Reason("daily_limit_exceeded", errors.ErrConflict, "oracle daily verification limit reached")
	ErrThrottled            = errors.Reason("oracle_throttled", errors.ErrConflict, "oracle is submitting too fast")
)
