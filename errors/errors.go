// Package errors provides error handling for exchainge.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//   - Sentry integration
//
// On top of the re-exports it defines the ledger's error taxonomy. Every
// rejection carries a kind (validation, authorization, state conflict,
// arithmetic, external dependency) and a stable reason code:
//
//	var ErrTitleEmpty = errors.Reason("title_empty", errors.ErrValidation, "title is empty")
//
//	if title == "" {
//	    return errors.Wrapf(ErrTitleEmpty, "listing by %s", provider)
//	}
//
//	errors.Is(err, ErrTitleEmpty)        // true
//	errors.Is(err, errors.ErrValidation) // true
//	errors.CodeOf(err)                   // "title_empty"
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Join         = crdb.Join
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	UnwrapOnce     = crdb.UnwrapOnce
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Error kinds. Every reason sentinel unwraps to exactly one of these, so
// callers can branch on the class of failure without knowing the reason.
var (
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = New("validation failed")

	// ErrUnauthorized indicates the caller, signer or owner is not permitted.
	ErrUnauthorized = New("unauthorized")

	// ErrConflict indicates the records are in a state that forbids the operation
	// (already verified, sold out, expired, quota reached).
	ErrConflict = New("state conflict")

	// ErrArithmetic indicates an overflow or division by zero.
	ErrArithmetic = New("arithmetic failure")

	// ErrExternal indicates a collaborator (payment rail, proof verifier) failed.
	ErrExternal = New("external dependency failure")

	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = New("not found")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}
