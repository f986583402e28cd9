package logger

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/exchainge/errors"
)

// Standard field names for consistent structured logging across exchainge.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldIdentity  = "identity"
	FieldCaller    = "caller"
	FieldProvider  = "provider"
	FieldBuyer     = "buyer"
	FieldOperator  = "operator"

	// Components
	FieldComponent = "component"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"

	// Errors
	FieldError     = "error"
	FieldErrorCode = "error_code"
	FieldErrorKind = "error_kind"

	// Ledger records
	FieldListingID      = "listing_id"
	FieldLicenseID      = "license_id"
	FieldOracleID       = "oracle_id"
	FieldVerificationID = "verification_id"
	FieldDatasetKey     = "dataset_key"
	FieldEventID        = "event_id"
	FieldEventType      = "event_type"

	// Value
	FieldAmount      = "amount"
	FieldFee         = "fee"
	FieldSellerShare = "seller_share"
	FieldFeeBps      = "fee_bps"

	// Counts
	FieldCount = "count"
)

// Context keys for propagating logging context
type contextKey string

const (
	requestIDKey contextKey = "logger_request_id"
	componentKey contextKey = "logger_component"
)

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base with the context's logging fields attached.
// A nil base falls back to the global Logger.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Registry struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewRegistry() *Registry {
//	    return &Registry{
//	        logger: logger.ComponentLogger("listing"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}

// Rejected logs a refused operation at debug level, tagged with the
// reason code and kind carried by err.
func Rejected(l *zap.SugaredLogger, operation string, err error, keysAndValues ...interface{}) {
	if l == nil {
		return
	}
	fields := append([]interface{}{
		FieldOperation, operation,
		FieldErrorCode, errors.CodeOf(err),
		FieldErrorKind, errors.KindName(err),
		FieldError, err.Error(),
	}, keysAndValues...)
	l.Debugw("Operation rejected", fields...)
}
