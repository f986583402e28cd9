package errors

// ReasonError is a sentinel rejection with a stable machine-readable code.
// It unwraps to its kind, so errors.Is matches both the reason and the kind.
type ReasonError struct {
	code string
	msg  string
	kind error
}

// Reason declares a reason sentinel. Declare these as package-level vars
// and wrap them at the failure site; never compare codes as strings.
func Reason(code string, kind error, msg string) *ReasonError {
	return &ReasonError{code: code, msg: msg, kind: kind}
}

func (r *ReasonError) Error() string { return r.msg }

// Code returns the stable reason code.
func (r *ReasonError) Code() string { return r.code }

// Kind returns the kind sentinel this reason belongs to.
func (r *ReasonError) Kind() error { return r.kind }

func (r *ReasonError) Unwrap() error { return r.kind }

// CodeOf returns the reason code carried anywhere in err's chain,
// or "" when err has no reason attached.
func CodeOf(err error) string {
	var r *ReasonError
	if As(err, &r) {
		return r.code
	}
	return ""
}

// KindOf returns the kind sentinel for err. Errors without a reason are
// classified by the kind sentinels they wrap directly; anything else is nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var r *ReasonError
	if As(err, &r) {
		return r.kind
	}
	for _, kind := range []error{ErrValidation, ErrUnauthorized, ErrConflict, ErrArithmetic, ErrExternal, ErrNotFound} {
		if Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName returns a short label for the kind of err, used in logs and CLI output.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrValidation:
		return "validation"
	case ErrUnauthorized:
		return "authorization"
	case ErrConflict:
		return "state_conflict"
	case ErrArithmetic:
		return "arithmetic"
	case ErrExternal:
		return "external"
	case ErrNotFound:
		return "not_found"
	default:
		return "internal"
	}
}
