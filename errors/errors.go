// Package errors provides typed error handling for the RootAsRole policy
// engine.
//
// It defines domain-specific error kinds that let callers classify and
// react to failures without parsing message strings. All errors support
// the standard errors.Is()/errors.As() functions.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind is a taxonomy of failure categories, independent of message
// text (spec §7).
type ErrorKind int

const (
	// InvalidArguments indicates a CLI parse or filter-shape error.
	InvalidArguments ErrorKind = iota
	// ConfigurationError indicates a malformed policy file, unknown
	// storage method, migration failure, or invariant violation.
	ConfigurationError
	// AuthenticationFailed indicates PAM rejected the caller and no
	// valid cookie covered the request.
	AuthenticationFailed
	// InsufficientPrivileges indicates the core could not raise a
	// capability it needed (e.g. SETFCAP, LINUX_IMMUTABLE).
	InsufficientPrivileges
	// PermissionDenied indicates a match succeeded but a post-condition
	// failed (e.g. a hashed-binary checker's immutability requirement),
	// or no (role, task) matched the caller at all.
	PermissionDenied
	// ExecutionFailed indicates the resolved executable was not found
	// or not executable.
	ExecutionFailed
	// SystemError indicates an IO/OS failure not covered above.
	SystemError
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case InvalidArguments:
		return "invalid arguments"
	case ConfigurationError:
		return "configuration error"
	case AuthenticationFailed:
		return "authentication failed"
	case InsufficientPrivileges:
		return "insufficient privileges"
	case PermissionDenied:
		return "permission denied"
	case ExecutionFailed:
		return "execution failed"
	case SystemError:
		return "system error"
	default:
		return "unknown error"
	}
}

// CoreError is an error tagged with a Kind and the operation that
// produced it. Denial is opaque by design (§7): a CoreError never
// carries which role/task would have matched under different
// credentials, only the taxonomy string and non-sensitive detail.
type CoreError struct {
	// Op is the operation that failed (e.g. "find_best", "persist").
	Op string
	// Err is the underlying error, if any.
	Err error
	// Kind classifies the failure.
	Kind ErrorKind
	// Detail is additional, non-sensitive context.
	Detail string
}

// Error returns the error message.
func (e *CoreError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := ""
	if e.Op != "" {
		msg += fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *CoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches target. Two *CoreError values
// match if they share a Kind, which lets callers write
// errors.Is(err, rarerr.ErrNoMatch) without caring about Op/Detail.
func (e *CoreError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a new CoreError.
func New(kind ErrorKind, op, detail string) *CoreError {
	return &CoreError{Op: op, Kind: kind, Detail: detail}
}

// Wrap wraps err with operation context.
func Wrap(err error, kind ErrorKind, op string) *CoreError {
	return &CoreError{Op: op, Err: err, Kind: kind}
}

// WrapDetail wraps err with operation context and additional detail.
func WrapDetail(err error, kind ErrorKind, op, detail string) *CoreError {
	return &CoreError{Op: op, Err: err, Kind: kind, Detail: detail}
}

// IsKind reports whether err is a CoreError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var cerr *CoreError
	if errors.As(err, &cerr) {
		return cerr.Kind == kind
	}
	return false
}

// GetKind returns the error kind if err is a CoreError.
func GetKind(err error) (ErrorKind, bool) {
	var cerr *CoreError
	if errors.As(err, &cerr) {
		return cerr.Kind, true
	}
	return 0, false
}

// Re-exported for convenience, exactly as the teacher's errors package
// does.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
