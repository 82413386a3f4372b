// Package waveerrors defines the three error kinds the core distinguishes,
// per the map's error handling design: configuration errors (construction
// time, object never created), rejected input (integration time, map left
// unmodified), and precondition violations (programmer error, fatal).
package waveerrors

import "github.com/pkg/errors"

// ConfigError reports an invalid configuration passed to a factory. The
// factory returns (nil, err) rather than constructing a half-valid object.
type ConfigError struct {
	cause error
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.cause.Error()
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.cause
}

// NewConfigError wraps msg (formatted like errors.Errorf) as a ConfigError.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{cause: errors.Errorf(format, args...)}
}

// InputRejectedError reports a pointcloud or pose the integrator could not
// accept. The integrator logs and returns without mutating the map.
type InputRejectedError struct {
	cause error
}

func (e *InputRejectedError) Error() string {
	return "input rejected: " + e.cause.Error()
}

func (e *InputRejectedError) Unwrap() error {
	return e.cause
}

// NewInputRejectedError wraps msg as an InputRejectedError.
func NewInputRejectedError(format string, args ...interface{}) *InputRejectedError {
	return &InputRejectedError{cause: errors.Errorf(format, args...)}
}

// PreconditionViolation reports a programmer error: an out-of-range index,
// a mismatched map variant, or similar invariant breach. The core panics
// with this type rather than returning it, since there is no well-defined
// recovery; callers operating a worker pool should recover at the
// per-task boundary (see occmap's use of go.viam.com/utils.PanicCapturingGo)
// so one corrupted call cannot take down unrelated work.
type PreconditionViolation struct {
	cause error
}

func (e *PreconditionViolation) Error() string {
	return "precondition violation: " + e.cause.Error()
}

func (e *PreconditionViolation) Unwrap() error {
	return e.cause
}

// Panic panics with a *PreconditionViolation built from the given message.
func Panic(format string, args ...interface{}) {
	panic(&PreconditionViolation{cause: errors.Errorf(format, args...)})
}
