// Package errors defines the error kinds a stage can fail with.  All of them
// are fatal: a stage that hits one stops and reports it on stderr.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error kind.
type Kind string

const (
	// KindDecode means an input line is not valid structured data.
	KindDecode Kind = "DECODE_ERROR"
	// KindEncode means an event could not be serialized.
	KindEncode Kind = "ENCODE_ERROR"
	// KindTransform is raised by stage-specific logic.
	KindTransform Kind = "TRANSFORM_ERROR"
	// KindConvention means a line uses another location convention than the
	// one the pipeline was configured with.
	KindConvention Kind = "CONVENTION_MISMATCH"
	// KindIO means reading or writing a stream failed.
	KindIO Kind = "IO_ERROR"
)

// Error is the error type returned by the codec and the runner.
type Error struct {
	Kind Kind
	// Line is the 1-based input line the error relates to, or 0.
	Line    int
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Line > 0 {
		msg = fmt.Sprintf("%s: line %d: %s", e.Kind, e.Line, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same kind, so that
//
//	errors.Is(err, &Error{Kind: KindDecode})
//
// works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Line == 0
}

// AtLine sets the line number if it is not already set and returns the
// receiver.
func (e *Error) AtLine(line int) *Error {
	if e.Line == 0 {
		e.Line = line
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Decode makes a DecodeError.
func Decode(message string, cause error) *Error {
	return &Error{Kind: KindDecode, Message: message, Cause: cause}
}

// Encode makes an EncodeError.
func Encode(message string, cause error) *Error {
	return &Error{Kind: KindEncode, Message: message, Cause: cause}
}

// Transform makes a TransformationError.
func Transform(message string, cause error) *Error {
	return &Error{Kind: KindTransform, Message: message, Cause: cause}
}

// Convention makes a ConventionError.
func Convention(message string) *Error {
	return &Error{Kind: KindConvention, Message: message}
}

// IO makes an IOError.
func IO(message string, cause error) *Error {
	return &Error{Kind: KindIO, Message: message, Cause: cause}
}

// MissingField makes a TransformationError for a required event field that
// is absent.
func MissingField(field string) *Error {
	return Transform("missing required field "+field, nil).WithDetail("field", field)
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}
