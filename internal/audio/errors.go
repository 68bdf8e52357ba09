package audio

import "fmt"

// ErrorKind categorizes analyzer failures so callers can decide whether to
// retry, skip, or abort the surrounding pipeline.
type ErrorKind string

const (
	ErrFileNotFound      ErrorKind = "FILE_NOT_FOUND"
	ErrEmptyFile         ErrorKind = "EMPTY_FILE"
	ErrUnsupportedFormat ErrorKind = "UNSUPPORTED_FORMAT"
	ErrDecode            ErrorKind = "DECODE_ERROR"
	ErrComputation       ErrorKind = "COMPUTATION_ERROR"
)

// Error is the structured failure result for decoding and metric computation.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}
