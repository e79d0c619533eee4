package responder

import "fmt"

// ErrorKind names the pipeline stage an error came from.
type ErrorKind string

const (
	ErrClassification ErrorKind = "classification"
	ErrResponder      ErrorKind = "responder"
	ErrExtraction     ErrorKind = "extraction"
	ErrReflection     ErrorKind = "reflection"
)

// Error is a pipeline failure with its originating stage attached, so the
// host can report which part of the turn failed.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func stageError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
