package transfercore

import "errors"

// Kind is a stable error category; branch on it instead of matching strings.
type Kind string

const (
	KindParse         Kind = "Parse"
	KindRowValidation Kind = "RowValidation"
	KindSignerInit    Kind = "SignerInit"
	KindConnection    Kind = "Connection"
	KindSubmission    Kind = "Submission"
)

// Error is the structured error returned across the transfer pipeline.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil && e.Message != "" {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError builds an error of the given kind.
func NewError(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// WrapError attaches a kind to cause. A nil cause yields NewError.
func WrapError(kind Kind, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, msg)
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsKind reports whether err is, or wraps, an *Error with the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

var (
	// ErrDeclined is returned by Send when the confirmation gate says no.
	ErrDeclined = errors.New("transfer not confirmed")
	// ErrAlreadyConnected means a signer is active; disconnect first.
	ErrAlreadyConnected = errors.New("session already connected, disconnect first")
	// ErrNotConnected means no signer is active.
	ErrNotConnected = errors.New("session not connected")
	// ErrInvalidState is returned for operations not allowed in the current state.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrCancelled marks records skipped because the run was cancelled.
	ErrCancelled = errors.New("batch cancelled before submission")
)
