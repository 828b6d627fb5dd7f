package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig       Kind = "config"
	KindDomain       Kind = "domain"
	KindTransport    Kind = "transport"
	KindPlatform     Kind = "platform"
	KindBootstrap    Kind = "bootstrap"
	KindStorage      Kind = "storage"
	KindVision       Kind = "vision"
	KindInference    Kind = "inference"
	KindPrecondition Kind = "precondition"
	KindValidation   Kind = "validation"
	KindUnknown      Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap attaches a kind to err. A nil err yields nil, and an err that is
// already typed is returned as-is so the innermost kind wins.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return err
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first typed error in the chain.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

// Message returns the human readable message of the first typed error in
// the chain, falling back to err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var target *Error
	if errors.As(err, &target) && target.Message != "" {
		return target.Message
	}
	return err.Error()
}
