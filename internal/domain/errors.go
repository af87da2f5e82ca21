package domain

import (
	"errors"
	"fmt"
)

type ErrKind string

const (
	KindNetwork      ErrKind = "network"
	KindAuth         ErrKind = "auth"
	KindMalformed    ErrKind = "malformed"
	KindMutation     ErrKind = "mutation"
	KindValidation   ErrKind = "validation_error"
	KindInvalidState ErrKind = "invalid_state"
	KindNotFound     ErrKind = "not_found"
	KindInternal     ErrKind = "internal_error"
)

// AppError is the structured error handed to the rendering layer.
type AppError struct {
	Kind    ErrKind           `json:"kind"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if len(e.Meta) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Meta)
}

func (e *AppError) Unwrap() error { return e.Err }

// ErrSuperseded marks a response that arrived after a newer request for the
// same query key had already been dispatched.
var ErrSuperseded = errors.New("superseded_response")

func ErrValidation(msg string) error { return &AppError{Kind: KindValidation, Message: msg} }
func ErrValidationMeta(msg string, meta map[string]string) error {
	return &AppError{Kind: KindValidation, Message: msg, Meta: meta}
}
func ErrInvalidState(msg string) error { return &AppError{Kind: KindInvalidState, Message: msg} }
func ErrNotFound(msg string) error     { return &AppError{Kind: KindNotFound, Message: msg} }

// KindOf returns the kind of an AppError anywhere in err's chain, or "".
func KindOf(err error) ErrKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
