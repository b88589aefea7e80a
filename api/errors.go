// Package api
// Author: momentics <momentics@gmail.com>
//
// Structured scheduler errors: a code, a message and key/value context.

package api

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is. Every *Error unwraps to the one of its
// code.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrOperationTimeout  = errors.New("operation timeout")
	ErrNotSupported      = errors.New("operation not supported")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrNotFound          = errors.New("resource not found")
	ErrQueueNotEmpty     = errors.New("queue not empty")
	ErrQueueDestroyed    = errors.New("queue destroyed")
	ErrBusy              = errors.New("resource busy")
	ErrInternal          = errors.New("internal consistency violation")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeTimeout
	ErrCodeNotSupported
	ErrCodeAlreadyExists
	ErrCodeNotFound
	ErrCodeQueueNotEmpty
	ErrCodeQueueDestroyed
	ErrCodeBusy
	ErrCodeInternal
)

var codeSentinels = map[ErrorCode]error{
	ErrCodeInvalidArgument:   ErrInvalidArgument,
	ErrCodeResourceExhausted: ErrResourceExhausted,
	ErrCodeTimeout:           ErrOperationTimeout,
	ErrCodeNotSupported:      ErrNotSupported,
	ErrCodeAlreadyExists:     ErrAlreadyExists,
	ErrCodeNotFound:          ErrNotFound,
	ErrCodeQueueNotEmpty:     ErrQueueNotEmpty,
	ErrCodeQueueDestroyed:    ErrQueueDestroyed,
	ErrCodeBusy:              ErrBusy,
	ErrCodeInternal:          ErrInternal,
}

var codeNames = map[ErrorCode]string{
	ErrCodeOK:                "ok",
	ErrCodeInvalidArgument:   "invalid_argument",
	ErrCodeResourceExhausted: "resource_exhausted",
	ErrCodeTimeout:           "timeout",
	ErrCodeNotSupported:      "not_supported",
	ErrCodeAlreadyExists:     "already_exists",
	ErrCodeNotFound:          "not_found",
	ErrCodeQueueNotEmpty:     "queue_not_empty",
	ErrCodeQueueDestroyed:    "queue_destroyed",
	ErrCodeBusy:              "busy",
	ErrCodeInternal:          "internal",
}

func (c ErrorCode) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// CodeOf returns the code of the first *Error in err's chain, ErrCodeOK for
// nil and ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Code.String() + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (context: %+v)", e.Code, e.Message, e.Context)
}

// Unwrap exposes the sentinel matching Code, so errors.Is works against the
// package level error values.
func (e *Error) Unwrap() error {
	return codeSentinels[e.Code]
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
