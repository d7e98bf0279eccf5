package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error type mapped to HTTP status codes
// at the server boundary.
type Code int

const (
	CodeSuccess     Code = 0
	CodeInternal    Code = 1
	CodeUsage       Code = 2
	CodeAuth        Code = 10
	CodeRateLimited Code = 11
	CodeUnavailable Code = 12
	CodeUnsupported Code = 13
	CodeNoRoute     Code = 14
)

// Error is a typed agent error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// ExitCode maps an error to the process exit code for the CLI surface.
func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	agentErr, ok := As(err)
	if !ok {
		return int(CodeInternal)
	}
	return int(agentErr.Code)
}

// HTTPStatus maps an error to the status code the HTTP surface should return.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	agentErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch agentErr.Code {
	case CodeUsage:
		return http.StatusBadRequest
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeUnsupported:
		return http.StatusUnprocessableEntity
	case CodeNoRoute:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
