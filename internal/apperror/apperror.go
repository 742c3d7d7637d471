// Package apperror defines the wire error kinds of spec.md §7 and their
// HTTP status mapping.
package apperror

import (
	"fmt"
	"net/http"
)

// Code is one of the numeric error kinds spec.md §7 puts on the wire.
type Code int

const (
	InvalidArgument Code = 1
	NotFound        Code = 3
	RateLimit       Code = 4
	External        Code = 5
	Internal        Code = 6
)

var httpStatus = map[Code]int{
	InvalidArgument: http.StatusBadRequest,
	NotFound:        http.StatusNotFound,
	RateLimit:       http.StatusBadRequest,
	External:        http.StatusInternalServerError,
	Internal:        http.StatusInternalServerError,
}

// reasonToken is the canonical wire token spec.md §7's table assigns to
// each code (e.g. the original's {code, reason:"ERR_NOT_FOUND", message}
// shape).
var reasonToken = map[Code]string{
	InvalidArgument: "ERR_INVALID_ARGUMENT",
	NotFound:        "ERR_NOT_FOUND",
	RateLimit:       "ERR_RATE_LIMIT",
	External:        "ERR_EXTERNAL",
	Internal:        "ERR_INTERNAL",
}

// Error is the judge service's error type: a wire code, an HTTP status
// derived from it, and a human-readable message. Reason() is the
// canonical ERR_* token the wire response puts in its "reason" field;
// Message is free text for operators/clients, not a spec.md §7 token.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus returns the status code spec.md §7 maps this error kind to.
func (e *Error) HTTPStatus() int {
	return httpStatus[e.Code]
}

// Reason returns the canonical ERR_* token for this error's code.
func (e *Error) Reason() string {
	return reasonToken[e.Code]
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func InvalidArgumentf(format string, args ...interface{}) *Error {
	return &Error{Code: InvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Code: NotFound, Message: fmt.Sprintf(format, args...)}
}

func RateLimitf(format string, args ...interface{}) *Error {
	return &Error{Code: RateLimit, Message: fmt.Sprintf(format, args...)}
}

func Externalf(format string, args ...interface{}) *Error {
	return &Error{Code: External, Message: fmt.Sprintf(format, args...)}
}

func Internalf(format string, args ...interface{}) *Error {
	return &Error{Code: Internal, Message: fmt.Sprintf(format, args...)}
}
