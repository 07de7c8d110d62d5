package models

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies a class of pipeline failure.
type ErrorCode string

const (
	ErrorValidation        ErrorCode = "VALIDATION_ERROR"
	ErrorUpstreamAuth      ErrorCode = "UPSTREAM_AUTH_ERROR"
	ErrorUpstreamRateLimit ErrorCode = "UPSTREAM_RATE_LIMIT"
	ErrorUpstreamTransient ErrorCode = "UPSTREAM_TRANSIENT"
	ErrorUpstreamConfig    ErrorCode = "UPSTREAM_CONFIG_ERROR"
	ErrorParse             ErrorCode = "PARSE_ERROR"
	ErrorElementNotFound   ErrorCode = "ELEMENT_NOT_FOUND"
	ErrorMessagingTimeout  ErrorCode = "MESSAGING_TIMEOUT"
	ErrorRateLimited       ErrorCode = "RATE_LIMITED"
	ErrorInternal          ErrorCode = "INTERNAL_ERROR"
)

// Error is a structured pipeline error. Two Errors match under errors.Is
// when their codes are equal.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Status    int       `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrValidation        = &Error{Code: ErrorValidation}
	ErrUpstreamAuth      = &Error{Code: ErrorUpstreamAuth}
	ErrUpstreamRateLimit = &Error{Code: ErrorUpstreamRateLimit}
	ErrUpstreamTransient = &Error{Code: ErrorUpstreamTransient}
	ErrUpstreamConfig    = &Error{Code: ErrorUpstreamConfig}
	ErrParse             = &Error{Code: ErrorParse}
	ErrElementNotFound   = &Error{Code: ErrorElementNotFound}
	ErrMessagingTimeout  = &Error{Code: ErrorMessagingTimeout}
)

func newError(code ErrorCode, status int, retryable bool, msg string, cause error) *Error {
	e := &Error{
		Code:      code,
		Message:   msg,
		Retryable: retryable,
		Status:    status,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewValidationError rejects a command before classification.
func NewValidationError(format string, args ...any) *Error {
	return newError(ErrorValidation, http.StatusBadRequest, false, fmt.Sprintf(format, args...), nil)
}

// NewUpstreamAuthError signals a deployment defect: the model rejected our credential.
func NewUpstreamAuthError(cause error) *Error {
	return newError(ErrorUpstreamAuth, http.StatusBadGateway, false, "model provider rejected credentials", cause)
}

// NewUpstreamRateLimitError is surfaced so the caller may resubmit later.
func NewUpstreamRateLimitError(cause error) *Error {
	return newError(ErrorUpstreamRateLimit, http.StatusTooManyRequests, true, "model provider rate limit exceeded", cause)
}

func NewUpstreamTransientError(cause error) *Error {
	return newError(ErrorUpstreamTransient, http.StatusServiceUnavailable, true, "model provider unavailable", cause)
}

func NewUpstreamConfigError(cause error) *Error {
	return newError(ErrorUpstreamConfig, http.StatusBadGateway, false, "model provider not usable and no fallback available", cause)
}

func NewParseError(cause error) *Error {
	return newError(ErrorParse, http.StatusBadGateway, false, "model reply could not be parsed", cause)
}

// NewElementNotFoundError names what the executor was looking for.
func NewElementNotFoundError(what string) *Error {
	return newError(ErrorElementNotFound, http.StatusNotFound, false, "no "+what+" found on page", nil)
}

func NewMessagingTimeoutError(after time.Duration) *Error {
	return newError(ErrorMessagingTimeout, http.StatusGatewayTimeout, true,
		fmt.Sprintf("no reply from page context within %s", after), nil)
}

// HTTPStatus maps err onto a response status. Only the three hard
// failure classes have distinguishable statuses.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamAuth):
		return http.StatusBadGateway
	case errors.Is(err, ErrUpstreamRateLimit):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the code carried by err, or INTERNAL_ERROR.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrorInternal
}

// Body builds the JSON envelope for err.
func Body(err error) ErrorBody {
	msg := err.Error()
	var e *Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	return ErrorBody{Success: false, Error: ErrorDetail{Code: Code(err), Message: msg}}
}
