package http

import (
	"fmt"
	"net/http"
)

// AppError is an error that knows its HTTP status. It is rendered as one
// entry of the envelope's data array.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// WithParam attaches a detail the client can act on, such as the id of a conflicting run.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError keeps the cause for logs. It is never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func BadRequestError(message string) *AppError {
	return newAppError("ERR_BAD_REQUEST", http.StatusBadRequest, message)
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

func NotFoundError(message string) *AppError {
	return newAppError("ERR_NOT_FOUND", http.StatusNotFound, message)
}

func ConflictError(message string) *AppError {
	return newAppError("ERR_CONFLICT", http.StatusConflict, message)
}

func TooManyRequestsError(message string) *AppError {
	return newAppError("ERR_RATE_LIMITED", http.StatusTooManyRequests, message)
}

func InternalError(message string) *AppError {
	return newAppError("ERR_INTERNAL", http.StatusInternalServerError, message)
}

// BadGatewayError reports a failed or malformed upstream response.
func BadGatewayError(message string) *AppError {
	return newAppError("ERR_UPSTREAM", http.StatusBadGateway, message)
}

func ServiceUnavailableError(message string) *AppError {
	return newAppError("ERR_UNAVAILABLE", http.StatusServiceUnavailable, message)
}

func GatewayTimeoutError(message string) *AppError {
	return newAppError("ERR_UPSTREAM_TIMEOUT", http.StatusGatewayTimeout, message)
}
