package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Match them with errors.Is, the HTTP status travels in ErrorWithStatusCode.
var (
	ErrNotFound     = stderrors.New("not found")
	ErrValidation   = stderrors.New("validation failed")
	ErrUnauthorized = stderrors.New("unauthorized")
	ErrForbidden    = stderrors.New("forbidden")
	ErrConfig       = stderrors.New("server configuration error")
	ErrBanned       = stderrors.New("banned")

	// ErrBoardNotFound is also an ErrNotFound.
	ErrBoardNotFound = fmt.Errorf("board %w", ErrNotFound)
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
	Kind       error
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

func (e *ErrorWithStatusCode) Unwrap() error {
	return e.Kind
}

func NotFound(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusNotFound, Kind: ErrNotFound}
}

func BoardNotFound() error {
	return &ErrorWithStatusCode{Message: "Board not found", StatusCode: http.StatusNotFound, Kind: ErrBoardNotFound}
}

func Validation(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusBadRequest, Kind: ErrValidation}
}

func Unauthorized(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusUnauthorized, Kind: ErrUnauthorized}
}

func Forbidden(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusForbidden, Kind: ErrForbidden}
}

func Config(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusInternalServerError, Kind: ErrConfig}
}

func Banned(message string) error {
	return &ErrorWithStatusCode{Message: message, StatusCode: http.StatusForbidden, Kind: ErrBanned}
}

// StatusCode extracts the HTTP status carried by err, 500 when there is none.
func StatusCode(err error) int {
	var e *ErrorWithStatusCode
	if stderrors.As(err, &e) {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}
