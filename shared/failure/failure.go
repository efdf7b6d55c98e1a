// Package failure carries an HTTP status code alongside an error message so the
// transport layer can answer without knowing which layer produced the error.
package failure

import (
	"errors"
	"net/http"
)

// Failure is an error with the HTTP status code it should be answered with.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var ForbiddenError = &Failure{Code: http.StatusForbidden, Message: "You don't have the required permissions"}

func (e *Failure) Error() string {
	return e.Message
}

func newFailure(code int, msg string) error {
	return &Failure{Code: code, Message: msg}
}

// BadRequest turns a decoding or parsing error into a 400. A nil error stays nil.
func BadRequest(err error) error {
	if err == nil {
		return nil
	}

	return newFailure(http.StatusBadRequest, err.Error())
}

func BadRequestFromString(msg string) error {
	return newFailure(http.StatusBadRequest, msg)
}

func Unauthorized(msg string) error {
	return newFailure(http.StatusUnauthorized, msg)
}

func Forbidden(msg string) error {
	return newFailure(http.StatusForbidden, msg)
}

func NotFound(msg string) error {
	return newFailure(http.StatusNotFound, msg)
}

// Conflict is returned when a request collides with existing state, such as a room
// that is already held or a guest phone number with an active booking.
func Conflict(msg string) error {
	return newFailure(http.StatusConflict, msg)
}

// UnprocessableEntity is for requests that are well formed but break a booking rule.
func UnprocessableEntity(msg string) error {
	return newFailure(http.StatusUnprocessableEntity, msg)
}

func PayloadTooLarge(msg string) error {
	return newFailure(http.StatusRequestEntityTooLarge, msg)
}

// GetCode returns the status code carried by err, or 500 when err is not a Failure.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}

// IsServerError reports whether err should be answered with a 5xx status.
func IsServerError(err error) bool {
	return err != nil && GetCode(err) >= http.StatusInternalServerError
}
