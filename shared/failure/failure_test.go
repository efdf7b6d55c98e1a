package failure_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"hotel/shared/failure"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{name: "bad request", err: failure.BadRequest(errors.New("bad body")), code: http.StatusBadRequest, msg: "bad body"},
		{name: "bad request from string", err: failure.BadRequestFromString("check-out must follow check-in"), code: http.StatusBadRequest, msg: "check-out must follow check-in"},
		{name: "unauthorized", err: failure.Unauthorized("missing token"), code: http.StatusUnauthorized, msg: "missing token"},
		{name: "forbidden", err: failure.Forbidden("other branch"), code: http.StatusForbidden, msg: "other branch"},
		{name: "not found", err: failure.NotFound("booking not found"), code: http.StatusNotFound, msg: "booking not found"},
		{name: "conflict", err: failure.Conflict("phone number already booked"), code: http.StatusConflict, msg: "phone number already booked"},
		{name: "unprocessable", err: failure.UnprocessableEntity("too late"), code: http.StatusUnprocessableEntity, msg: "too late"},
		{name: "payload too large", err: failure.PayloadTooLarge("image too large"), code: http.StatusRequestEntityTooLarge, msg: "image too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, failure.GetCode(tt.err))
			assert.Equal(t, tt.msg, tt.err.Error())
		})
	}
}

func TestNilPassthrough(t *testing.T) {
	assert.NoError(t, failure.BadRequest(nil))
}

func TestGetCode(t *testing.T) {
	wrapped := fmt.Errorf("reserving room: %w", failure.Conflict("room taken"))

	assert.Equal(t, http.StatusConflict, failure.GetCode(wrapped))
	assert.Equal(t, http.StatusInternalServerError, failure.GetCode(errors.New("plain")))
	assert.Equal(t, http.StatusForbidden, failure.GetCode(failure.ForbiddenError))
}

func TestIsServerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("connection reset"), want: true},
		{name: "wrapped plain error", err: fmt.Errorf("listing rooms: %w", errors.New("timeout")), want: true},
		{name: "client failure", err: failure.NotFound("room not found"), want: false},
		{name: "wrapped client failure", err: fmt.Errorf("cancel: %w", failure.Conflict("already cancelled")), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failure.IsServerError(tt.err))
		})
	}
}
