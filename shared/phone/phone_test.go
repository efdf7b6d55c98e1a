package phone_test

import (
	"testing"

	"hotel/shared/phone"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "international prefix", input: "+44 20 7946 0958", want: "00442079460958"},
		{name: "parentheses and hyphens", input: "(123) 456-7890", want: "1234567890"},
		{name: "already normalized", input: "0012345678", want: "0012345678"},
		{name: "plus only replaced at start", input: " +1-202+555", want: "001202555"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, phone.Normalize(tt.input))
		})
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "+123 456 7890", want: true},
		{input: "(123) 456-7890", want: true},
		{input: "1234567", want: true},
		{input: "123456", want: false},
		{input: "12345a789", want: false},
		{input: "++1234567", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, phone.Valid(tt.input))
		})
	}
}

func TestIsEmail(t *testing.T) {
	assert.True(t, phone.IsEmail("jane@example.com"))
	assert.False(t, phone.IsEmail("+44 20 7946 0958"))
}
