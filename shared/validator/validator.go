package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"hotel/config"
	"hotel/shared/constant"
	"hotel/shared/failure"
	"hotel/shared/phone"
	"hotel/shared/timezone"

	val "github.com/go-playground/validator/v10"
)

var (
	validate        *val.Validate
	minimumGuestAge int
)

func registerPhoneValidation(field val.FieldLevel) bool {
	str, ok := field.Field().Interface().(string)
	if !ok {
		return false
	}

	return phone.Valid(str)
}

func registerDateValidation(field val.FieldLevel) bool {
	str, ok := field.Field().Interface().(string)
	if !ok {
		return false
	}

	_, err := time.Parse(constant.DateOnlyFormat, str)

	return err == nil
}

func registerAdultValidation(field val.FieldLevel) bool {
	var dob time.Time

	switch v := field.Field().Interface().(type) {
	case time.Time:
		dob = v
	case string:
		parsed, err := time.Parse(constant.DateOnlyFormat, v)
		if err != nil {
			return false
		}

		dob = parsed
	default:
		return false
	}

	return IsAdult(dob, timezone.Now(), minimumGuestAge)
}

// jsonFieldName reports fields by the name clients send them under.
func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return constant.Empty
	}

	return name
}

func init() {
	cfg := config.Get()

	minimumGuestAge = cfg.Booking.MinimumGuestAge
	if minimumGuestAge <= 0 {
		minimumGuestAge = constant.DefaultMinimumGuestAge
	}

	validate = val.New(val.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	err := validate.RegisterValidation("empty", func(fl val.FieldLevel) bool {
		empty := fl.Field().IsZero()

		return empty
	})
	if err != nil {
		panic(err)
	}

	err = validate.RegisterValidation("phone", registerPhoneValidation)
	if err != nil {
		panic(err)
	}

	err = validate.RegisterValidation("date", registerDateValidation)
	if err != nil {
		panic(err)
	}

	err = validate.RegisterValidation("adult", registerAdultValidation)
	if err != nil {
		panic(err)
	}
}

// AgeAt returns the age in whole years of someone born on dob at the given instant.
func AgeAt(dob, at time.Time) int {
	age := at.Year() - dob.Year()

	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		age--
	}

	return age
}

// IsAdult reports whether someone born on dob is at least minAge years old at the given instant.
func IsAdult(dob, at time.Time, minAge int) bool {
	return AgeAt(dob, at) >= minAge
}

// MinimumGuestAge is the configured age a guest must reach to book.
func MinimumGuestAge() int {
	return minimumGuestAge
}

// Validate reads from the given io.Reader into the given struct, and then performs validation
// on the struct using the validator package. If the struct is invalid according to the
// validation rules, an error is returned. Otherwise, nil is returned.
// https://github.com/go-playground/validator
func Validate[T any](r io.Reader, data *T) error {
	decoder := json.NewDecoder(r)
	err := decoder.Decode(data)

	if err != nil {
		return failure.BadRequest(fmt.Errorf("failed to decode request body: %w", err)) //nolint:wrapcheck
	}

	return ValidateStruct(data)
}

func ValidateStruct[T any](data *T) error {
	err := validate.Struct(data)

	if err != nil {
		msg := message(err, constant.Empty)

		return failure.BadRequestFromString(msg) //nolint:wrapcheck
	}

	return nil
}

// ValidateVar checks a single value, such as a query parameter, reporting it as name.
func ValidateVar(name string, value any, tag string) error {
	err := validate.Var(value, tag)

	if err != nil {
		msg := message(err, name)

		return failure.BadRequestFromString(msg) //nolint:wrapcheck
	}

	return nil
}
