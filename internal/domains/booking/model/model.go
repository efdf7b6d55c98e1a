package model

import (
	"net/http"
	"strings"
	"time"

	roomModel "hotel/internal/domains/room/model"
	"hotel/shared/failure"
	"hotel/shared/model"
	"hotel/shared/phone"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID                  = "id"
	FieldGuestFirstName      = "guest_first_name"
	FieldGuestLastName       = "guest_last_name"
	FieldDateOfBirth         = "date_of_birth"
	FieldGender              = "gender"
	FieldNationality         = "nationality"
	FieldPhoneNumber         = "phone_number"
	FieldEmail               = "email"
	FieldIDNumber            = "id_number"
	FieldBranchID            = "branch_id"
	FieldRoomID              = "room_id"
	FieldCheckInDate         = "check_in_date"
	FieldCheckOutDate        = "check_out_date"
	FieldCheckInReminderSent = "check_in_reminder_sent"
	FieldIsDeleted           = "is_deleted"
	FieldIDPhotoURL          = "id_photo_url"

	ConstraintPhoneKey    = "bookings_phone_number_key"
	ConstraintEmailKey    = "bookings_email_key"
	ConstraintIDNumberKey = "bookings_id_number_key"
	ConstraintGuestStay   = "bookings_guest_stay_key"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Cache prefixes for booking reads.
const (
	CacheGetBooking    = "booking:get"
	CacheGetAllBooking = "booking:gets"
)

var (
	ErrRoomNotFound    = roomModel.ErrRoomNotFound
	ErrRoomUnavailable = roomModel.ErrRoomUnavailable

	ErrBookingNotFound     = &failure.Failure{Code: http.StatusNotFound, Message: "booking not found"}
	ErrCredentialsMismatch = &failure.Failure{Code: http.StatusBadRequest, Message: "no booking with the credentials provided"}
	ErrSameRoom            = &failure.Failure{Code: http.StatusBadRequest, Message: "you're already booked in this room, please choose a different one"}
	ErrTooLateToChange     = &failure.Failure{Code: http.StatusUnprocessableEntity, Message: "booking cannot change within 24 hours of check-in"}
	ErrInvalidDateRange    = &failure.Failure{Code: http.StatusBadRequest, Message: "check-out date must be after check-in date"}
	ErrRoomOutsideBranch   = &failure.Failure{Code: http.StatusBadRequest, Message: "the selected room does not belong to the selected branch"}
	ErrGuestUnderage       = &failure.Failure{Code: http.StatusBadRequest, Message: "guest is under the minimum age for booking"}
	ErrInvalidPhone        = &failure.Failure{Code: http.StatusBadRequest, Message: "enter a valid phone number"}
)

var ConflictMessages = map[string]string{
	ConstraintPhoneKey:    "a booking with this phone number already exists",
	ConstraintEmailKey:    "a booking with this email already exists",
	ConstraintIDNumberKey: "a booking with this id number already exists",
	ConstraintGuestStay:   "this guest already booked the room for that check-in date",
}

type Booking struct {
	ID                  string    `db:"id"`
	GuestFirstName      string    `db:"guest_first_name"`
	GuestLastName       string    `db:"guest_last_name"`
	DateOfBirth         time.Time `db:"date_of_birth"`
	Gender              string    `db:"gender"`
	Nationality         string    `db:"nationality"`
	PhoneNumber         string    `db:"phone_number"`
	Email               *string   `db:"email"`
	IDNumber            *string   `db:"id_number"`
	IDPhotoURL          string    `db:"id_photo_url"`
	BranchID            string    `db:"branch_id"`
	RoomID              string    `db:"room_id"`
	CheckInDate         time.Time `db:"check_in_date"`
	CheckOutDate        time.Time `db:"check_out_date"`
	CheckInReminderSent bool      `db:"check_in_reminder_sent"`
	IsDeleted           bool      `db:"is_deleted"`
	model.Metadata
}

// Credentials are what a guest proves ownership of a booking with.
type Credentials struct {
	FirstName   string
	LastName    string
	PhoneNumber string
}

// Matches compares names case-insensitively and phone numbers after normalisation.
func (b Booking) Matches(c Credentials) bool {
	return strings.EqualFold(strings.TrimSpace(c.FirstName), b.GuestFirstName) &&
		strings.EqualFold(strings.TrimSpace(c.LastName), b.GuestLastName) &&
		phone.Normalize(c.PhoneNumber) == b.PhoneNumber
}

// BookingDetail is a booking joined with the branch and room it points to.
type BookingDetail struct {
	Booking
	BranchName string `db:"branch_name" table:"branches" column:"name"`
	BranchSlug string `db:"branch_slug" table:"branches" column:"slug"`
	RoomNumber int    `db:"room_number" table:"rooms"`
	RoomType   string `db:"room_type"   table:"rooms"`
}

func (BookingDetail) GetJoinQuery() string {
	return "JOIN branches ON branches.id = bookings.branch_id JOIN rooms ON rooms.id = bookings.room_id"
}

// Lookup finds a guest's bookings by name plus either an email or a phone number.
type Lookup struct {
	FirstName    string
	LastName     string
	EmailOrPhone string
}

// View selects which bookings a read sees. Expired and soft deleted bookings only
// show up in the history view.
type View string

const (
	ViewActive  View = "active"
	ViewHistory View = "history"
	ViewAll     View = "all"
)

func ParseView(value string) (View, bool) {
	switch View(strings.ToLower(value)) {
	case ViewActive, "":
		return ViewActive, true
	case ViewHistory:
		return ViewHistory, true
	case ViewAll:
		return ViewAll, true
	default:
		return "", false
	}
}
