package model

import (
	"net/http"
	"slices"

	"hotel/shared/failure"
	"hotel/shared/model"

	"github.com/shopspring/decimal"
)

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID            = "id"
	FieldBranchID      = "branch_id"
	FieldRoomNumber    = "room_number"
	FieldRoomType      = "room_type"
	FieldPricePerNight = "price_per_night"
	FieldIsAvailable   = "is_available"
	FieldImageURL      = "image_url"

	ConstraintBranchNumberType = "rooms_branch_id_room_number_room_type_key"
)

const (
	TypeSingle       = "single"
	TypeDouble       = "double"
	TypeDeluxe       = "deluxe"
	TypeDoubleDeluxe = "double deluxe"
	TypeSuite        = "suite"
)

var Types = []string{TypeSingle, TypeDouble, TypeDeluxe, TypeDoubleDeluxe, TypeSuite}

var (
	ErrRoomNotFound    = &failure.Failure{Code: http.StatusNotFound, Message: "room not found"}
	ErrRoomUnavailable = &failure.Failure{Code: http.StatusConflict, Message: "the selected room is already booked or unavailable"}
)

var ConflictMessages = map[string]string{
	ConstraintBranchNumberType: "this branch already has a room with that number and type",
}

type Room struct {
	ID            string          `db:"id"`
	BranchID      string          `db:"branch_id"`
	RoomNumber    int             `db:"room_number"`
	RoomType      string          `db:"room_type"`
	PricePerNight decimal.Decimal `db:"price_per_night"`
	IsAvailable   bool            `db:"is_available"`
	ImageURL      string          `db:"image_url"`
	model.Metadata
}

func ValidType(roomType string) bool {
	return slices.Contains(Types, roomType)
}

// Cache prefixes shared with the booking engine, which invalidates them on every
// availability flip.
const (
	CacheGetRoom    = "room:get"
	CacheGetAllRoom = "room:gets"
)
