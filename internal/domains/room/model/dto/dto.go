package dto

import (
	"hotel/internal/domains/room/model"
	"hotel/shared"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	gModel "hotel/shared/model"
	"hotel/shared/timezone"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateRoomRequest struct {
	BranchID      string          `json:"branch_id"       validate:"required,uuid"`
	RoomNumber    int             `json:"room_number"     validate:"required,gte=1"`
	RoomType      string          `json:"room_type"       validate:"required,oneof=single double deluxe 'double deluxe' suite"`
	PricePerNight decimal.Decimal `json:"price_per_night" swaggertype:"string"`
	Image         string          `json:"image"           validate:"omitempty,datauri"`
}

// CheckPrice rejects negative prices, which struct tags cannot express for decimals.
func (c *CreateRoomRequest) CheckPrice() error {
	if c.PricePerNight.IsNegative() {
		return failure.BadRequestFromString("PricePerNight must be greater than or equal to 0")
	}

	return nil
}

// ToModel builds a room that starts out available.
func (c *CreateRoomRequest) ToModel(actor string) model.Room {
	now := timezone.Now()

	return model.Room{
		ID:            uuid.NewString(),
		BranchID:      c.BranchID,
		RoomNumber:    c.RoomNumber,
		RoomType:      c.RoomType,
		PricePerNight: c.PricePerNight.Round(2),
		IsAvailable:   true,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  actor,
			ModifiedBy: actor,
		},
	}
}

// UpdateRoomRequest has no availability field. Only bookings move it.
type UpdateRoomRequest struct {
	RoomNumber    int              `db:"room_number"     json:"room_number"     validate:"omitempty,gte=1"`
	RoomType      string           `db:"room_type"       json:"room_type"       validate:"omitempty,oneof=single double deluxe 'double deluxe' suite"`
	PricePerNight *decimal.Decimal `db:"price_per_night" json:"price_per_night" swaggertype:"string"`
	Image         string           `json:"image"           validate:"omitempty,datauri"`
}

func (u *UpdateRoomRequest) CheckPrice() error {
	if u.PricePerNight != nil && u.PricePerNight.IsNegative() {
		return failure.BadRequestFromString("PricePerNight must be greater than or equal to 0")
	}

	return nil
}

// RoomFilter narrows a branch's room listing.
type RoomFilter struct {
	RoomType    string
	IsAvailable *bool
	PriceMin    *decimal.Decimal
	PriceMax    *decimal.Decimal
}

func (f RoomFilter) ToFilterGroup(branchID string) gDto.FilterGroup {
	filters := []any{
		gDto.Filter{Field: model.FieldBranchID, Value: branchID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
	}

	if f.RoomType != "" {
		filters = append(filters, gDto.Filter{Field: model.FieldRoomType, Value: f.RoomType, Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	if f.IsAvailable != nil {
		filters = append(filters, gDto.Filter{Field: model.FieldIsAvailable, Value: *f.IsAvailable, Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	if f.PriceMin != nil {
		filters = append(filters, gDto.Filter{Field: model.FieldPricePerNight, ArgName: "price_min", Value: *f.PriceMin, Operator: gDto.FilterOperatorGreaterEq, Table: model.TableName})
	}

	if f.PriceMax != nil {
		filters = append(filters, gDto.Filter{Field: model.FieldPricePerNight, ArgName: "price_max", Value: *f.PriceMax, Operator: gDto.FilterOperatorLessEq, Table: model.TableName})
	}

	return gDto.FilterGroup{Filters: filters, Operator: gDto.FilterGroupOperatorAnd}
}

type RoomResponse struct {
	ID            string          `json:"id"`
	BranchID      string          `json:"branch_id"`
	RoomNumber    int             `json:"room_number"`
	RoomType      string          `json:"room_type"`
	PricePerNight decimal.Decimal `json:"price_per_night" swaggertype:"string"`
	IsAvailable   bool            `json:"is_available"`
	ImageURL      string          `json:"image_url,omitempty"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(m model.Room) {
	r.ID = m.ID
	r.BranchID = m.BranchID
	r.RoomNumber = m.RoomNumber
	r.RoomType = m.RoomType
	r.PricePerNight = m.PricePerNight
	r.IsAvailable = m.IsAvailable
	r.ImageURL = m.ImageURL
	r.Metadata.FromModel(m.Metadata)
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]RoomResponse, len(models))
	for i, m := range models {
		r.Rooms[i].FromModel(m)
	}
}
