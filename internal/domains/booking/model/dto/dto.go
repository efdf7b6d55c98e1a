package dto

import (
	"strings"
	"time"

	"hotel/internal/domains/booking/model"
	"hotel/shared"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	gModel "hotel/shared/model"
	"hotel/shared/phone"
	"hotel/shared/timezone"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	BranchID       string `json:"branch_id"        validate:"required,uuid"`
	RoomID         string `json:"room_id"          validate:"required,uuid"`
	GuestFirstName string `json:"guest_first_name" validate:"required,max=100"`
	GuestLastName  string `json:"guest_last_name"  validate:"required,max=100"`
	DateOfBirth    string `json:"date_of_birth"    validate:"required,date,adult" example:"1990-01-31"`
	Gender         string `json:"gender"           validate:"required,oneof=male female"`
	Nationality    string `json:"nationality"      validate:"required,max=100"`
	PhoneNumber    string `json:"phone_number"     validate:"required,phone"`
	Email          string `json:"email"            validate:"omitempty,email,max=254"`
	IDNumber       string `json:"id_number"        validate:"omitempty,max=50"`
	IDPhoto        string `json:"id_photo"         validate:"omitempty,datauri"`
	CheckInDate    string `json:"check_in_date"    validate:"required,date" example:"2025-06-01"`
	CheckOutDate   string `json:"check_out_date"   validate:"required,date" example:"2025-06-05"`
}

// ToModel parses the request dates and normalises the phone number. The booking
// is not checked against any business rule here.
func (c *CreateBookingRequest) ToModel(actor string) (model.Booking, error) {
	dob, err := time.Parse(constant.DateOnlyFormat, c.DateOfBirth)
	if err != nil {
		return model.Booking{}, err
	}

	checkIn, checkOut, err := parseStay(c.CheckInDate, c.CheckOutDate)
	if err != nil {
		return model.Booking{}, err
	}

	now := timezone.Now()

	return model.Booking{
		ID:             uuid.NewString(),
		GuestFirstName: strings.TrimSpace(c.GuestFirstName),
		GuestLastName:  strings.TrimSpace(c.GuestLastName),
		DateOfBirth:    dob,
		Gender:         c.Gender,
		Nationality:    c.Nationality,
		PhoneNumber:    phone.Normalize(c.PhoneNumber),
		Email:          optional(strings.ToLower(c.Email)),
		IDNumber:       optional(c.IDNumber),
		BranchID:       c.BranchID,
		RoomID:         c.RoomID,
		CheckInDate:    checkIn,
		CheckOutDate:   checkOut,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  actor,
			ModifiedBy: actor,
		},
	}, nil
}

// GuestCredentials identify the guest who owns the booking being changed.
type GuestCredentials struct {
	GuestFirstName string `json:"guest_first_name" validate:"required,max=100"`
	GuestLastName  string `json:"guest_last_name"  validate:"required,max=100"`
	PhoneNumber    string `json:"phone_number"     validate:"required,phone"`
}

func (g GuestCredentials) ToModel() model.Credentials {
	return model.Credentials{
		FirstName:   g.GuestFirstName,
		LastName:    g.GuestLastName,
		PhoneNumber: g.PhoneNumber,
	}
}

type ChangeBookingRequest struct {
	GuestCredentials
	BranchID     string `json:"branch_id"      validate:"required,uuid"`
	RoomID       string `json:"room_id"        validate:"required,uuid"`
	CheckInDate  string `json:"check_in_date"  validate:"required,date"`
	CheckOutDate string `json:"check_out_date" validate:"required,date"`
}

func (c *ChangeBookingRequest) Stay() (checkIn, checkOut time.Time, err error) {
	return parseStay(c.CheckInDate, c.CheckOutDate)
}

type ChangeRoomRequest struct {
	GuestCredentials
	RoomID string `json:"room_id" validate:"required,uuid"`
}

type CancelBookingRequest struct {
	GuestCredentials
}

type LookupBookingRequest struct {
	GuestFirstName string `json:"guest_first_name" validate:"required,max=100"`
	GuestLastName  string `json:"guest_last_name"  validate:"required,max=100"`
	EmailOrPhone   string `json:"email_or_phone"   validate:"required,max=254"`
}

func (l *LookupBookingRequest) ToModel() model.Lookup {
	return model.Lookup{
		FirstName:    strings.TrimSpace(l.GuestFirstName),
		LastName:     strings.TrimSpace(l.GuestLastName),
		EmailOrPhone: strings.TrimSpace(l.EmailOrPhone),
	}
}

type BranchRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

type RoomRef struct {
	ID     string `json:"id"`
	Number int    `json:"number,omitempty"`
	Type   string `json:"type,omitempty"`
}

type BookingResponse struct {
	ID                  string    `json:"id"`
	GuestFirstName      string    `json:"guest_first_name"`
	GuestLastName       string    `json:"guest_last_name"`
	DateOfBirth         string    `json:"date_of_birth"`
	Gender              string    `json:"gender"`
	Nationality         string    `json:"nationality"`
	PhoneNumber         string    `json:"phone_number"`
	Email               string    `json:"email,omitempty"`
	IDNumber            string    `json:"id_number,omitempty"`
	IDPhotoURL          string    `json:"id_photo_url,omitempty"`
	Branch              BranchRef `json:"branch"`
	Room                RoomRef   `json:"room"`
	CheckInDate         string    `json:"check_in_date"`
	CheckOutDate        string    `json:"check_out_date"`
	CheckInReminderSent bool      `json:"check_in_reminder_sent"`
	IsDeleted           bool      `json:"is_deleted"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(m model.Booking) {
	r.ID = m.ID
	r.GuestFirstName = m.GuestFirstName
	r.GuestLastName = m.GuestLastName
	r.DateOfBirth = m.DateOfBirth.Format(constant.DateOnlyFormat)
	r.Gender = m.Gender
	r.Nationality = m.Nationality
	r.PhoneNumber = m.PhoneNumber
	r.Email = deref(m.Email)
	r.IDNumber = deref(m.IDNumber)
	r.IDPhotoURL = m.IDPhotoURL
	r.Branch = BranchRef{ID: m.BranchID}
	r.Room = RoomRef{ID: m.RoomID}
	r.CheckInDate = m.CheckInDate.Format(constant.DateOnlyFormat)
	r.CheckOutDate = m.CheckOutDate.Format(constant.DateOnlyFormat)
	r.CheckInReminderSent = m.CheckInReminderSent
	r.IsDeleted = m.IsDeleted
	r.Metadata.FromModel(m.Metadata)
}

func (r *BookingResponse) FromDetail(m model.BookingDetail) {
	r.FromModel(m.Booking)
	r.Branch.Name = m.BranchName
	r.Branch.Slug = m.BranchSlug
	r.Room.Number = m.RoomNumber
	r.Room.Type = m.RoomType
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.BookingDetail, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, m := range models {
		r.Bookings[i].FromDetail(m)
	}
}

func parseStay(checkIn, checkOut string) (in, out time.Time, err error) {
	in, err = time.Parse(constant.DateOnlyFormat, checkIn)
	if err != nil {
		return in, out, err
	}

	out, err = time.Parse(constant.DateOnlyFormat, checkOut)

	return in, out, err
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == constant.Empty {
		return nil
	}

	return &value
}

func deref(value *string) string {
	if value == nil {
		return constant.Empty
	}

	return *value
}
