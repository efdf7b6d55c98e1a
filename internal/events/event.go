// Package events carries booking notifications from the lifecycle engine and the
// maintenance jobs to whoever delivers them. Emails and other channels subscribe here.
package events

import (
	"time"

	"hotel/internal/domains/booking/model"
	"hotel/shared/constant"
	"hotel/shared/timezone"

	"github.com/google/uuid"
)

type Type string

const (
	TypeBookingCreated     Type = "booking.created"
	TypeBookingChanged     Type = "booking.changed"
	TypeBookingCancelled   Type = "booking.cancelled"
	TypeCheckInReminderDue Type = "booking.check_in_reminder_due"
)

type Room struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Type   string `json:"type"`
}

// Snapshot is the booking as it was when the event fired.
type Snapshot struct {
	ID             string `json:"id"`
	GuestFirstName string `json:"guest_first_name"`
	GuestLastName  string `json:"guest_last_name"`
	PhoneNumber    string `json:"phone_number"`
	Email          string `json:"email,omitempty"`
	BranchID       string `json:"branch_id"`
	BranchName     string `json:"branch_name,omitempty"`
	Room           Room   `json:"room"`
	CheckInDate    string `json:"check_in_date"`
	CheckOutDate   string `json:"check_out_date"`
}

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Booking    Snapshot  `json:"booking"`
	OldRoom    *Room     `json:"old_room,omitempty"`
}

func New(eventType Type, booking model.BookingDetail) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: timezone.Now(),
		Booking:    SnapshotOf(booking),
	}
}

// WithOldRoom records the room a change moved the guest out of.
func (e Event) WithOldRoom(room Room) Event {
	e.OldRoom = &room

	return e
}

func SnapshotOf(b model.BookingDetail) Snapshot {
	snapshot := Snapshot{
		ID:             b.ID,
		GuestFirstName: b.GuestFirstName,
		GuestLastName:  b.GuestLastName,
		PhoneNumber:    b.PhoneNumber,
		BranchID:       b.BranchID,
		BranchName:     b.BranchName,
		Room:           Room{ID: b.RoomID, Number: b.RoomNumber, Type: b.RoomType},
		CheckInDate:    b.CheckInDate.Format(constant.DateOnlyFormat),
		CheckOutDate:   b.CheckOutDate.Format(constant.DateOnlyFormat),
	}

	if b.Email != nil {
		snapshot.Email = *b.Email
	}

	return snapshot
}
