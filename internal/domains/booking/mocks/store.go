package mocks

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/repository"
	roomModel "hotel/internal/domains/room/model"
	roomRepo "hotel/internal/domains/room/repository"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	"hotel/shared/phone"
	gRepo "hotel/shared/repository"

	"github.com/jmoiron/sqlx"
)

// Store keeps rooms and bookings in memory for tests. Transactions run one at a time
// and restore the previous state when they fail, which is how row locks and rollbacks
// behave for the engine.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	Rooms    map[string]roomModel.Room
	Bookings map[string]model.Booking
	Branches map[string]string
}

func NewStore() *Store {
	return &Store{
		Rooms:    map[string]roomModel.Room{},
		Bookings: map[string]model.Booking{},
		Branches: map[string]string{},
	}
}

func (s *Store) AddRoom(room roomModel.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Rooms[room.ID] = room
}

func (s *Store) AddBooking(booking model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Bookings[booking.ID] = booking
}

func (s *Store) Room(id string) roomModel.Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Rooms[id]
}

func (s *Store) Booking(id string) (model.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.Bookings[id]

	return booking, ok
}

// ActiveHolders counts the active bookings holding each room.
func (s *Store) ActiveHolders() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	holders := map[string]int{}

	for _, booking := range s.Bookings {
		if !booking.IsDeleted {
			holders[booking.RoomID]++
		}
	}

	return holders
}

func (s *Store) Transactor() gRepo.Transactor {
	return storeTx{s}
}

func (s *Store) BookingRepository() repository.Booking {
	return bookingStore{s}
}

func (s *Store) RoomRepository() roomRepo.Room {
	return roomStore{s}
}

type storeTx struct{ s *Store }

func (t storeTx) WithTx(ctx context.Context, fn gRepo.TxFunc) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	rooms, bookings := maps.Clone(t.s.Rooms), maps.Clone(t.s.Bookings)
	t.s.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		t.s.mu.Lock()
		t.s.Rooms, t.s.Bookings = rooms, bookings
		t.s.mu.Unlock()

		return err
	}

	return nil
}

type bookingStore struct{ s *Store }

func (b bookingStore) InsertTx(_ context.Context, _ *sqlx.Tx, booking model.Booking) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	for _, other := range b.s.Bookings {
		switch {
		case other.PhoneNumber == booking.PhoneNumber:
			return failure.Conflict(model.ConflictMessages[model.ConstraintPhoneKey])
		case sameOptional(other.Email, booking.Email):
			return failure.Conflict(model.ConflictMessages[model.ConstraintEmailKey])
		case sameOptional(other.IDNumber, booking.IDNumber):
			return failure.Conflict(model.ConflictMessages[model.ConstraintIDNumberKey])
		case other.GuestFirstName == booking.GuestFirstName && other.GuestLastName == booking.GuestLastName &&
			other.BranchID == booking.BranchID && other.RoomID == booking.RoomID && dateKey(other.CheckInDate) == dateKey(booking.CheckInDate):
			return failure.Conflict(model.ConflictMessages[model.ConstraintGuestStay])
		}
	}

	b.s.Bookings[booking.ID] = booking

	return nil
}

func (b bookingStore) LockTx(_ context.Context, _ *sqlx.Tx, filter gDto.FilterGroup) (model.Booking, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	for _, booking := range b.s.Bookings {
		if matchGroup(booking, filter) {
			return booking, nil
		}
	}

	return model.Booking{}, model.ErrBookingNotFound
}

func (b bookingStore) UpdateTx(_ context.Context, _ *sqlx.Tx, fields map[string]any, id string) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	booking, ok := b.s.Bookings[id]
	if !ok {
		return nil
	}

	for field, value := range fields {
		switch field {
		case model.FieldBranchID:
			booking.BranchID, _ = value.(string)
		case model.FieldRoomID:
			booking.RoomID, _ = value.(string)
		case model.FieldCheckInDate:
			booking.CheckInDate, _ = value.(time.Time)
		case model.FieldCheckOutDate:
			booking.CheckOutDate, _ = value.(time.Time)
		case model.FieldCheckInReminderSent:
			booking.CheckInReminderSent, _ = value.(bool)
		case model.FieldIsDeleted:
			booking.IsDeleted, _ = value.(bool)
		case constant.FieldModifiedAt:
			booking.ModifiedAt, _ = value.(time.Time)
		case constant.FieldModifiedBy:
			booking.ModifiedBy, _ = value.(string)
		}
	}

	b.s.Bookings[id] = booking

	return nil
}

func (b bookingStore) DeleteTx(_ context.Context, _ *sqlx.Tx, id string) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	delete(b.s.Bookings, id)

	return nil
}

func (b bookingStore) Get(_ context.Context, id string, view model.View) (model.BookingDetail, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	booking, ok := b.s.Bookings[id]
	if !ok || !inView(booking, view) {
		return model.BookingDetail{}, model.ErrBookingNotFound
	}

	return b.detail(booking), nil
}

func (b bookingStore) GetAll(_ context.Context, params gDto.QueryParams, view model.View, filter gDto.FilterGroup) ([]model.BookingDetail, error) {
	details := b.list(func(booking model.Booking) bool {
		return inView(booking, view) && matchGroup(booking, filter)
	})

	if params.Limit > 0 && len(details) > params.Limit {
		details = details[:params.Limit]
	}

	return details, nil
}

func (b bookingStore) Count(_ context.Context, view model.View, filter gDto.FilterGroup) (int, error) {
	return len(b.list(func(booking model.Booking) bool {
		return inView(booking, view) && matchGroup(booking, filter)
	})), nil
}

func (b bookingStore) FindGuest(_ context.Context, lookup model.Lookup, view model.View) ([]model.BookingDetail, error) {
	return b.list(func(booking model.Booking) bool {
		if !inView(booking, view) || !strings.EqualFold(booking.GuestFirstName, lookup.FirstName) || !strings.EqualFold(booking.GuestLastName, lookup.LastName) {
			return false
		}

		if phone.IsEmail(lookup.EmailOrPhone) {
			return booking.Email != nil && strings.EqualFold(*booking.Email, lookup.EmailOrPhone)
		}

		return booking.PhoneNumber == phone.Normalize(lookup.EmailOrPhone)
	}), nil
}

func (b bookingStore) ListExpired(_ context.Context, today time.Time, afterID string, limit int) ([]model.Booking, error) {
	details := b.page(afterID, limit, func(booking model.Booking) bool {
		return !booking.IsDeleted && dateKey(booking.CheckOutDate) < dateKey(today)
	})

	bookings := make([]model.Booking, len(details))
	for i, detail := range details {
		bookings[i] = detail.Booking
	}

	return bookings, nil
}

func (b bookingStore) MarkExpired(_ context.Context, id string, today time.Time) (bool, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	booking, ok := b.s.Bookings[id]
	if !ok || booking.IsDeleted || dateKey(booking.CheckOutDate) >= dateKey(today) {
		return false, nil
	}

	booking.IsDeleted = true
	b.s.Bookings[id] = booking

	return true, nil
}

func (b bookingStore) ListReminderDue(_ context.Context, from, to time.Time, afterID string, limit int) ([]model.BookingDetail, error) {
	return b.page(afterID, limit, func(booking model.Booking) bool {
		day := dateKey(booking.CheckInDate)

		return !booking.IsDeleted && !booking.CheckInReminderSent && day >= dateKey(from) && day <= dateKey(to)
	}), nil
}

func (b bookingStore) MarkReminderSent(_ context.Context, id string) (bool, error) {
	return b.swapReminderSent(id, false, true), nil
}

func (b bookingStore) ClearReminderSent(_ context.Context, id string) (bool, error) {
	return b.swapReminderSent(id, true, false), nil
}

func (b bookingStore) swapReminderSent(id string, from, to bool) bool {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	booking, ok := b.s.Bookings[id]
	if !ok || booking.CheckInReminderSent != from {
		return false
	}

	booking.CheckInReminderSent = to
	b.s.Bookings[id] = booking

	return true
}

func (b bookingStore) list(keep func(model.Booking) bool) []model.BookingDetail {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	details := []model.BookingDetail{}

	for _, booking := range b.s.Bookings {
		if keep(booking) {
			details = append(details, b.detail(booking))
		}
	}

	slices.SortFunc(details, func(x, y model.BookingDetail) int {
		return cmp.Or(x.CheckInDate.Compare(y.CheckInDate), cmp.Compare(x.ID, y.ID))
	})

	return details
}

func (b bookingStore) page(afterID string, limit int, keep func(model.Booking) bool) []model.BookingDetail {
	details := b.list(func(booking model.Booking) bool {
		return booking.ID > afterID && keep(booking)
	})

	slices.SortFunc(details, func(x, y model.BookingDetail) int {
		return cmp.Compare(x.ID, y.ID)
	})

	if limit > 0 && len(details) > limit {
		details = details[:limit]
	}

	return details
}

func (b bookingStore) detail(booking model.Booking) model.BookingDetail {
	room := b.s.Rooms[booking.RoomID]

	return model.BookingDetail{
		Booking:    booking,
		BranchName: b.s.Branches[booking.BranchID],
		RoomNumber: room.RoomNumber,
		RoomType:   room.RoomType,
	}
}

type roomStore struct{ s *Store }

func (r roomStore) Insert(_ context.Context, room roomModel.Room) error {
	r.s.AddRoom(room)

	return nil
}

func (r roomStore) Get(_ context.Context, filter gDto.FilterGroup, _ ...string) (roomModel.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.Rooms[filterID(filter)], nil
}

func (r roomStore) GetAll(_ context.Context, _ gDto.QueryParams, _ gDto.FilterGroup, _ ...string) ([]roomModel.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return slices.Collect(maps.Values(r.s.Rooms)), nil
}

func (r roomStore) Count(_ context.Context, _ gDto.FilterGroup) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return len(r.s.Rooms), nil
}

func (r roomStore) Update(_ context.Context, _ map[string]any, _ gDto.FilterGroup) error {
	return nil
}

func (r roomStore) DeleteCount(_ context.Context, filter gDto.FilterGroup) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id := filterID(filter)
	if _, ok := r.s.Rooms[id]; !ok {
		return 0, nil
	}

	delete(r.s.Rooms, id)

	return 1, nil
}

func (r roomStore) LockTx(_ context.Context, _ *sqlx.Tx, roomID string) (roomModel.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	room, ok := r.s.Rooms[roomID]
	if !ok {
		return room, roomModel.ErrRoomNotFound
	}

	return room, nil
}

func (r roomStore) IsAvailableTx(ctx context.Context, tx *sqlx.Tx, roomID string) (bool, error) {
	room, err := r.LockTx(ctx, tx, roomID)

	return room.IsAvailable, err
}

func (r roomStore) ReserveTx(_ context.Context, _ *sqlx.Tx, roomID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	room, ok := r.s.Rooms[roomID]
	if !ok {
		return roomModel.ErrRoomNotFound
	}

	if !room.IsAvailable {
		return roomModel.ErrRoomUnavailable
	}

	room.IsAvailable = false
	r.s.Rooms[roomID] = room

	return nil
}

func (r roomStore) ReleaseTx(_ context.Context, _ *sqlx.Tx, roomID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	room, ok := r.s.Rooms[roomID]
	if !ok {
		return roomModel.ErrRoomNotFound
	}

	room.IsAvailable = true
	r.s.Rooms[roomID] = room

	return nil
}

func inView(booking model.Booking, view model.View) bool {
	switch view {
	case model.ViewActive:
		return !booking.IsDeleted
	case model.ViewHistory:
		return booking.IsDeleted
	default:
		return true
	}
}

// matchGroup evaluates the subset of filters the booking repository builds.
func matchGroup(booking model.Booking, group gDto.FilterGroup) bool {
	if len(group.Filters) == 0 {
		return true
	}

	or := group.Operator == gDto.FilterGroupOperatorOr

	for _, item := range group.Filters {
		var ok bool

		switch f := item.(type) {
		case gDto.Filter:
			ok = matchFilter(booking, f)
		case gDto.FilterGroup:
			ok = matchGroup(booking, f)
		}

		if or && ok {
			return true
		}

		if !or && !ok {
			return false
		}
	}

	return !or
}

func matchFilter(booking model.Booking, f gDto.Filter) bool {
	var actual any

	switch f.Field {
	case model.FieldID:
		actual = booking.ID
	case model.FieldGuestFirstName:
		actual = booking.GuestFirstName
	case model.FieldGuestLastName:
		actual = booking.GuestLastName
	case model.FieldPhoneNumber:
		actual = booking.PhoneNumber
	case model.FieldBranchID:
		actual = booking.BranchID
	case model.FieldRoomID:
		actual = booking.RoomID
	case model.FieldIsDeleted:
		actual = booking.IsDeleted
	case model.FieldCheckInReminderSent:
		actual = booking.CheckInReminderSent
	default:
		return false
	}

	switch f.Operator {
	case gDto.FilterOperatorEq:
		return actual == f.Value
	case gDto.FilterOperatorEqFold:
		actualStr, _ := actual.(string)
		expected, _ := f.Value.(string)

		return strings.EqualFold(actualStr, expected)
	default:
		return false
	}
}

func filterID(group gDto.FilterGroup) string {
	for _, item := range group.Filters {
		if f, ok := item.(gDto.Filter); ok && f.Field == roomModel.FieldID {
			id, _ := f.Value.(string)

			return id
		}
	}

	return constant.Empty
}

func sameOptional(a, b *string) bool {
	return a != nil && b != nil && strings.EqualFold(*a, *b)
}

func dateKey(t time.Time) string {
	return t.Format(constant.DateOnlyFormat)
}
