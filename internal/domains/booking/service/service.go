package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Booking=MockBookingService

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"hotel/config"
	"hotel/infras/otel"
	"hotel/infras/s3"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/model/dto"
	"hotel/internal/domains/booking/repository"
	roomModel "hotel/internal/domains/room/model"
	roomRepo "hotel/internal/domains/room/repository"
	"hotel/internal/events"
	"hotel/shared"
	"hotel/shared/cache"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	"hotel/shared/phone"
	gRepo "hotel/shared/repository"
	"hotel/shared/timezone"
	"hotel/shared/upload"
	"hotel/shared/validator"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const defaultChangeCutoff = 24 * time.Hour

var sortableFields = map[string]string{
	model.FieldCheckInDate:   model.TableName + "." + model.FieldCheckInDate,
	model.FieldCheckOutDate:  model.TableName + "." + model.FieldCheckOutDate,
	model.FieldGuestLastName: model.TableName + "." + model.FieldGuestLastName,
	constant.FieldCreatedAt:  model.TableName + "." + constant.FieldCreatedAt,
	constant.FieldModifiedAt: model.TableName + "." + constant.FieldModifiedAt,
}

// Booking is the booking lifecycle engine. Every mutation runs in one transaction
// that also flips the availability of the rooms involved, so a room is unavailable
// exactly while an active booking holds it.
type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	ChangeRoomAndDates(ctx context.Context, id string, req dto.ChangeBookingRequest) (dto.BookingResponse, error)
	ChangeRoomOnly(ctx context.Context, id string, req dto.ChangeRoomRequest) (dto.BookingResponse, error)
	Cancel(ctx context.Context, id, branchID string) error
	CancelForGuest(ctx context.Context, req dto.CancelBookingRequest) error

	Get(ctx context.Context, id string, view model.View) (dto.BookingResponse, error)
	Lookup(ctx context.Context, req dto.LookupBookingRequest, view model.View) ([]dto.BookingResponse, error)
	ListByBranch(ctx context.Context, branchID string, view model.View, req gDto.QueryParams) (dto.GetBookingsResponse, error)
}

type Option func(*serviceImpl)

// WithClock replaces the wall clock used for the age check and the change cutoff.
func WithClock(now func() time.Time) Option {
	return func(s *serviceImpl) {
		s.now = now
	}
}

type serviceImpl struct {
	repo       repository.Booking
	roomRepo   roomRepo.Room
	tx         gRepo.Transactor
	dispatcher events.Dispatcher
	store      s3.S3
	cfg        *config.Config
	cache      cache.RedisCache
	otel       otel.Otel
	now        func() time.Time
}

func New(
	repo repository.Booking,
	roomRepo roomRepo.Room,
	tx gRepo.Transactor,
	dispatcher events.Dispatcher,
	store s3.S3,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
	opts ...Option,
) Booking {
	s := &serviceImpl{
		repo:       repo,
		roomRepo:   roomRepo,
		tx:         tx,
		dispatcher: dispatcher,
		store:      store,
		cfg:        cfg,
		cache:      cache,
		otel:       otel,
		now:        timezone.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)

	booking, err := req.ToModel(actor)
	if err != nil {
		return res, failure.BadRequest(err)
	}

	if !booking.CheckInDate.Before(booking.CheckOutDate) {
		return res, model.ErrInvalidDateRange
	}

	if !validator.IsAdult(booking.DateOfBirth, s.now(), s.minimumAge()) {
		return res, model.ErrGuestUnderage
	}

	if !phone.Valid(req.PhoneNumber) {
		return res, model.ErrInvalidPhone
	}

	if req.IDPhoto != constant.Empty {
		booking.IDPhotoURL, err = upload.Image(ctx, s.store, model.EntityName, req.IDPhoto, s.cfg.Upload.MaxImageBytes)
		if err != nil {
			return res, err
		}
	}

	var room roomModel.Room

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		room, err = s.roomRepo.LockTx(ctx, tx, booking.RoomID)
		if err != nil {
			return err
		}

		if room.BranchID != booking.BranchID {
			return model.ErrRoomOutsideBranch
		}

		if !room.IsAvailable {
			return model.ErrRoomUnavailable
		}

		if err := s.repo.InsertTx(ctx, tx, booking); err != nil {
			return err
		}

		return s.roomRepo.ReserveTx(ctx, tx, room.ID)
	})
	if err != nil {
		log.Error().Err(err).Str("roomID", req.RoomID).Str("branchID", req.BranchID).Msg("failed to create booking")
		upload.Discard(context.WithoutCancel(ctx), s.store, model.EntityName, booking.IDPhotoURL)

		return res, err
	}

	detail := withRoom(booking, room)

	s.publish(ctx, events.New(events.TypeBookingCreated, detail))

	go s.invalidate(context.WithoutCancel(ctx), booking.ID, room.ID)

	res.FromDetail(detail)

	return res, nil
}

// ChangeRoomAndDates moves a booking to another room, possibly in another branch,
// and new dates. The checks run in a fixed order: credentials, same room, room
// availability, change cutoff, date range.
func (s *serviceImpl) ChangeRoomAndDates(ctx context.Context, id string, req dto.ChangeBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.ChangeRoomAndDates")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	checkIn, checkOut, err := req.Stay()
	if err != nil {
		return res, failure.BadRequest(err)
	}

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)
	now := s.now()

	var (
		booking          model.Booking
		oldRoom, newRoom roomModel.Room
	)

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		booking, err = s.lockOwned(ctx, tx, id, req.GuestCredentials.ToModel())
		if err != nil {
			return err
		}

		oldRoom, newRoom, err = s.lockPair(ctx, tx, booking.RoomID, req.RoomID)
		if err != nil {
			return err
		}

		if newRoom.ID == oldRoom.ID || (newRoom.BranchID == oldRoom.BranchID && newRoom.RoomNumber == oldRoom.RoomNumber) {
			return model.ErrSameRoom
		}

		if !newRoom.IsAvailable {
			return model.ErrRoomUnavailable
		}

		if s.tooLateToChange(booking.CheckInDate, now) {
			return model.ErrTooLateToChange
		}

		if !checkIn.Before(checkOut) {
			return model.ErrInvalidDateRange
		}

		if newRoom.BranchID != req.BranchID {
			return model.ErrRoomOutsideBranch
		}

		fields := map[string]any{
			model.FieldBranchID:      req.BranchID,
			model.FieldRoomID:        newRoom.ID,
			model.FieldCheckInDate:   checkIn,
			model.FieldCheckOutDate:  checkOut,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: actor,
		}

		// A reminder sent for the old date says nothing about the new one.
		if !timezone.SameDate(checkIn, booking.CheckInDate) {
			fields[model.FieldCheckInReminderSent] = false
			booking.CheckInReminderSent = false
		}

		if err := s.swapRooms(ctx, tx, oldRoom.ID, newRoom.ID); err != nil {
			return err
		}

		if err := s.repo.UpdateTx(ctx, tx, fields, booking.ID); err != nil {
			return err
		}

		booking.BranchID, booking.RoomID = req.BranchID, newRoom.ID
		booking.CheckInDate, booking.CheckOutDate = checkIn, checkOut
		booking.ModifiedAt, booking.ModifiedBy = now, actor

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("bookingID", id).Str("roomID", req.RoomID).Msg("failed to change booking")

		return res, err
	}

	detail := withRoom(booking, newRoom)

	s.publish(ctx, events.New(events.TypeBookingChanged, detail).WithOldRoom(roomRef(oldRoom)))

	go s.invalidate(context.WithoutCancel(ctx), booking.ID, oldRoom.ID, newRoom.ID)

	res.FromDetail(detail)

	return res, nil
}

// ChangeRoomOnly swaps the booking to another room of the same branch, keeping its dates.
func (s *serviceImpl) ChangeRoomOnly(ctx context.Context, id string, req dto.ChangeRoomRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.ChangeRoomOnly")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)
	now := s.now()

	var (
		booking          model.Booking
		oldRoom, newRoom roomModel.Room
	)

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		booking, err = s.lockOwned(ctx, tx, id, req.GuestCredentials.ToModel())
		if err != nil {
			return err
		}

		oldRoom, newRoom, err = s.lockPair(ctx, tx, booking.RoomID, req.RoomID)
		if err != nil {
			return err
		}

		if newRoom.BranchID != booking.BranchID {
			return model.ErrRoomOutsideBranch
		}

		if newRoom.ID == oldRoom.ID || newRoom.RoomNumber == oldRoom.RoomNumber {
			return model.ErrSameRoom
		}

		if !newRoom.IsAvailable {
			return model.ErrRoomUnavailable
		}

		if err := s.swapRooms(ctx, tx, oldRoom.ID, newRoom.ID); err != nil {
			return err
		}

		fields := map[string]any{
			model.FieldRoomID:        newRoom.ID,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: actor,
		}

		if err := s.repo.UpdateTx(ctx, tx, fields, booking.ID); err != nil {
			return err
		}

		booking.RoomID = newRoom.ID
		booking.ModifiedAt, booking.ModifiedBy = now, actor

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("bookingID", id).Str("roomID", req.RoomID).Msg("failed to change booking room")

		return res, err
	}

	detail := withRoom(booking, newRoom)

	s.publish(ctx, events.New(events.TypeBookingChanged, detail).WithOldRoom(roomRef(oldRoom)))

	go s.invalidate(context.WithoutCancel(ctx), booking.ID, oldRoom.ID, newRoom.ID)

	res.FromDetail(detail)

	return res, nil
}

// Cancel looks the booking up among all bookings, expired ones included, frees its
// room and deletes it. With branchID set, the booking is only found while it belongs
// to that branch at the moment it is locked.
func (s *serviceImpl) Cancel(ctx context.Context, id, branchID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Cancel")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter := repository.ByID(id)
	if branchID != constant.Empty {
		filter = repository.InBranch(id, branchID)
	}

	return s.cancel(ctx, filter, model.ErrBookingNotFound)
}

// CancelForGuest cancels the active booking matching the guest's credentials.
func (s *serviceImpl) CancelForGuest(ctx context.Context, req dto.CancelBookingRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.CancelForGuest")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return s.cancel(ctx, repository.ByCredentials(req.GuestCredentials.ToModel()), model.ErrCredentialsMismatch)
}

func (s *serviceImpl) cancel(ctx context.Context, filter gDto.FilterGroup, notFound error) error {
	var (
		booking model.Booking
		room    roomModel.Room
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error

		booking, err = s.repo.LockTx(ctx, tx, filter)
		if errors.Is(err, model.ErrBookingNotFound) {
			return notFound
		}

		if err != nil {
			return err
		}

		room, err = s.roomRepo.LockTx(ctx, tx, booking.RoomID)
		if err != nil {
			return err
		}

		if err := s.roomRepo.ReleaseTx(ctx, tx, room.ID); err != nil {
			return err
		}

		return s.repo.DeleteTx(ctx, tx, booking.ID)
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to cancel booking")

		return err
	}

	s.publish(ctx, events.New(events.TypeBookingCancelled, withRoom(booking, room)))

	upload.Discard(context.WithoutCancel(ctx), s.store, model.EntityName, booking.IDPhotoURL)

	go s.invalidate(context.WithoutCancel(ctx), booking.ID, room.ID)

	return nil
}

func (s *serviceImpl) Get(ctx context.Context, id string, view model.View) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(model.CacheGetBooking, id, string(view))

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		return res, nil
	}

	detail, err := s.repo.Get(ctx, id, view)
	if err != nil {
		return res, err
	}

	res.FromDetail(detail)

	go func() {
		if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

// Lookup finds a guest's own bookings. Results are never cached.
func (s *serviceImpl) Lookup(ctx context.Context, req dto.LookupBookingRequest, view model.View) (res []dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Lookup")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	details, err := s.repo.FindGuest(ctx, req.ToModel(), view)
	if err != nil {
		return nil, err
	}

	if len(details) == 0 {
		return nil, failure.NotFound("no booking found with the provided details")
	}

	res = make([]dto.BookingResponse, len(details))
	for i, detail := range details {
		res[i].FromDetail(detail)
	}

	return res, nil
}

func (s *serviceImpl) ListByBranch(ctx context.Context, branchID string, view model.View, req gDto.QueryParams) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.ListByBranch")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if column, ok := sortableFields[req.SortBy]; ok {
		req.SortBy = column
	} else {
		req.SortBy, req.SortDir = sortableFields[model.FieldCheckInDate], gDto.SortDirAsc
	}

	if req.SortDir == constant.Empty {
		req.SortDir = gDto.SortDirAsc
	}

	filter := shared.FilterByField(model.FieldBranchID, branchID, model.TableName)
	cacheKey := shared.BuildCacheKeyWithQuery(shared.BuildCacheKey(model.CacheGetAllBooking, string(view)), req, filter)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.repo.Count(ctx, view, filter)
	if err != nil {
		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	details, err := s.repo.GetAll(ctx, req, view, filter)
	if err != nil {
		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(details, total, req.Limit)

	go func() {
		if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

// lockOwned locks the booking and checks that it is active and owned by the guest.
func (s *serviceImpl) lockOwned(ctx context.Context, tx *sqlx.Tx, id string, credentials model.Credentials) (model.Booking, error) {
	booking, err := s.repo.LockTx(ctx, tx, repository.ByID(id))
	if err != nil {
		return booking, err
	}

	if booking.IsDeleted || !booking.Matches(credentials) {
		return booking, model.ErrCredentialsMismatch
	}

	return booking, nil
}

// lockPair locks both rooms in id order so two changes crossing the same rooms
// cannot deadlock.
func (s *serviceImpl) lockPair(ctx context.Context, tx *sqlx.Tx, oldID, newID string) (oldRoom, newRoom roomModel.Room, err error) {
	ids := []string{oldID, newID}
	slices.Sort(ids)

	rooms := make(map[string]roomModel.Room, len(ids))

	for _, id := range slices.Compact(ids) {
		room, err := s.roomRepo.LockTx(ctx, tx, id)
		if err != nil {
			return oldRoom, newRoom, err
		}

		rooms[id] = room
	}

	return rooms[oldID], rooms[newID], nil
}

func (s *serviceImpl) swapRooms(ctx context.Context, tx *sqlx.Tx, oldID, newID string) error {
	if err := s.roomRepo.ReleaseTx(ctx, tx, oldID); err != nil {
		return err
	}

	return s.roomRepo.ReserveTx(ctx, tx, newID)
}

// tooLateToChange reports whether now is past the check-in instant minus the cutoff.
func (s *serviceImpl) tooLateToChange(checkInDate, now time.Time) bool {
	cutoff := time.Duration(s.cfg.Booking.ChangeCutoffHours) * time.Hour
	if cutoff <= 0 {
		cutoff = defaultChangeCutoff
	}

	checkIn := timezone.At(checkInDate, s.cfg.Booking.CheckInHour)

	return now.After(checkIn.Add(-cutoff))
}

func (s *serviceImpl) minimumAge() int {
	if s.cfg.Booking.MinimumGuestAge > 0 {
		return s.cfg.Booking.MinimumGuestAge
	}

	return constant.DefaultMinimumGuestAge
}

// publish hands the event over after commit. A full queue costs a notification,
// never the booking.
func (s *serviceImpl) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("eventType", string(event.Type)).Str("bookingID", event.Booking.ID).Msg("failed to publish booking event")
	}
}

func (s *serviceImpl) invalidate(ctx context.Context, bookingID string, roomIDs ...string) {
	shared.InvalidateCaches(ctx, s.cache, shared.BuildCacheKey(model.CacheGetBooking, bookingID))
	shared.InvalidateCaches(ctx, s.cache, model.CacheGetAllBooking)

	for _, roomID := range roomIDs {
		if err := s.cache.Delete(ctx, shared.BuildCacheKey(roomModel.CacheGetRoom, roomID)); err != nil {
			log.Error().Err(err).Str("roomID", roomID).Msg("failed to delete room cache")
		}
	}

	shared.InvalidateCaches(ctx, s.cache, roomModel.CacheGetAllRoom)
}

func withRoom(booking model.Booking, room roomModel.Room) model.BookingDetail {
	return model.BookingDetail{
		Booking:    booking,
		RoomNumber: room.RoomNumber,
		RoomType:   room.RoomType,
	}
}

func roomRef(room roomModel.Room) events.Room {
	return events.Room{ID: room.ID, Number: room.RoomNumber, Type: room.RoomType}
}
