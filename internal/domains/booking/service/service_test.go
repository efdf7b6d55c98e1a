package service_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"hotel/config"
	otelMocks "hotel/infras/otel/mocks"
	"hotel/infras/s3"
	s3Mocks "hotel/infras/s3/mocks"
	bookingMocks "hotel/internal/domains/booking/mocks"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/model/dto"
	"hotel/internal/domains/booking/service"
	roomModel "hotel/internal/domains/room/model"
	"hotel/internal/events"
	cacheMocks "hotel/shared/cache/mocks"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

const (
	downtown = "branch-downtown"
	uptown   = "branch-uptown"

	room101      = "room-101"
	room101Suite = "room-101-suite"
	room102      = "room-102"
	room201      = "room-201"

	bookingB = "booking-b"

	idPhoto    = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="
	idPhotoURL = "https://cdn.example.com/booking/id.png"
)

var errCacheMiss = fmt.Errorf("failed to get cache value: %w", context.Canceled)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.events = append(r.events, event)

	return nil
}

func (r *recorder) Close(_ context.Context) error {
	return nil
}

func (r *recorder) published() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]events.Event(nil), r.events...)
}

func day(value string) time.Time {
	t, _ := time.Parse(constant.DateOnlyFormat, value)

	return t
}

func clock(value string) func() time.Time {
	t, _ := time.Parse(time.RFC3339, value)

	return func() time.Time { return t }
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Booking.CheckInHour = 12
	cfg.Booking.ChangeCutoffHours = 24
	cfg.Booking.MinimumGuestAge = 18
	cfg.Upload.MaxImageBytes = 1024

	return cfg
}

func seededStore() *bookingMocks.Store {
	store := bookingMocks.NewStore()
	store.Branches[downtown] = "Downtown"
	store.Branches[uptown] = "Uptown"

	store.AddRoom(roomModel.Room{ID: room101, BranchID: downtown, RoomNumber: 101, RoomType: roomModel.TypeSingle, IsAvailable: true})
	store.AddRoom(roomModel.Room{ID: room101Suite, BranchID: downtown, RoomNumber: 101, RoomType: roomModel.TypeSuite, IsAvailable: true})
	store.AddRoom(roomModel.Room{ID: room102, BranchID: downtown, RoomNumber: 102, RoomType: roomModel.TypeDouble, IsAvailable: true})
	store.AddRoom(roomModel.Room{ID: room201, BranchID: uptown, RoomNumber: 201, RoomType: roomModel.TypeDouble, IsAvailable: true})

	return store
}

// hold stores an active booking together with the unavailable room it holds.
func hold(store *bookingMocks.Store, booking model.Booking) {
	room := store.Room(booking.RoomID)
	room.IsAvailable = false

	store.AddRoom(room)
	store.AddBooking(booking)
}

func janeDoe() model.Booking {
	return model.Booking{
		ID:             bookingB,
		GuestFirstName: "Jane",
		GuestLastName:  "Doe",
		DateOfBirth:    day("1990-01-31"),
		Gender:         model.GenderFemale,
		Nationality:    "Kenyan",
		PhoneNumber:    "0712345678",
		BranchID:       downtown,
		RoomID:         room101,
		CheckInDate:    day("2025-06-01"),
		CheckOutDate:   day("2025-06-05"),
	}
}

func createRequest(firstName, phoneNumber, roomID string) dto.CreateBookingRequest {
	return dto.CreateBookingRequest{
		BranchID:       downtown,
		RoomID:         roomID,
		GuestFirstName: firstName,
		GuestLastName:  "Doe",
		DateOfBirth:    "1990-01-31",
		Gender:         model.GenderFemale,
		Nationality:    "Kenyan",
		PhoneNumber:    phoneNumber,
		CheckInDate:    "2025-06-01",
		CheckOutDate:   "2025-06-05",
	}
}

func janeCredentials() dto.GuestCredentials {
	return dto.GuestCredentials{GuestFirstName: "jane", GuestLastName: "DOE", PhoneNumber: "0712 345 678"}
}

func newEngine(t *testing.T, store *bookingMocks.Store, now string) (service.Booking, *recorder) {
	t.Helper()

	return newEngineWithImages(t, store, now, s3Mocks.NewMockS3(gomock.NewController(t)))
}

func newEngineWithImages(t *testing.T, store *bookingMocks.Store, now string, images s3.S3) (service.Booking, *recorder) {
	t.Helper()

	ctrl := gomock.NewController(t)
	redisCache := cacheMocks.NewMockRedisCache(ctrl)

	redisCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errCacheMiss).AnyTimes()
	redisCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	redisCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	redisCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	dispatcher := &recorder{}

	svc := service.New(
		store.BookingRepository(),
		store.RoomRepository(),
		store.Transactor(),
		dispatcher,
		images,
		testConfig(),
		redisCache,
		otelMocks.NewOtel(),
		service.WithClock(clock(now)),
	)

	return svc, dispatcher
}

// assertAvailabilityMirrorsBookings checks that a room is unavailable exactly when an
// active booking holds it.
func assertAvailabilityMirrorsBookings(t *testing.T, store *bookingMocks.Store) {
	t.Helper()

	holders := store.ActiveHolders()

	for _, id := range []string{room101, room101Suite, room102, room201} {
		assert.LessOrEqual(t, holders[id], 1, "room %s has more than one active booking", id)
		assert.Equal(t, holders[id] == 0, store.Room(id).IsAvailable, "availability of room %s", id)
	}
}

func TestBookingService_Create(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(store *bookingMocks.Store)
		req     dto.CreateBookingRequest
		wantErr error
		wantMsg string
	}{
		{
			name: "books an available room",
			req:  createRequest("Jane", "0712345678", room101),
		},
		{
			name:    "room already held",
			setup:   func(store *bookingMocks.Store) { hold(store, janeDoe()) },
			req:     createRequest("John", "0799999999", room101),
			wantErr: model.ErrRoomUnavailable,
		},
		{
			name:    "room from another branch",
			req:     createRequest("Jane", "0712345678", room201),
			wantErr: model.ErrRoomOutsideBranch,
		},
		{
			name:    "unknown room",
			req:     createRequest("Jane", "0712345678", "room-missing"),
			wantErr: roomModel.ErrRoomNotFound,
		},
		{
			name: "check-out not after check-in",
			req: func() dto.CreateBookingRequest {
				req := createRequest("Jane", "0712345678", room101)
				req.CheckOutDate = req.CheckInDate

				return req
			}(),
			wantErr: model.ErrInvalidDateRange,
		},
		{
			name: "guest under age",
			req: func() dto.CreateBookingRequest {
				req := createRequest("Jane", "0712345678", room101)
				req.DateOfBirth = "2010-01-01"

				return req
			}(),
			wantErr: model.ErrGuestUnderage,
		},
		{
			name:    "phone with letters",
			req:     createRequest("Jane", "07123abc45", room101),
			wantErr: model.ErrInvalidPhone,
		},
		{
			name: "phone already used by another booking",
			setup: func(store *bookingMocks.Store) {
				other := janeDoe()
				other.ID, other.RoomID = "booking-other", room102
				hold(store, other)
			},
			req:     createRequest("Janet", "0712-345-678", room101),
			wantMsg: model.ConflictMessages[model.ConstraintPhoneKey],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			if tt.setup != nil {
				tt.setup(store)
			}

			svc, dispatcher := newEngine(t, store, "2025-05-20T10:00:00Z")
			before := store.Room(tt.req.RoomID)

			res, err := svc.Create(context.Background(), tt.req)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, store.Room(tt.req.RoomID))
				assert.Empty(t, dispatcher.published())
			case tt.wantMsg != "":
				assert.EqualError(t, err, tt.wantMsg)
				assert.Equal(t, before, store.Room(tt.req.RoomID))
				assert.Empty(t, dispatcher.published())
			default:
				assert.NoError(t, err)
				assert.False(t, store.Room(tt.req.RoomID).IsAvailable)
				assert.Equal(t, "0712345678", res.PhoneNumber)
				assert.Equal(t, 101, res.Room.Number)

				if published := dispatcher.published(); assert.Len(t, published, 1) {
					assert.Equal(t, events.TypeBookingCreated, published[0].Type)
					assert.Equal(t, res.ID, published[0].Booking.ID)
				}
			}

			assertAvailabilityMirrorsBookings(t, store)
		})
	}
}

func TestBookingService_Create_IDPhoto(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(store *bookingMocks.Store)
		photo     string
		setupMock func(images *s3Mocks.MockS3)
		wantCode  int
	}{
		{
			name:  "photo stored with the booking",
			photo: idPhoto,
			setupMock: func(images *s3Mocks.MockS3) {
				images.EXPECT().UploadFileBytes(gomock.Any(), model.EntityName, gomock.Any(), "image/png", gomock.Any()).Return(idPhotoURL, nil)
			},
		},
		{
			name:  "photo removed when the room is taken",
			setup: func(store *bookingMocks.Store) { hold(store, janeDoe()) },
			photo: idPhoto,
			setupMock: func(images *s3Mocks.MockS3) {
				images.EXPECT().UploadFileBytes(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(idPhotoURL, nil)
				images.EXPECT().GetObjectNameFromURL(model.EntityName, idPhotoURL).Return("id.png")
				images.EXPECT().DeleteFile(gomock.Any(), model.EntityName, "id.png").Return(nil)
			},
			wantCode: http.StatusConflict,
		},
		{
			name:      "oversized photo refused",
			photo:     "data:image/jpeg;base64," + strings.Repeat("AAAA", 1024),
			setupMock: func(_ *s3Mocks.MockS3) {},
			wantCode:  http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			if tt.setup != nil {
				tt.setup(store)
			}

			images := s3Mocks.NewMockS3(gomock.NewController(t))
			tt.setupMock(images)

			svc, _ := newEngineWithImages(t, store, "2025-05-20T10:00:00Z", images)

			req := createRequest("John", "0799999999", room101)
			req.IDPhoto = tt.photo

			res, err := svc.Create(context.Background(), req)

			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
				assertAvailabilityMirrorsBookings(t, store)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, idPhotoURL, res.IDPhotoURL)

			stored, ok := store.Booking(res.ID)
			if assert.True(t, ok) {
				assert.Equal(t, idPhotoURL, stored.IDPhotoURL)
			}
		})
	}
}

func TestBookingService_Cancel_RemovesIDPhoto(t *testing.T) {
	store := seededStore()

	booking := janeDoe()
	booking.IDPhotoURL = idPhotoURL
	hold(store, booking)

	images := s3Mocks.NewMockS3(gomock.NewController(t))
	images.EXPECT().GetObjectNameFromURL(model.EntityName, idPhotoURL).Return("id.png")
	images.EXPECT().DeleteFile(gomock.Any(), model.EntityName, "id.png").Return(nil)

	svc, _ := newEngineWithImages(t, store, "2025-05-20T10:00:00Z", images)

	assert.NoError(t, svc.Cancel(context.Background(), bookingB, downtown))
	assertAvailabilityMirrorsBookings(t, store)
}

func TestBookingService_Create_SecondGuestLosesRoom(t *testing.T) {
	store := seededStore()
	svc, _ := newEngine(t, store, "2025-05-20T10:00:00Z")

	_, err := svc.Create(context.Background(), createRequest("Jane", "0712345678", room101))
	assert.NoError(t, err)
	assert.False(t, store.Room(room101).IsAvailable)

	_, err = svc.Create(context.Background(), createRequest("John", "0799999999", room101))
	assert.ErrorIs(t, err, model.ErrRoomUnavailable)
	assertAvailabilityMirrorsBookings(t, store)
}

func TestBookingService_Create_ConcurrentRequestsForOneRoom(t *testing.T) {
	const guests = 10

	store := seededStore()
	svc, _ := newEngine(t, store, "2025-05-20T10:00:00Z")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)

	for i := range guests {
		wg.Add(1)

		go func() {
			defer wg.Done()

			req := createRequest(fmt.Sprintf("Guest%d", i), fmt.Sprintf("07000000%02d", i), room101)
			_, err := svc.Create(context.Background(), req)

			mu.Lock()
			defer mu.Unlock()

			if err == nil {
				wins++

				return
			}

			assert.ErrorIs(t, err, model.ErrRoomUnavailable)
			losses++
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, guests-1, losses)
	assert.Equal(t, 1, store.ActiveHolders()[room101])
	assertAvailabilityMirrorsBookings(t, store)
}

func TestBookingService_Create_PublishFailureKeepsBooking(t *testing.T) {
	store := seededStore()
	svc, dispatcher := newEngine(t, store, "2025-05-20T10:00:00Z")
	dispatcher.err = events.ErrQueueFull

	res, err := svc.Create(context.Background(), createRequest("Jane", "0712345678", room101))

	assert.NoError(t, err)
	_, stored := store.Booking(res.ID)
	assert.True(t, stored)
	assert.False(t, store.Room(room101).IsAvailable)
}

func TestBookingService_ChangeRoomAndDates(t *testing.T) {
	changeTo := func(branchID, roomID, checkIn, checkOut string) dto.ChangeBookingRequest {
		return dto.ChangeBookingRequest{
			GuestCredentials: janeCredentials(),
			BranchID:         branchID,
			RoomID:           roomID,
			CheckInDate:      checkIn,
			CheckOutDate:     checkOut,
		}
	}

	tests := []struct {
		name    string
		id      string
		now     string
		setup   func(store *bookingMocks.Store)
		req     dto.ChangeBookingRequest
		wantErr error
	}{
		{
			name: "wrong credentials",
			id:   bookingB,
			now:  "2025-05-20T10:00:00Z",
			req: func() dto.ChangeBookingRequest {
				req := changeTo(downtown, room102, "2025-06-02", "2025-06-06")
				req.PhoneNumber = "0700000000"

				return req
			}(),
			wantErr: model.ErrCredentialsMismatch,
		},
		{
			name:    "unknown booking",
			id:      "booking-missing",
			now:     "2025-05-20T10:00:00Z",
			req:     changeTo(downtown, room102, "2025-06-02", "2025-06-06"),
			wantErr: model.ErrBookingNotFound,
		},
		{
			name: "expired booking cannot change",
			id:   bookingB,
			now:  "2025-05-20T10:00:00Z",
			setup: func(store *bookingMocks.Store) {
				expired := janeDoe()
				expired.IsDeleted = true
				store.AddBooking(expired)
			},
			req:     changeTo(downtown, room102, "2025-06-02", "2025-06-06"),
			wantErr: model.ErrCredentialsMismatch,
		},
		{
			name:    "same room wins over a bad date range",
			id:      bookingB,
			now:     "2025-05-20T10:00:00Z",
			req:     changeTo(downtown, room101, "2025-06-09", "2025-06-02"),
			wantErr: model.ErrSameRoom,
		},
		{
			name:    "same room number with another type",
			id:      bookingB,
			now:     "2025-05-20T10:00:00Z",
			req:     changeTo(downtown, room101Suite, "2025-06-02", "2025-06-06"),
			wantErr: model.ErrSameRoom,
		},
		{
			name: "unavailable room wins over the cutoff",
			id:   bookingB,
			now:  "2025-05-31T13:00:00Z",
			setup: func(store *bookingMocks.Store) {
				other := janeDoe()
				other.ID, other.RoomID, other.PhoneNumber, other.GuestFirstName = "booking-other", room102, "0799999999", "John"
				hold(store, other)
			},
			req:     changeTo(downtown, room102, "2025-06-02", "2025-06-06"),
			wantErr: model.ErrRoomUnavailable,
		},
		{
			name:    "within 24 hours of check-in",
			id:      bookingB,
			now:     "2025-05-31T13:00:00Z",
			req:     changeTo(downtown, room102, "2025-06-02", "2025-06-06"),
			wantErr: model.ErrTooLateToChange,
		},
		{
			name: "exactly 24 hours before check-in",
			id:   bookingB,
			now:  "2025-05-31T12:00:00Z",
			req:  changeTo(downtown, room102, "2025-06-02", "2025-06-06"),
		},
		{
			name:    "cutoff wins over a bad date range",
			id:      bookingB,
			now:     "2025-05-31T13:00:00Z",
			req:     changeTo(downtown, room102, "2025-06-06", "2025-06-02"),
			wantErr: model.ErrTooLateToChange,
		},
		{
			name:    "check-out before check-in",
			id:      bookingB,
			now:     "2025-05-20T10:00:00Z",
			req:     changeTo(downtown, room102, "2025-06-06", "2025-06-02"),
			wantErr: model.ErrInvalidDateRange,
		},
		{
			name:    "room outside the new branch",
			id:      bookingB,
			now:     "2025-05-20T10:00:00Z",
			req:     changeTo(downtown, room201, "2025-06-02", "2025-06-06"),
			wantErr: model.ErrRoomOutsideBranch,
		},
		{
			name: "same number in another branch is not the same room",
			id:   bookingB,
			now:  "2025-05-20T10:00:00Z",
			setup: func(store *bookingMocks.Store) {
				store.AddRoom(roomModel.Room{ID: "room-uptown-101", BranchID: uptown, RoomNumber: 101, RoomType: roomModel.TypeSingle, IsAvailable: true})
			},
			req:     changeTo(downtown, "room-uptown-101", "2025-06-02", "2025-06-06"),
			wantErr: model.ErrRoomOutsideBranch,
		},
		{
			name: "moves to the same number in another branch",
			id:   bookingB,
			now:  "2025-05-20T10:00:00Z",
			setup: func(store *bookingMocks.Store) {
				store.AddRoom(roomModel.Room{ID: "room-uptown-101", BranchID: uptown, RoomNumber: 101, RoomType: roomModel.TypeSingle, IsAvailable: true})
			},
			req: changeTo(uptown, "room-uptown-101", "2025-06-02", "2025-06-06"),
		},
		{
			name: "moves to another branch with new dates",
			id:   bookingB,
			now:  "2025-05-20T10:00:00Z",
			req:  changeTo(uptown, room201, "2025-06-10", "2025-06-12"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			hold(store, janeDoe())

			if tt.setup != nil {
				tt.setup(store)
			}

			svc, dispatcher := newEngine(t, store, tt.now)
			before, _ := store.Booking(bookingB)

			res, err := svc.ChangeRoomAndDates(context.Background(), tt.id, tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				after, _ := store.Booking(bookingB)
				assert.Equal(t, before, after)
				assert.Empty(t, dispatcher.published())
				assertAvailabilityMirrorsBookings(t, store)

				return
			}

			assert.NoError(t, err)

			after, _ := store.Booking(bookingB)
			assert.Equal(t, tt.req.RoomID, after.RoomID)
			assert.Equal(t, tt.req.BranchID, after.BranchID)
			assert.Equal(t, day(tt.req.CheckInDate), after.CheckInDate)
			assert.Equal(t, day(tt.req.CheckOutDate), after.CheckOutDate)
			assert.Equal(t, clock(tt.now)(), after.ModifiedAt)
			assert.Equal(t, tt.req.RoomID, res.Room.ID)

			assert.True(t, store.Room(room101).IsAvailable)
			assert.False(t, store.Room(tt.req.RoomID).IsAvailable)
			assertAvailabilityMirrorsBookings(t, store)

			if published := dispatcher.published(); assert.Len(t, published, 1) {
				assert.Equal(t, events.TypeBookingChanged, published[0].Type)
				assert.Equal(t, room101, published[0].OldRoom.ID)
			}
		})
	}
}

func TestBookingService_ChangeRoomAndDates_ResetsReminderForNewDate(t *testing.T) {
	store := seededStore()

	reminded := janeDoe()
	reminded.CheckInReminderSent = true
	hold(store, reminded)

	svc, _ := newEngine(t, store, "2025-05-20T10:00:00Z")

	_, err := svc.ChangeRoomAndDates(context.Background(), bookingB, dto.ChangeBookingRequest{
		GuestCredentials: janeCredentials(),
		BranchID:         downtown,
		RoomID:           room102,
		CheckInDate:      "2025-06-03",
		CheckOutDate:     "2025-06-05",
	})

	assert.NoError(t, err)

	after, _ := store.Booking(bookingB)
	assert.False(t, after.CheckInReminderSent)
}

func TestBookingService_ChangeRoomOnly(t *testing.T) {
	tests := []struct {
		name    string
		roomID  string
		setup   func(store *bookingMocks.Store)
		wantErr error
	}{
		{
			name:   "moves to another room of the branch",
			roomID: room102,
		},
		{
			name:    "same room",
			roomID:  room101,
			wantErr: model.ErrSameRoom,
		},
		{
			name:    "same room number",
			roomID:  room101Suite,
			wantErr: model.ErrSameRoom,
		},
		{
			name:   "room held by someone else",
			roomID: room102,
			setup: func(store *bookingMocks.Store) {
				other := janeDoe()
				other.ID, other.RoomID, other.PhoneNumber, other.GuestFirstName = "booking-other", room102, "0799999999", "John"
				hold(store, other)
			},
			wantErr: model.ErrRoomUnavailable,
		},
		{
			name:    "room in another branch",
			roomID:  room201,
			wantErr: model.ErrRoomOutsideBranch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			hold(store, janeDoe())

			if tt.setup != nil {
				tt.setup(store)
			}

			svc, dispatcher := newEngine(t, store, "2025-05-31T20:00:00Z")

			_, err := svc.ChangeRoomOnly(context.Background(), bookingB, dto.ChangeRoomRequest{
				GuestCredentials: janeCredentials(),
				RoomID:           tt.roomID,
			})

			after, _ := store.Booking(bookingB)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, room101, after.RoomID)
				assert.Empty(t, dispatcher.published())
				assertAvailabilityMirrorsBookings(t, store)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, room102, after.RoomID)
			assert.Equal(t, day("2025-06-01"), after.CheckInDate)
			assert.Equal(t, clock("2025-05-31T20:00:00Z")(), after.ModifiedAt)
			assert.True(t, store.Room(room101).IsAvailable)
			assert.False(t, store.Room(room102).IsAvailable)
			assertAvailabilityMirrorsBookings(t, store)

			if published := dispatcher.published(); assert.Len(t, published, 1) {
				assert.Equal(t, events.TypeBookingChanged, published[0].Type)
				assert.Equal(t, 101, published[0].OldRoom.Number)
				assert.Equal(t, 102, published[0].Booking.Room.Number)
			}
		})
	}
}

func TestBookingService_Cancel(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		branchID string
		deleted  bool
		wantErr  error
	}{
		{name: "active booking", id: bookingB},
		{name: "expired booking", id: bookingB, deleted: true},
		{name: "unknown booking", id: "booking-missing", wantErr: model.ErrBookingNotFound},
		{name: "booking of the given branch", id: bookingB, branchID: downtown},
		{name: "booking moved out of the given branch", id: bookingB, branchID: uptown, wantErr: model.ErrBookingNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()

			booking := janeDoe()
			booking.IsDeleted = tt.deleted
			hold(store, booking)

			svc, dispatcher := newEngine(t, store, "2025-05-20T10:00:00Z")

			err := svc.Cancel(context.Background(), tt.id, tt.branchID)

			_, stillThere := store.Booking(bookingB)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, stillThere)
				assert.False(t, store.Room(room101).IsAvailable)
				assert.Empty(t, dispatcher.published())

				return
			}

			assert.NoError(t, err)
			assert.False(t, stillThere)
			assert.True(t, store.Room(room101).IsAvailable)

			if published := dispatcher.published(); assert.Len(t, published, 1) {
				assert.Equal(t, events.TypeBookingCancelled, published[0].Type)
				assert.Equal(t, bookingB, published[0].Booking.ID)
			}
		})
	}
}

func TestBookingService_CancelForGuest(t *testing.T) {
	store := seededStore()
	hold(store, janeDoe())

	svc, _ := newEngine(t, store, "2025-05-20T10:00:00Z")

	err := svc.CancelForGuest(context.Background(), dto.CancelBookingRequest{
		GuestCredentials: dto.GuestCredentials{GuestFirstName: "Jane", GuestLastName: "Doe", PhoneNumber: "0700000000"},
	})
	assert.ErrorIs(t, err, model.ErrCredentialsMismatch)

	err = svc.CancelForGuest(context.Background(), dto.CancelBookingRequest{GuestCredentials: janeCredentials()})
	assert.NoError(t, err)

	_, stillThere := store.Booking(bookingB)
	assert.False(t, stillThere)
	assertAvailabilityMirrorsBookings(t, store)
}

func TestBookingService_AvailabilityFollowsEveryTransition(t *testing.T) {
	store := seededStore()
	svc, _ := newEngine(t, store, "2025-05-20T10:00:00Z")
	ctx := context.Background()

	jane, err := svc.Create(ctx, createRequest("Jane", "0712345678", room101))
	assert.NoError(t, err)
	assertAvailabilityMirrorsBookings(t, store)

	_, err = svc.Create(ctx, createRequest("John", "0799999999", room102))
	assert.NoError(t, err)
	assertAvailabilityMirrorsBookings(t, store)

	_, err = svc.ChangeRoomOnly(ctx, jane.ID, dto.ChangeRoomRequest{GuestCredentials: janeCredentials(), RoomID: room102})
	assert.ErrorIs(t, err, model.ErrRoomUnavailable)
	assertAvailabilityMirrorsBookings(t, store)

	_, err = svc.ChangeRoomAndDates(ctx, jane.ID, dto.ChangeBookingRequest{
		GuestCredentials: janeCredentials(),
		BranchID:         uptown,
		RoomID:           room201,
		CheckInDate:      "2025-06-02",
		CheckOutDate:     "2025-06-04",
	})
	assert.NoError(t, err)
	assertAvailabilityMirrorsBookings(t, store)

	_, err = svc.Create(ctx, createRequest("Mary", "0788888888", room101))
	assert.NoError(t, err)
	assertAvailabilityMirrorsBookings(t, store)

	assert.NoError(t, svc.Cancel(ctx, jane.ID, ""))
	assertAvailabilityMirrorsBookings(t, store)
	assert.True(t, store.Room(room201).IsAvailable)
}

func TestBookingService_GetRespectsView(t *testing.T) {
	store := seededStore()

	expired := janeDoe()
	expired.IsDeleted = true
	hold(store, expired)

	svc, _ := newEngine(t, store, "2025-05-20T10:00:00Z")

	_, err := svc.Get(context.Background(), bookingB, model.ViewActive)
	assert.ErrorIs(t, err, model.ErrBookingNotFound)

	res, err := svc.Get(context.Background(), bookingB, model.ViewHistory)
	assert.NoError(t, err)
	assert.True(t, res.IsDeleted)
	assert.Equal(t, "Downtown", res.Branch.Name)
}

func TestBookingService_Lookup(t *testing.T) {
	store := seededStore()

	booking := janeDoe()
	email := "jane@example.com"
	booking.Email = &email
	hold(store, booking)

	svc, _ := newEngine(t, store, "2025-05-20T10:00:00Z")

	tests := []struct {
		name    string
		contact string
		found   bool
	}{
		{name: "email ignoring case", contact: "JANE@example.com", found: true},
		{name: "formatted phone", contact: "0712-345-678", found: true},
		{name: "other phone", contact: "0700000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Lookup(context.Background(), dto.LookupBookingRequest{
				GuestFirstName: "JANE",
				GuestLastName:  "doe",
				EmailOrPhone:   tt.contact,
			}, model.ViewAll)

			if !tt.found {
				assert.Error(t, err)
				assert.Empty(t, res)

				return
			}

			assert.NoError(t, err)

			if assert.Len(t, res, 1) {
				assert.Equal(t, bookingB, res[0].ID)
			}
		})
	}
}

func TestBookingService_ListByBranch(t *testing.T) {
	tests := []struct {
		name        string
		params      gDto.QueryParams
		wantSortBy  string
		wantSortDir string
	}{
		{
			name:        "known column",
			params:      gDto.QueryParams{Page: 1, Limit: 5, SortBy: model.FieldGuestLastName, SortDir: gDto.SortDirDesc},
			wantSortBy:  "bookings.guest_last_name",
			wantSortDir: gDto.SortDirDesc,
		},
		{
			name:        "unknown column falls back to check-in date",
			params:      gDto.QueryParams{Page: 1, Limit: 5, SortBy: "check_in_date; DROP TABLE bookings", SortDir: gDto.SortDirDesc},
			wantSortBy:  "bookings.check_in_date",
			wantSortDir: gDto.SortDirAsc,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := bookingMocks.NewMockBooking(ctrl)
			redisCache := cacheMocks.NewMockRedisCache(ctrl)

			redisCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errCacheMiss)
			redisCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

			repo.EXPECT().Count(gomock.Any(), model.ViewHistory, gomock.Any()).Return(12, nil)
			repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), model.ViewHistory, gomock.Any()).
				DoAndReturn(func(_ context.Context, params gDto.QueryParams, _ model.View, _ gDto.FilterGroup) ([]model.BookingDetail, error) {
					assert.Equal(t, tt.wantSortBy, params.SortBy)
					assert.Equal(t, tt.wantSortDir, params.SortDir)

					return []model.BookingDetail{{Booking: janeDoe(), RoomNumber: 101}}, nil
				})

			svc := service.New(repo, nil, nil, &recorder{}, nil, testConfig(), redisCache, otelMocks.NewOtel())

			res, err := svc.ListByBranch(context.Background(), downtown, model.ViewHistory, tt.params)

			assert.NoError(t, err)
			assert.Equal(t, 12, res.TotalData)
			assert.Equal(t, 3, res.TotalPage)

			if assert.Len(t, res.Bookings, 1) {
				assert.Equal(t, 101, res.Bookings[0].Room.Number)
			}
		})
	}
}
