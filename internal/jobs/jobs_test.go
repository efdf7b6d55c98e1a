package jobs_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"hotel/config"
	otelMocks "hotel/infras/otel/mocks"
	bookingMocks "hotel/internal/domains/booking/mocks"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/repository"
	roomModel "hotel/internal/domains/room/model"
	"hotel/internal/events"
	"hotel/internal/jobs"
	cacheMocks "hotel/shared/cache/mocks"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
	reject map[string]bool
}

func (r *recorder) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reject[event.Booking.ID] {
		return events.ErrQueueFull
	}

	r.events = append(r.events, event)

	return nil
}

func (r *recorder) Close(_ context.Context) error {
	return nil
}

func (r *recorder) bookingIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := []string{}
	for _, event := range r.events {
		ids = append(ids, event.Booking.ID)
	}

	return ids
}

func at(value string) func() time.Time {
	t, _ := time.Parse(time.RFC3339, value)

	return func() time.Time { return t }
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func jobConfig(batchSize int) *config.Config {
	cfg := &config.Config{}
	cfg.Booking.CheckInHour = 12
	cfg.Jobs.BatchSize = batchSize
	cfg.Jobs.Reminder.WindowStartHours = 24
	cfg.Jobs.Reminder.WindowEndHours = 28

	return cfg
}

func redisCache(t *testing.T) *cacheMocks.MockRedisCache {
	t.Helper()

	cache := cacheMocks.NewMockRedisCache(gomock.NewController(t))
	cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	return cache
}

func stay(id, roomID string, checkIn, checkOut time.Time) model.Booking {
	return model.Booking{
		ID:             id,
		GuestFirstName: "Guest",
		GuestLastName:  id,
		PhoneNumber:    "07000" + id,
		BranchID:       "branch-downtown",
		RoomID:         roomID,
		CheckInDate:    checkIn,
		CheckOutDate:   checkOut,
	}
}

func TestExpirePastBookings(t *testing.T) {
	store := bookingMocks.NewStore()
	store.AddRoom(roomModel.Room{ID: "room-101", BranchID: "branch-downtown", RoomNumber: 101})

	past := []string{"b-01", "b-02", "b-03", "b-04", "b-05"}
	for _, id := range past {
		store.AddBooking(stay(id, "room-101", day(2025, time.May, 30), day(2025, time.June, 5)))
	}

	store.AddBooking(stay("b-today", "room-101", day(2025, time.June, 2), day(2025, time.June, 6)))
	store.AddBooking(stay("b-future", "room-101", day(2025, time.June, 10), day(2025, time.June, 12)))

	already := stay("b-old", "room-101", day(2025, time.May, 1), day(2025, time.May, 3))
	already.IsDeleted = true
	store.AddBooking(already)

	job := jobs.NewExpirePastBookings(store.BookingRepository(), jobConfig(2), redisCache(t), otelMocks.NewOtel(),
		jobs.WithClock(at("2025-06-06T00:00:00Z")))

	assert.Equal(t, jobs.NameExpirePastBookings, job.Name())
	assert.NoError(t, job.Run(context.Background()))

	for _, id := range past {
		booking, _ := store.Booking(id)
		assert.True(t, booking.IsDeleted, "booking %s", id)
	}

	for _, id := range []string{"b-today", "b-future"} {
		booking, _ := store.Booking(id)
		assert.False(t, booking.IsDeleted, "booking %s", id)
	}

	old, _ := store.Booking("b-old")
	assert.Equal(t, already, old)

	assert.False(t, store.Room("room-101").IsAvailable)

	assert.NoError(t, job.Run(context.Background()))
}

func TestCheckInReminder(t *testing.T) {
	store := bookingMocks.NewStore()
	store.AddRoom(roomModel.Room{ID: "room-101", BranchID: "branch-downtown", RoomNumber: 101})

	store.AddBooking(stay("b-due", "room-101", day(2025, time.June, 1), day(2025, time.June, 3)))
	store.AddBooking(stay("b-later", "room-101", day(2025, time.June, 2), day(2025, time.June, 4)))
	store.AddBooking(stay("b-tomorrow-soon", "room-101", day(2025, time.May, 31), day(2025, time.June, 2)))

	sent := stay("b-sent", "room-101", day(2025, time.June, 1), day(2025, time.June, 2))
	sent.CheckInReminderSent = true
	store.AddBooking(sent)

	expired := stay("b-expired", "room-101", day(2025, time.June, 1), day(2025, time.June, 2))
	expired.IsDeleted = true
	store.AddBooking(expired)

	dispatcher := &recorder{}
	job := jobs.NewCheckInReminder(store.BookingRepository(), dispatcher, jobConfig(1), redisCache(t), otelMocks.NewOtel(),
		jobs.WithClock(at("2025-05-31T10:00:00Z")))

	assert.Equal(t, jobs.NameCheckInReminder, job.Name())
	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"b-due"}, dispatcher.bookingIDs())

	due, _ := store.Booking("b-due")
	assert.True(t, due.CheckInReminderSent)

	later, _ := store.Booking("b-later")
	assert.False(t, later.CheckInReminderSent)

	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"b-due"}, dispatcher.bookingIDs())
}

func TestCheckInReminder_OneFailureDoesNotBlockOthers(t *testing.T) {
	store := bookingMocks.NewStore()
	store.AddRoom(roomModel.Room{ID: "room-101", BranchID: "branch-downtown", RoomNumber: 101})
	store.AddRoom(roomModel.Room{ID: "room-102", BranchID: "branch-downtown", RoomNumber: 102})

	store.AddBooking(stay("b-1", "room-101", day(2025, time.June, 1), day(2025, time.June, 3)))
	store.AddBooking(stay("b-2", "room-102", day(2025, time.June, 1), day(2025, time.June, 3)))

	dispatcher := &recorder{reject: map[string]bool{"b-1": true}}
	job := jobs.NewCheckInReminder(store.BookingRepository(), dispatcher, jobConfig(10), redisCache(t), otelMocks.NewOtel(),
		jobs.WithClock(at("2025-05-31T10:00:00Z")))

	assert.Error(t, job.Run(context.Background()))
	assert.Equal(t, []string{"b-2"}, dispatcher.bookingIDs())

	first, _ := store.Booking("b-1")
	assert.False(t, first.CheckInReminderSent)

	second, _ := store.Booking("b-2")
	assert.True(t, second.CheckInReminderSent)

	dispatcher.reject = nil

	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"b-2", "b-1"}, dispatcher.bookingIDs())
}

// listedTogether holds every run after its listing until all runs have listed, so
// they all see the same due bookings.
type listedTogether struct {
	repository.Booking
	listed *sync.WaitGroup
}

func (l listedTogether) ListReminderDue(ctx context.Context, from, to time.Time, afterID string, limit int) ([]model.BookingDetail, error) {
	bookings, err := l.Booking.ListReminderDue(ctx, from, to, afterID, limit)

	l.listed.Done()
	l.listed.Wait()

	return bookings, err
}

func TestCheckInReminder_OverlappingRunsSendOnce(t *testing.T) {
	const runs = 2

	store := bookingMocks.NewStore()
	store.AddRoom(roomModel.Room{ID: "room-101", BranchID: "branch-downtown", RoomNumber: 101})
	store.AddBooking(stay("b-due", "room-101", day(2025, time.June, 1), day(2025, time.June, 3)))

	listed := &sync.WaitGroup{}
	listed.Add(runs)

	repo := listedTogether{Booking: store.BookingRepository(), listed: listed}
	dispatcher := &recorder{}

	var wg sync.WaitGroup

	errs := make([]error, runs)
	for i := range runs {
		job := jobs.NewCheckInReminder(repo, dispatcher, jobConfig(10), redisCache(t), otelMocks.NewOtel(),
			jobs.WithClock(at("2025-05-31T10:00:00Z")))

		wg.Add(1)

		go func() {
			defer wg.Done()

			errs[i] = job.Run(context.Background())
		}()
	}

	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	assert.Equal(t, []string{"b-due"}, dispatcher.bookingIDs())

	due, _ := store.Booking("b-due")
	assert.True(t, due.CheckInReminderSent)
}

func TestCheckInReminder_ReleasesClaimWhenPublishFails(t *testing.T) {
	store := bookingMocks.NewStore()
	store.AddRoom(roomModel.Room{ID: "room-101", BranchID: "branch-downtown", RoomNumber: 101})
	store.AddBooking(stay("b-due", "room-101", day(2025, time.June, 1), day(2025, time.June, 3)))

	dispatcher := &recorder{reject: map[string]bool{"b-due": true}}
	job := jobs.NewCheckInReminder(store.BookingRepository(), dispatcher, jobConfig(10), redisCache(t), otelMocks.NewOtel(),
		jobs.WithClock(at("2025-05-31T10:00:00Z")))

	assert.Error(t, job.Run(context.Background()))

	due, _ := store.Booking("b-due")
	assert.False(t, due.CheckInReminderSent)
	assert.Empty(t, dispatcher.bookingIDs())
}

type flakyJob struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (j *flakyJob) Name() string {
	return "flaky"
}

func (j *flakyJob) Run(_ context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.calls++
	if j.calls <= j.failures {
		return fmt.Errorf("attempt %d failed", j.calls)
	}

	return nil
}

func TestScheduler_Run(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		maxTries  uint
		wantCalls int
		wantErr   bool
	}{
		{name: "succeeds first time", failures: 0, maxTries: 3, wantCalls: 1},
		{name: "succeeds after retries", failures: 2, maxTries: 3, wantCalls: 3},
		{name: "gives up after max tries", failures: 10, maxTries: 3, wantCalls: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := jobConfig(10)
			cfg.Jobs.Retry.MaxTries = tt.maxTries

			scheduler := jobs.NewScheduler(cfg, jobs.WithBackOff(func() backoff.BackOff {
				return backoff.NewConstantBackOff(time.Millisecond)
			}))

			job := &flakyJob{failures: tt.failures}
			assert.NoError(t, scheduler.Register("@every 1h", job))

			err := scheduler.Run(context.Background(), job.Name())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.wantCalls, job.calls)
		})
	}
}

func TestScheduler_Register(t *testing.T) {
	scheduler := jobs.NewScheduler(jobConfig(10))

	assert.Error(t, scheduler.Register("every now and then", &flakyJob{}))
	assert.ErrorIs(t, scheduler.Run(context.Background(), "flaky"), jobs.ErrUnknownJob)

	assert.NoError(t, scheduler.Register("0 */4 * * *", &flakyJob{}))

	scheduler.Start()
	assert.NoError(t, scheduler.Stop(context.Background()))
}
