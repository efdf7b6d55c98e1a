package jobs

import (
	"context"
	"fmt"
	"time"

	"hotel/config"
	"hotel/infras/otel"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/repository"
	"hotel/internal/events"
	"hotel/shared"
	"hotel/shared/cache"
	"hotel/shared/constant"
	"hotel/shared/timezone"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	NameCheckInReminder = "check-in-reminder"

	defaultWindowStart = 24 * time.Hour
	defaultWindowEnd   = 28 * time.Hour
)

type checkInReminder struct {
	repo       repository.Booking
	dispatcher events.Dispatcher
	cfg        *config.Config
	cache      cache.RedisCache
	otel       otel.Otel
	now        func() time.Time
}

// NewCheckInReminder announces every active booking whose check-in falls between 24
// and 28 hours from now and flags it so later runs skip it.
func NewCheckInReminder(repo repository.Booking, dispatcher events.Dispatcher, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, opts ...Option) Job {
	return &checkInReminder{
		repo:       repo,
		dispatcher: dispatcher,
		cfg:        cfg,
		cache:      cache,
		otel:       otel,
		now:        clock(opts),
	}
}

func (j *checkInReminder) Name() string {
	return NameCheckInReminder
}

func (j *checkInReminder) Run(ctx context.Context) (err error) {
	ctx, scope := j.otel.NewScope(ctx, constant.OtelJobScopeName, constant.OtelJobScopeName+"."+NameCheckInReminder)
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	start, end := j.window(j.now())
	batch := batchSize(j.cfg)

	var (
		after  string
		sent   int
		failed int
	)

	for {
		bookings, err := j.repo.ListReminderDue(ctx, timezone.StartOfDay(start), timezone.StartOfDay(end), after, batch)
		if err != nil {
			return errors.Wrap(err, "failed to list bookings due for a reminder")
		}

		for _, booking := range bookings {
			checkIn := timezone.At(booking.CheckInDate, j.cfg.Booking.CheckInHour)
			if checkIn.Before(start) || !checkIn.Before(end) {
				continue
			}

			claimed, err := j.remind(ctx, booking)
			if err != nil {
				failed++

				log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to send check-in reminder")

				continue
			}

			if claimed {
				sent++
			}
		}

		if len(bookings) < batch {
			break
		}

		after = bookings[len(bookings)-1].ID
	}

	if sent > 0 {
		shared.InvalidateCaches(ctx, j.cache, model.CacheGetBooking)
		shared.InvalidateCaches(ctx, j.cache, model.CacheGetAllBooking)
	}

	log.Info().Int("sent", sent).Int("failed", failed).Time("from", start).Time("to", end).Msg("check-in reminders dispatched")

	if failed > 0 {
		return fmt.Errorf("failed to remind %d bookings", failed)
	}

	return nil
}

// remind claims the booking's reminder flag before handing the reminder over, so
// overlapping runs send it once. It reports false when another run holds the claim.
// A reminder that could not be queued is handed back for the next run.
func (j *checkInReminder) remind(ctx context.Context, booking model.BookingDetail) (bool, error) {
	claimed, err := j.repo.MarkReminderSent(ctx, booking.ID)
	if err != nil {
		return false, errors.Wrap(err, "failed to claim reminder")
	}

	if !claimed {
		return false, nil
	}

	publishErr := j.dispatcher.Publish(ctx, events.New(events.TypeCheckInReminderDue, booking))
	if publishErr == nil {
		return true, nil
	}

	if _, err := j.repo.ClearReminderSent(ctx, booking.ID); err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to release reminder claim")
	}

	return false, errors.Wrap(publishErr, "failed to publish reminder")
}

func (j *checkInReminder) window(now time.Time) (start, end time.Time) {
	from, to := defaultWindowStart, defaultWindowEnd

	if hours := j.cfg.Jobs.Reminder.WindowStartHours; hours > 0 {
		from = time.Duration(hours) * time.Hour
	}

	if hours := j.cfg.Jobs.Reminder.WindowEndHours; hours > 0 {
		to = time.Duration(hours) * time.Hour
	}

	return now.Add(from), now.Add(to)
}
