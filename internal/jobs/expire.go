package jobs

import (
	"context"
	"fmt"
	"time"

	"hotel/config"
	"hotel/infras/otel"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/repository"
	roomModel "hotel/internal/domains/room/model"
	"hotel/shared"
	"hotel/shared/cache"
	"hotel/shared/constant"
	"hotel/shared/timezone"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const NameExpirePastBookings = "expire-past-bookings"

type expirePastBookings struct {
	repo  repository.Booking
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
	now   func() time.Time
}

// NewExpirePastBookings soft deletes every active booking whose check-out date is
// before today. The held room is left as it is.
func NewExpirePastBookings(repo repository.Booking, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, opts ...Option) Job {
	return &expirePastBookings{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
		now:   clock(opts),
	}
}

func (j *expirePastBookings) Name() string {
	return NameExpirePastBookings
}

func (j *expirePastBookings) Run(ctx context.Context) (err error) {
	ctx, scope := j.otel.NewScope(ctx, constant.OtelJobScopeName, constant.OtelJobScopeName+"."+NameExpirePastBookings)
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	today := timezone.StartOfDay(j.now())
	batch := batchSize(j.cfg)

	var (
		after   string
		expired int
		failed  int
	)

	for {
		bookings, err := j.repo.ListExpired(ctx, today, after, batch)
		if err != nil {
			return errors.Wrap(err, "failed to list expired bookings")
		}

		for _, booking := range bookings {
			ok, err := j.repo.MarkExpired(ctx, booking.ID, today)
			if err != nil {
				failed++

				log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to expire booking")

				continue
			}

			if ok {
				expired++
			}
		}

		if len(bookings) < batch {
			break
		}

		after = bookings[len(bookings)-1].ID
	}

	if expired > 0 {
		shared.InvalidateCaches(ctx, j.cache, model.CacheGetBooking)
		shared.InvalidateCaches(ctx, j.cache, model.CacheGetAllBooking)
		shared.InvalidateCaches(ctx, j.cache, roomModel.CacheGetAllRoom)
	}

	log.Info().Int("expired", expired).Int("failed", failed).Time("today", today).Msg("expired past bookings")

	if failed > 0 {
		return fmt.Errorf("failed to expire %d bookings", failed)
	}

	return nil
}
