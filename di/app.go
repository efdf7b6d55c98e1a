package di

import (
	"context"
	"errors"

	"hotel/config"
	"hotel/infras/kafka"
	"hotel/infras/otel"
	"hotel/infras/postgres"
	"hotel/infras/s3"
	bookingRepository "hotel/internal/domains/booking/repository"
	bookingService "hotel/internal/domains/booking/service"
	roomRepository "hotel/internal/domains/room/repository"
	"hotel/internal/events"
	"hotel/internal/jobs"
	"hotel/shared/cache"
	gRepo "hotel/shared/repository"
	"hotel/transport/http"
)

// App is the API process: the HTTP server plus the maintenance scheduler, sharing one
// event dispatcher and one set of pools.
type App struct {
	HTTP      *http.HTTP
	Scheduler *jobs.Scheduler
}

// Worker runs the maintenance jobs without serving HTTP.
type Worker struct {
	Scheduler  *jobs.Scheduler
	Dispatcher events.Dispatcher
	Kafka      kafka.Client
	DB         *postgres.Connection
	Otel       otel.Otel
}

// Close drains the event queue and then releases the clients it uses.
func (w *Worker) Close(ctx context.Context) error {
	return errors.Join(
		w.Dispatcher.Close(ctx),
		w.Kafka.Close(),
		w.DB.Close(),
		w.Otel.Shutdown(ctx),
	)
}

func newBookingService(
	repo bookingRepository.Booking,
	roomRepo roomRepository.Room,
	tx gRepo.Transactor,
	dispatcher events.Dispatcher,
	store s3.S3,
	cfg *config.Config,
	cache cache.RedisCache,
	otl otel.Otel,
) bookingService.Booking {
	return bookingService.New(repo, roomRepo, tx, dispatcher, store, cfg, cache, otl)
}
