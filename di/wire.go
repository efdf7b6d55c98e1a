//go:build wireinject
// +build wireinject

package di

import (
	"hotel/config"
	"hotel/infras/jwt"
	"hotel/infras/kafka"
	"hotel/infras/otel"
	"hotel/infras/postgres"
	"hotel/infras/redis"
	"hotel/infras/s3"
	"hotel/internal/events"
	"hotel/internal/jobs"
	"hotel/permissions"
	"hotel/shared/cache"
	gRepo "hotel/shared/repository"
	"hotel/transport/http"
	"hotel/transport/http/middleware"
	"hotel/transport/http/router"

	bookingRepository "hotel/internal/domains/booking/repository"
	branchRepository "hotel/internal/domains/branch/repository"
	branchService "hotel/internal/domains/branch/service"
	roomRepository "hotel/internal/domains/room/repository"
	roomService "hotel/internal/domains/room/service"

	bookingHandler "hotel/internal/handlers/booking"
	branchHandler "hotel/internal/handlers/branch"
	roomHandler "hotel/internal/handlers/room"
	staffHandler "hotel/internal/handlers/staff"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	s3.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	gRepo.NewTransactor,
	events.NewBookingDispatcher,
)

var branchDomain = wire.NewSet(
	branchRepository.New,
	branchService.New,
)

var roomDomain = wire.NewSet(
	roomRepository.New,
	roomService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	newBookingService,
)

var domains = wire.NewSet(
	branchDomain,
	roomDomain,
	bookingDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	branchHandler.New,
	roomHandler.New,
	bookingHandler.New,
	staffHandler.New,
	router.New,
)

func InitializeApp() (*App, error) {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
		jobs.NewBookingScheduler,
		wire.Struct(new(App), "*"),
	)

	return &App{}, nil
}

func InitializeWorker() (*Worker, error) {
	wire.Build(
		config.Get,
		postgres.New,
		otel.New,
		redis.New,
		kafka.New,
		s3.New,
		cache.NewRedisCache,
		events.NewBookingDispatcher,
		bookingRepository.New,
		jobs.NewBookingScheduler,
		wire.Struct(new(Worker), "*"),
	)

	return &Worker{}, nil
}
