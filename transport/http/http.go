package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"hotel/config"
	_ "hotel/docs" // swagger spec
	"hotel/infras/kafka"
	"hotel/infras/otel"
	"hotel/infras/postgres"
	"hotel/internal/events"
	"hotel/shared/constant"
	"hotel/transport/http/middleware"
	"hotel/transport/http/response"
	"hotel/transport/http/router"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"
)

type ServerState int32

const (
	ServerStateReady ServerState = iota + 1
	ServerStateInGracePeriod
	ServerStateInCleanupPeriod
)

const (
	readHeaderTimeout   = 10 * time.Second
	idleTimeout         = 60 * time.Second
	defaultCleanupGrace = 10 * time.Second
)

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

type HTTP struct {
	Config *config.Config
	Router router.Router

	app        middleware.AppMiddleware
	dispatcher events.Dispatcher
	kafka      kafka.Client
	db         *postgres.Connection
	otel       otel.Otel

	state  atomic.Int32
	once   sync.Once
	mux    *chi.Mux
	server *http.Server

	mu    sync.Mutex
	hooks []shutdownHook
}

func New(
	cfg *config.Config,
	r router.Router,
	app middleware.AppMiddleware,
	dispatcher events.Dispatcher,
	kafkaClient kafka.Client,
	db *postgres.Connection,
	otl otel.Otel,
) *HTTP {
	return &HTTP{
		Config:     cfg,
		Router:     r,
		app:        app,
		dispatcher: dispatcher,
		kafka:      kafkaClient,
		db:         db,
		otel:       otl,
	}
}

// OnShutdown registers fn to run during the cleanup period, before the event queue
// is drained. Hooks run in registration order.
func (h *HTTP) OnShutdown(name string, fn func(ctx context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hooks = append(h.hooks, shutdownHook{name: name, fn: fn})
}

func (h *HTTP) State() ServerState {
	return ServerState(h.state.Load())
}

// Serve blocks until SIGINT or SIGTERM and then shuts the server down gracefully.
func (h *HTTP) Serve() {
	h.setup()

	h.server = &http.Server{
		Addr:              net.JoinHostPort(h.Config.Server.Host, h.Config.Server.Port),
		Handler:           h.mux,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	errs := make(chan error, 1)

	go func() {
		log.Info().Str("port", h.Config.Server.Port).Msg("Starting up HTTP server.")

		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	case <-signals:
		h.shutdown()
	}
}

// ServeHTTP lets the server run behind another listener, such as a serverless handler.
func (h *HTTP) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	h.setup()
	h.mux.ServeHTTP(writer, request)
}

func (h *HTTP) setup() {
	h.once.Do(func() {
		h.setupRoutes()
		h.state.Store(int32(ServerStateReady))
	})
}

func (h *HTTP) setupRoutes() {
	h.mux = chi.NewRouter()

	h.mux.Use(chiMiddleware.RequestID)
	h.mux.Use(chiMiddleware.RealIP)
	h.mux.Use(chiMiddleware.Recoverer)
	h.mux.Use(h.app.Tracing)

	if cfg := h.Config.App.CORS; cfg.Enable {
		h.mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   cfg.AllowedMethods,
			AllowedHeaders:   cfg.AllowedHeaders,
			AllowCredentials: cfg.AllowCredentials,
			MaxAge:           cfg.MaxAgeSeconds,
		}))
	}

	h.mux.Use(h.app.RateLimit())
	h.mux.Use(h.rejectWhileShuttingDown)

	h.mux.Get("/health", h.health)

	if h.Config.Server.Env != constant.ServerEnvProduction {
		h.mux.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	}

	h.Router.SetupRoutes(h.mux)
}

func (h *HTTP) health(writer http.ResponseWriter, _ *http.Request) {
	if h.State() != ServerStateReady {
		response.WithUnhealthy(writer)

		return
	}

	response.WithMessage(writer, http.StatusOK, "OK")
}

// rejectWhileShuttingDown turns new requests away once the cleanup period starts.
// During the grace period requests are still served so load balancers can drain.
func (h *HTTP) rejectWhileShuttingDown(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if h.State() == ServerStateInCleanupPeriod {
			response.WithPreparingShutdown(writer)

			return
		}

		next.ServeHTTP(writer, request)
	})
}

func (h *HTTP) shutdown() {
	if h.Config.Server.Env == constant.ServerEnvDevelopment {
		log.Warn().Msg("Received SIGTERM. Shutting down now.")

		h.cleanup(defaultCleanupGrace)

		return
	}

	shutdownConfig := h.Config.Server.Shutdown

	log.Info().Msg("Received SIGTERM.")
	log.Info().Int64("seconds", shutdownConfig.GracePeriodSeconds).Msg("Entering grace period.")

	h.state.Store(int32(ServerStateInGracePeriod))

	time.Sleep(time.Duration(shutdownConfig.GracePeriodSeconds) * time.Second)

	log.Info().Int64("seconds", shutdownConfig.CleanupPeriodSeconds).Msg("Entering cleanup period.")

	h.state.Store(int32(ServerStateInCleanupPeriod))

	cleanupPeriod := time.Duration(shutdownConfig.CleanupPeriodSeconds) * time.Second
	if cleanupPeriod <= 0 {
		cleanupPeriod = defaultCleanupGrace
	}

	h.cleanup(cleanupPeriod)

	log.Info().Msg("Cleaning up completed. Shutting down now.")
}

// cleanup stops accepting connections, runs the registered hooks and then drains the
// event queue before closing the producers and pools it depends on.
func (h *HTTP) cleanup(period time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), period)
	defer cancel()

	if h.server != nil {
		if err := h.server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down HTTP server")
		}
	}

	h.mu.Lock()
	hooks := h.hooks
	h.mu.Unlock()

	for _, hook := range hooks {
		if err := hook.fn(ctx); err != nil {
			log.Error().Err(err).Str("hook", hook.name).Msg("Shutdown hook failed")
		}
	}

	if err := h.dispatcher.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to drain event queue")
	}

	if err := h.kafka.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Kafka client")
	}

	if err := h.db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database connections")
	}

	if err := h.otel.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}
}
