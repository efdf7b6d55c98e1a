package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotel/config"
	"hotel/di"
	"hotel/shared/logger"

	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	runOnce := flag.String("run", "", "run the named job once and exit (expire-past-bookings, check-in-reminder)")
	flag.Parse()

	cfg := config.Get()

	logger.InitLogger(cfg)
	logger.SetLogLevel(cfg)

	worker, err := di.InitializeWorker()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *runOnce != "" {
		runErr := worker.Scheduler.Run(ctx, *runOnce)
		closeWorker(worker)

		if runErr != nil {
			log.Fatal().Err(runErr).Str("job", *runOnce).Msg("Job failed")
		}

		return
	}

	worker.Scheduler.Start()

	<-ctx.Done()

	log.Info().Msg("Received shutdown signal, stopping scheduler.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := worker.Scheduler.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop scheduler")
	}

	closeWorker(worker)
}

func closeWorker(worker *di.Worker) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := worker.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to close worker")
	}
}
