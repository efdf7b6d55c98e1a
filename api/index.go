package handler

import (
	"net/http"
	"sync"

	"hotel/config"
	"hotel/di"
	"hotel/shared/logger"

	"github.com/rs/zerolog/log"
)

var (
	app     *di.App
	appOnce sync.Once
)

// Handler serves the API as a serverless function. The scheduler does not run here;
// deploy cmd/worker next to it for the maintenance jobs.
func Handler(w http.ResponseWriter, r *http.Request) {
	appOnce.Do(func() {
		cfg := config.Get()

		logger.InitLogger(cfg)
		logger.SetLogLevel(cfg)

		var err error

		app, err = di.InitializeApp()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize service")
		}
	})

	r.RequestURI = r.URL.String()

	app.HTTP.ServeHTTP(w, r)
}
