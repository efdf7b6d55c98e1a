package postgres

//nolint:revive
import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"hotel/config"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	postgresMaxIdleConnection = 10
	postgresMaxOpenConnection = 10
	postgresConnMaxLifetime   = 30 * time.Minute
)

// Connection splits traffic between the primary (Write) and a replica (Read).
// Anything that locks rows or must observe its own writes goes through Write.
type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

type endpoint struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	SSLMode  string
}

func New(cfg *config.Config) *Connection {
	pg := cfg.DB.Postgres

	return &Connection{
		Read: connect("read", endpoint{
			Host: pg.Read.Host, Port: pg.Read.Port, Username: pg.Read.Username,
			Password: pg.Read.Password, Name: pg.Prefix + pg.Read.Name, SSLMode: pg.Read.SSLMode,
		}, pg.MaxRetry, pg.RetryWaitTime),
		Write: connect("write", endpoint{
			Host: pg.Write.Host, Port: pg.Write.Port, Username: pg.Write.Username,
			Password: pg.Write.Password, Name: pg.Prefix + pg.Write.Name, SSLMode: pg.Write.SSLMode,
		}, pg.MaxRetry, pg.RetryWaitTime),
	}
}

func (e endpoint) dsn() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(e.Username, e.Password),
		Host:     net.JoinHostPort(e.Host, e.Port),
		Path:     e.Name,
		RawQuery: url.Values{"sslmode": []string{e.SSLMode}}.Encode(),
	}

	return u.String()
}

// connect retries with a constant wait until the database answers or maxRetry is spent.
// It returns nil when every attempt failed.
func connect(name string, ep endpoint, maxRetry, waitSeconds int) *sqlx.DB {
	logger := log.With().Str("name", name).Str("host", ep.Host).Str("port", ep.Port).Str("dbName", ep.Name).Logger()

	db, err := backoff.Retry(context.Background(),
		func() (*sqlx.DB, error) {
			return sqlx.Connect("postgres", ep.dsn())
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(time.Duration(waitSeconds)*time.Second)),
		backoff.WithMaxTries(uint(max(maxRetry, 1))),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Error().Err(err).Dur("retryIn", next).Msg("Failed connecting to database, retrying")
		}),
	)
	if err != nil {
		logger.Error().Err(fmt.Errorf("giving up: %w", err)).Msg("Failed connecting to database")

		return nil
	}

	db.SetMaxIdleConns(postgresMaxIdleConnection)
	db.SetMaxOpenConns(postgresMaxOpenConnection)
	db.SetConnMaxLifetime(postgresConnMaxLifetime)

	logger.Info().Msg("Connected to database")

	return db
}

// Close closes both pools. A pool that never connected is skipped.
func (c *Connection) Close() error {
	var errs []error

	for _, db := range []*sqlx.DB{c.Read, c.Write} {
		if db == nil {
			continue
		}

		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
