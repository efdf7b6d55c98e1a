// Package jobs runs the booking maintenance jobs on a cron schedule. Each job run is
// retried with exponential backoff and a run that keeps failing is only logged.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hotel/config"
	"hotel/infras/otel"
	"hotel/internal/domains/booking/repository"
	"hotel/internal/events"
	"hotel/shared/cache"
	"hotel/shared/timezone"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	defaultBatchSize       = 200
	defaultMaxTries        = 10
	defaultInitialInterval = 30 * time.Second
	defaultMaxInterval     = 10 * time.Minute
)

var ErrUnknownJob = errors.New("unknown job")

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type options struct {
	now     func() time.Time
	backOff func() backoff.BackOff
}

type Option func(*options)

// WithClock replaces the wall clock a job reads "now" from.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithBackOff replaces the retry interval policy built from config.
func WithBackOff(backOff func() backoff.BackOff) Option {
	return func(o *options) {
		o.backOff = backOff
	}
}

func clock(opts []Option) func() time.Time {
	o := options{now: timezone.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return o.now
}

type Scheduler struct {
	cron       *cron.Cron
	cfg        *config.Config
	backOff    func() backoff.BackOff
	maxTries   uint
	maxElapsed time.Duration

	mu   sync.RWMutex
	jobs map[string]Job

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(cfg *config.Config, opts ...Option) *Scheduler {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Scheduler{
		cfg:      cfg,
		backOff:  o.backOff,
		maxTries: cfg.Jobs.Retry.MaxTries,
		jobs:     map[string]Job{},
	}

	if s.maxTries == 0 {
		s.maxTries = defaultMaxTries
	}

	if s.backOff == nil {
		s.backOff = s.exponential
	}

	// every try may wait the full capped interval
	s.maxElapsed = time.Duration(s.maxTries) * s.maxInterval()

	logger := cronLogger{}
	s.cron = cron.New(
		cron.WithLocation(timezone.GetLocation()),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	return s
}

// NewBookingScheduler registers the expiry and check-in reminder jobs on their
// configured schedules.
func NewBookingScheduler(
	cfg *config.Config,
	repo repository.Booking,
	dispatcher events.Dispatcher,
	cache cache.RedisCache,
	otel otel.Otel,
) (*Scheduler, error) {
	s := NewScheduler(cfg)

	if err := s.Register(cfg.Jobs.Expire.Schedule, NewExpirePastBookings(repo, cfg, cache, otel)); err != nil {
		return nil, err
	}

	if err := s.Register(cfg.Jobs.Reminder.Schedule, NewCheckInReminder(repo, dispatcher, cfg, cache, otel)); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Register(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.cron.AddFunc(spec, func() { _ = s.run(s.ctx, job) }); err != nil {
		return errors.Wrapf(err, "invalid schedule %q for job %s", spec, job.Name())
	}

	s.jobs[job.Name()] = job

	log.Info().Str("job", job.Name()).Str("schedule", spec).Msg("job scheduled")

	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()

	log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()

	select {
	case <-s.cron.Stop().Done():
		log.Info().Msg("scheduler stopped")

		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop scheduler: %w", ctx.Err())
	}
}

// Run executes a registered job right away with the same retry policy as a scheduled run.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return errors.Wrap(ErrUnknownJob, name)
	}

	return s.run(ctx, job)
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	started := time.Now()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, job.Run(ctx)
	},
		backoff.WithBackOff(s.backOff()),
		backoff.WithMaxTries(s.maxTries),
		backoff.WithMaxElapsedTime(s.maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("job", job.Name()).Dur("retryIn", next).Msg("job failed, retrying")
		}),
	)
	if err != nil {
		log.Error().Err(err).Str("job", job.Name()).Uint("tries", s.maxTries).Msg("job gave up")

		return err
	}

	log.Info().Str("job", job.Name()).Dur("took", time.Since(started)).Msg("job finished")

	return nil
}

func (s *Scheduler) exponential() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultInitialInterval
	b.MaxInterval = s.maxInterval()

	if seconds := s.cfg.Jobs.Retry.InitialIntervalSeconds; seconds > 0 {
		b.InitialInterval = time.Duration(seconds) * time.Second
	}

	return b
}

func (s *Scheduler) maxInterval() time.Duration {
	if seconds := s.cfg.Jobs.Retry.MaxIntervalSeconds; seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultMaxInterval
}

func batchSize(cfg *config.Config) int {
	if cfg.Jobs.BatchSize > 0 {
		return cfg.Jobs.BatchSize
	}

	return defaultBatchSize
}

// cronLogger writes cron's own messages through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
