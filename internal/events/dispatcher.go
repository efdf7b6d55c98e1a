package events

//go:generate go run go.uber.org/mock/mockgen -source=./dispatcher.go -destination=./mocks/dispatcher_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"hotel/config"
	"hotel/infras/otel"
	"hotel/shared/constant"

	"github.com/rs/zerolog/log"
)

const (
	defaultQueueSize = 256
	defaultWorkers   = 2
)

var (
	ErrQueueFull        = errors.New("event queue is full")
	ErrDispatcherClosed = errors.New("event dispatcher is closed")
)

// Subscriber receives every published event. A failing subscriber is logged and
// does not stop delivery to the others.
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, event Event) error
}

// Dispatcher hands events to subscribers on background workers. Publish never
// waits for delivery.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Close(ctx context.Context) error
}

type dispatcherImpl struct {
	queue       chan Event
	subscribers []Subscriber
	otel        otel.Otel

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(cfg *config.Config, otl otel.Otel, subscribers ...Subscriber) Dispatcher {
	size := cfg.Notification.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	workers := cfg.Notification.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	d := &dispatcherImpl{
		queue:       make(chan Event, size),
		subscribers: subscribers,
		otel:        otl,
	}

	for range workers {
		d.wg.Add(1)

		go d.work()
	}

	return d
}

func (d *dispatcherImpl) Publish(_ context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the queued ones to be delivered.
func (d *dispatcherImpl) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return nil
	}

	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})

	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to drain event queue: %w", ctx.Err())
	}
}

func (d *dispatcherImpl) work() {
	defer d.wg.Done()

	for event := range d.queue {
		for _, subscriber := range d.subscribers {
			d.deliver(subscriber, event)
		}
	}
}

func (d *dispatcherImpl) deliver(subscriber Subscriber, event Event) {
	ctx, scope := d.otel.NewScope(context.Background(), constant.OtelEventScopeName, constant.OtelEventScopeName+"."+subscriber.Name())
	defer scope.End()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("subscriber", subscriber.Name()).Str("eventType", string(event.Type)).Msg("event subscriber panicked")
		}
	}()

	if err := subscriber.Handle(ctx, event); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("subscriber", subscriber.Name()).Str("eventType", string(event.Type)).Str("bookingID", event.Booking.ID).Msg("failed to deliver event")
	}
}
