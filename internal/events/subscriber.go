package events

import (
	"context"
	"path"
	"time"

	"hotel/config"
	"hotel/infras/kafka"
	"hotel/infras/otel"
	"hotel/infras/s3"

	"github.com/rs/zerolog/log"
)

type kafkaSubscriber struct {
	client kafka.Client
}

// NewKafkaSubscriber forwards events to the booking events topic, keyed by booking id.
func NewKafkaSubscriber(client kafka.Client) Subscriber {
	return &kafkaSubscriber{client: client}
}

func (k *kafkaSubscriber) Name() string {
	return "kafka"
}

func (k *kafkaSubscriber) Handle(ctx context.Context, event Event) error {
	return k.client.SendMessages(ctx, kafka.Message{Key: event.Booking.ID, Value: event})
}

type archiveSubscriber struct {
	store  s3.S3
	prefix string
}

// NewArchiveSubscriber keeps a copy of every event in object storage under
// prefix/branch/booking so a booking's history can be replayed in order.
func NewArchiveSubscriber(store s3.S3, prefix string) Subscriber {
	return &archiveSubscriber{store: store, prefix: prefix}
}

func (a *archiveSubscriber) Name() string {
	return "archive"
}

func (a *archiveSubscriber) Handle(ctx context.Context, event Event) error {
	return a.store.PutJSON(ctx, a.key(event), event)
}

func (a *archiveSubscriber) key(event Event) string {
	name := event.OccurredAt.UTC().Format(time.RFC3339Nano) + "_" + string(event.Type) + ".json"

	return path.Join(a.prefix, event.Booking.BranchID, event.Booking.ID, name)
}

type logSubscriber struct{}

func NewLogSubscriber() Subscriber {
	return logSubscriber{}
}

func (logSubscriber) Name() string {
	return "log"
}

func (logSubscriber) Handle(_ context.Context, event Event) error {
	entry := log.Info().
		Str("eventID", event.ID).
		Str("eventType", string(event.Type)).
		Str("bookingID", event.Booking.ID).
		Str("roomID", event.Booking.Room.ID).
		Str("checkIn", event.Booking.CheckInDate)

	if event.OldRoom != nil {
		entry = entry.Str("oldRoomID", event.OldRoom.ID)
	}

	entry.Msg("booking event")

	return nil
}

// NewBookingDispatcher always logs events. Kafka and the archive receive them when
// they are enabled.
func NewBookingDispatcher(cfg *config.Config, otl otel.Otel, client kafka.Client, store s3.S3) Dispatcher {
	subscribers := []Subscriber{NewLogSubscriber()}

	if cfg.Kafka.Enable {
		subscribers = append(subscribers, NewKafkaSubscriber(client))
	}

	if cfg.Archive.Enable {
		subscribers = append(subscribers, NewArchiveSubscriber(store, cfg.Archive.Prefix))
	}

	return NewDispatcher(cfg, otl, subscribers...)
}
