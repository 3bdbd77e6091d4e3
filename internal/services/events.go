package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
)

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type PublisherConfig struct {
	Topic     string
	PollEvery time.Duration
	BatchSize int
}

// EventPublisher relays appointment events from the outbox to Kafka. Delivery
// is at least once: a batch is marked published only after the broker has
// acknowledged it, so consumers dedupe on the event_id header.
type EventPublisher struct {
	outbox    store.OutboxRepository
	writer    MessageWriter
	logger    zerolog.Logger
	topic     string
	pollEvery time.Duration
	batchSize int
	now       func() time.Time
}

func NewEventPublisher(outbox store.OutboxRepository, writer MessageWriter, logger zerolog.Logger, cfg PublisherConfig) *EventPublisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Topic == "" {
		cfg.Topic = "clinic.appointments"
	}
	return &EventPublisher{
		outbox:    outbox,
		writer:    writer,
		logger:    logger.With().Str("component", "outbox_publisher").Logger(),
		topic:     cfg.Topic,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		now:       time.Now,
	}
}

// NewKafkaWriter returns a writer that keys partitions by appointment id, so
// the events of one appointment stay ordered.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// Run polls the outbox until ctx is cancelled.
func (p *EventPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	p.logger.Info().Str("topic", p.topic).Dur("poll_every", p.pollEvery).Msg("outbox publisher started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error().Err(err).Msg("outbox publish failed")
			}
		}
	}
}

// PublishBatch sends one batch of unpublished events and returns how many
// were sent.
func (p *EventPublisher) PublishBatch(ctx context.Context) (int, error) {
	records, err := p.outbox.FetchUnpublished(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, toMessage(p.topic, r))
		ids = append(ids, r.ID.Hex())
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	if err := p.outbox.MarkPublished(ctx, ids, p.now().UTC()); err != nil {
		return 0, fmt.Errorf("mark published: %w", err)
	}

	p.logger.Debug().Int("count", len(msgs)).Msg("outbox batch published")
	return len(msgs), nil
}

func toMessage(topic string, e models.Event) kafka.Message {
	return kafka.Message{
		Topic: topic,
		Key:   []byte(e.AggregateID),
		Value: e.Payload,
		Time:  e.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(e.EventID)},
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
}
