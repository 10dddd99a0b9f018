package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	requiredAcks := kafka.RequiredAcks(cfg.RequiredAcks)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           requiredAcks,
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// EventSource identifies this service in the event envelope
const EventSource = "sorrel"

// Event is the envelope every resolution lifecycle event is published in.
// Events are keyed by case so one case's events stay ordered on a partition.
type Event struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	CaseID    string          `json:"case_id"`
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func (e *Event) fillEnvelope(now time.Time) {
	if e.EventID == "" {
		e.EventID = uuid.New().String()
	}
	if e.Source == "" {
		e.Source = EventSource
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
}

// eventHeaders builds the message headers, carrying the active trace
// context so consumers can continue the trace
func eventHeaders(ctx context.Context, event *Event) []kafka.Header {
	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(event.EventType)},
		{Key: "case_id", Value: []byte(event.CaseID)},
	}
	if traceParent := tracing.GetTraceParent(ctx); traceParent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceParent)})
		if traceState := tracing.GetTraceState(ctx); traceState != "" {
			headers = append(headers, kafka.Header{Key: "tracestate", Value: []byte(traceState)})
		}
	}
	return headers
}

// PublishEvent publishes a single event to the events topic
func (p *Producer) PublishEvent(ctx context.Context, event *Event) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishEvent")
	defer span.End()

	event.fillEnvelope(time.Now().UTC())

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic:   p.topic,
		Key:     []byte(event.CaseID),
		Value:   data,
		Headers: eventHeaders(ctx, event),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"case_id":    event.CaseID,
	}).Debug("Published event")

	return nil
}

// PublishEvents publishes multiple events in a batch
func (p *Producer) PublishEvents(ctx context.Context, events []*Event) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	now := time.Now().UTC()
	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		event.fillEnvelope(now)

		data, err := json.Marshal(event)
		if err != nil {
			return err
		}

		messages[i] = kafka.Message{
			Topic:   p.topic,
			Key:     []byte(event.CaseID),
			Value:   data,
			Headers: eventHeaders(ctx, event),
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(events),
		}).Error("Failed to publish events batch")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(events),
	}).Debug("Published events batch")

	return nil
}
