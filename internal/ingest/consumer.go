package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/savegress/opsight/internal/observability"
	"github.com/savegress/opsight/internal/store"
	"github.com/savegress/opsight/pkg/models"
)

// Header names set on dead-lettered messages
const (
	HeaderError    = "x-error"
	HeaderIngestID = "x-ingest-id"
)

// Retry wait bounds for failed fetches and store writes
const (
	minRetryWait = 100 * time.Millisecond
	maxRetryWait = 10 * time.Second
)

// MessageReader is the part of *kafka.Reader the consumer uses
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Invalidator evicts derived reports after new records are written
type Invalidator interface {
	Invalidate(ctx context.Context, records []models.OperationRecord) error
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
}

// Consumer handles Kafka message consumption
type Consumer struct {
	reader      MessageReader
	sink        store.RecordWriter
	deadLetter  *Publisher
	invalidator Invalidator
	logger      *zap.Logger
	tracer      trace.Tracer
	minWait     time.Duration
	maxWait     time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewReader creates a consumer-group reader for the job-log topic
func NewReader(cfg ConsumerConfig) (*kafka.Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.ConsumerGroup == "" {
		return nil, errors.New("kafka consumer group is required")
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	}), nil
}

// NewConsumer creates a consumer writing to sink. deadLetter and invalidator
// may be nil.
func NewConsumer(reader MessageReader, sink store.RecordWriter, deadLetter *Publisher, invalidator Invalidator, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		reader:      reader,
		sink:        sink,
		deadLetter:  deadLetter,
		invalidator: invalidator,
		logger:      logger.Named("ingest"),
		tracer:      observability.Tracer("github.com/savegress/opsight/internal/ingest"),
		minWait:     minRetryWait,
		maxWait:     maxRetryWait,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("kafka consumer started")
	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	err := c.reader.Close()
	if dlqErr := c.deadLetter.Close(); dlqErr != nil && err == nil {
		err = dlqErr
	}
	return err
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	wait := c.minWait
	for ctx.Err() == nil {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				break
			}
			c.logger.Error("failed to fetch message", zap.Duration("retry_in", wait), zap.Error(err))
			if !sleep(ctx, wait) {
				break
			}
			wait = c.backoff(wait)
			continue
		}
		wait = c.minWait

		c.processMessage(ctx, msg)
	}
	c.logger.Info("consumer loop stopping")
}

// processMessage stores one event. Invalid events are dead-lettered and
// committed. A failing store write is retried in place until it succeeds or
// ctx ends; the message is never committed before it is stored.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) {
	ingestID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "kafka.consume", trace.WithAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", msg.Topic),
		attribute.Int("messaging.kafka.partition", msg.Partition),
		attribute.Int64("messaging.kafka.offset", msg.Offset),
		attribute.String("ingest.id", ingestID),
	))
	defer span.End()

	log := c.logger.With(
		zap.String("ingest_id", ingestID),
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	ev, err := Decode(msg.Value)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Warn("rejecting invalid event", zap.Error(err))
		c.reject(ctx, log, ingestID, msg, err)
		observability.IncIngest(observability.IngestRejected)
		c.commit(ctx, log, msg)
		return
	}

	records := []models.OperationRecord{ev.Record()}
	if err := c.store(ctx, log, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("gave up storing event (not committing)", zap.Error(err))
		return
	}
	if c.invalidator != nil {
		if err := c.invalidator.Invalidate(ctx, records); err != nil {
			log.Warn("failed to invalidate cached reports", zap.Error(err))
		}
	}

	observability.IncIngest(observability.IngestAccepted)
	c.commit(ctx, log, msg)
}

// store writes records, retrying with growing waits. Offsets commit
// cumulatively, so the partition must not advance past an unstored message.
func (c *Consumer) store(ctx context.Context, log *zap.Logger, records []models.OperationRecord) error {
	wait := c.minWait
	for attempt := 1; ; attempt++ {
		err := c.sink.InsertRecords(ctx, records)
		if err == nil {
			return nil
		}
		observability.IncIngest(observability.IngestFailed)
		log.Error("failed to store event",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err))
		if !sleep(ctx, wait) {
			return err
		}
		wait = c.backoff(wait)
	}
}

func (c *Consumer) backoff(wait time.Duration) time.Duration {
	wait *= 2
	if wait > c.maxWait {
		wait = c.maxWait
	}
	return wait
}

// sleep waits for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) reject(ctx context.Context, log *zap.Logger, ingestID string, msg kafka.Message, cause error) {
	if c.deadLetter == nil {
		return
	}
	headers := make(map[string]string, len(msg.Headers)+2)
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	headers[HeaderError] = cause.Error()
	headers[HeaderIngestID] = ingestID
	if err := c.deadLetter.Publish(ctx, msg.Key, msg.Value, headers); err != nil {
		log.Error("failed to dead-letter event", zap.Error(err))
	}
}

func (c *Consumer) commit(ctx context.Context, log *zap.Logger, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("failed to commit message", zap.Error(err))
	}
}

// Health reports whether the consumer has a reader
func (c *Consumer) Health() bool {
	return c.reader != nil
}
