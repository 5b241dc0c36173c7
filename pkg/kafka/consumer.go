package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/segmentio/kafka-go"

	"StockML/pkg/logger"
)

// HandlerFunc processes one message value.
type HandlerFunc func(ctx context.Context, key, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic in a consumer group and hands each message to a
// handler. Offsets are committed after the handler succeeds or gives up,
// so a poison message cannot block the partition forever.
type Consumer struct {
	cfg    ConsumerConfig
	reader messageReader
	log    *logger.Logger
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(log *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := ConsumerConfig{
		GroupID:    "default",
		RetryMax:   3,
		BackoffMin: 100 * time.Millisecond,
		BackoffMax: 5 * time.Second,
		MinBytes:   1,
		MaxBytes:   10e6,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: kafka.LastOffset,
	})
	return newConsumer(cfg, reader, log), nil
}

func newConsumer(cfg ConsumerConfig, r messageReader, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Consumer{cfg: cfg, reader: r, log: log}
}

// Run consumes until ctx is cancelled. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) error {
	c.log.Info("kafka consumer started",
		logger.String("topic", c.cfg.Topic),
		logger.String("group", c.cfg.GroupID),
	)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.handleWithRetry(ctx, handle, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("message dropped after retries",
				logger.String("topic", msg.Topic),
				logger.Int("partition", msg.Partition),
				logger.Int64("offset", msg.Offset),
				logger.Error(err),
			)
		}

		if err := c.reader.CommitMessages(context.WithoutCancel(ctx), msg); err != nil {
			c.log.Warn("commit failed", logger.Int64("offset", msg.Offset), logger.Error(err))
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, handle HandlerFunc, msg kafka.Message) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = handle(ctx, msg.Key, msg.Value)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		c.log.Warn("handler failed, retrying",
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}
