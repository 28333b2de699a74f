package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/logger"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RetryHandler redoes fulfilment for one booking.
type RetryHandler func(ctx context.Context, msg FulfillmentRetry) error

// RetryConsumer drains the fulfilment retry topic. Offsets are committed
// only after the handler succeeds or the message is unreadable.
type RetryConsumer struct {
	reader messageReader
	logger *logger.Logger
}

func NewRetryConsumer(brokers []string, topic, groupID string, l *logger.Logger) *RetryConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &RetryConsumer{reader: reader, logger: l}
}

// Run blocks until ctx is cancelled.
func (c *RetryConsumer) Run(ctx context.Context, handle RetryHandler) error {
	c.logger.Info("KAFKA", "Fulfillment retry consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			return err
		}

		var retry FulfillmentRetry
		if err := json.Unmarshal(msg.Value, &retry); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Dropping unreadable retry message at offset %d: %v", msg.Offset, err))
			c.commit(ctx, msg)
			continue
		}

		if err := handle(ctx, retry); err != nil {
			c.logger.Error("KAFKA", fmt.Sprintf("Retry for booking %s failed: %v", retry.BookingID, err))
			continue
		}
		c.commit(ctx, msg)
	}
}

func (c *RetryConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("KAFKA", fmt.Sprintf("Commit offset %d failed: %v", msg.Offset, err))
	}
}

func (c *RetryConsumer) Close() error {
	return c.reader.Close()
}
