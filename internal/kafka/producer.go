package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes keyed JSON messages to any topic. A disabled producer
// drops messages after logging them.
type Producer struct {
	writer  messageWriter
	logger  *logger.Logger
	enabled bool
}

func NewProducer(brokers []string, l *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &Producer{writer: writer, logger: l, enabled: true}
}

func NewDisabledProducer(l *logger.Logger) *Producer {
	return &Producer{logger: l}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	if !p.enabled {
		p.logger.Debug("KAFKA", fmt.Sprintf("Kafka disabled, dropping %s message for %s", topic, key))
		return nil
	}

	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.logger.LogKafka("PUBLISH", topic, key)
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
