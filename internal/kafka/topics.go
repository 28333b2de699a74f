package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/logger"
)

// EnsureTopicsExist creates missing topics through the cluster controller.
// Per-topic failures are logged and do not stop the remaining topics.
func EnsureTopicsExist(ctx context.Context, brokers []string, topics []string, l *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}

	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err := controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		})
		switch {
		case err == nil:
			l.LogKafka("CREATE_TOPIC", topic, "created")
		case errors.Is(err, kafka.TopicAlreadyExists):
			l.Debug("KAFKA", fmt.Sprintf("Topic %s already exists", topic))
		default:
			l.Error("KAFKA", fmt.Sprintf("Error creating topic %s: %v", topic, err))
		}
	}
	return nil
}
