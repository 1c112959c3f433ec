package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// KafkaTransport writes envelopes to one topic keyed by aggregate id, so all
// events of a user land on the same partition in order.
type KafkaTransport struct {
	writer *kafka.Writer
}

func NewKafkaTransport(brokers []string, topic string, logger *logrus.Logger) *KafkaTransport {
	return &KafkaTransport{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Errorf("kafka: "+msg, args...)
		}),
	}}
}

func (t *KafkaTransport) Send(ctx context.Context, msg repository.OutboxMessage) error {
	body, err := json.Marshal(msg.Envelope)
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", msg.ID, err)
	}
	headers := make([]kafka.Header, 0, 6)
	for k, v := range headersOf(msg) {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return t.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.AggregateID.String()),
		Value:   body,
		Headers: headers,
		Time:    msg.OccurredAt,
	})
}

func (t *KafkaTransport) Close() error {
	return t.writer.Close()
}
