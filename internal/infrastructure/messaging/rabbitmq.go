package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// confirmation is the broker's answer to one publish.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// publisher publishes to the default exchange and returns the pending
// confirmation.
type publisher interface {
	publish(ctx context.Context, queue string, msg amqp.Publishing) (confirmation, error)
}

type channelPublisher struct{ ch *amqp.Channel }

func (p channelPublisher) publish(ctx context.Context, queue string, msg amqp.Publishing) (confirmation, error) {
	dc, err := p.ch.PublishWithDeferredConfirmWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("rabbitmq: channel is not in confirm mode")
	}
	return dc, nil
}

// RabbitTransport publishes envelopes to a durable queue as persistent
// messages on a channel in confirm mode. The queue is declared once at
// construction.
type RabbitTransport struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	pub   publisher
	queue string
}

func NewRabbitTransport(url, queue string, prefetch int) (*RabbitTransport, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	return &RabbitTransport{conn: conn, ch: ch, pub: channelPublisher{ch: ch}, queue: queue}, nil
}

// ErrNotConfirmed means the broker nacked a publish.
var ErrNotConfirmed = errors.New("rabbitmq: publish not confirmed")

// Send returns nil only once the broker has confirmed the message.
func (t *RabbitTransport) Send(ctx context.Context, msg repository.OutboxMessage) error {
	body, err := json.Marshal(msg.Envelope)
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", msg.ID, err)
	}
	headers := amqp.Table{}
	for k, v := range headersOf(msg) {
		headers[k] = v
	}
	confirm, err := t.pub.publish(ctx, t.queue, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     msg.ID.String(),
		CorrelationId: msg.CorrelationID,
		Type:          msg.EventType,
		Timestamp:     msg.OccurredAt,
		Headers:       headers,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.ID, err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", msg.ID, err)
	}
	if !acked {
		return fmt.Errorf("%w: %s", ErrNotConfirmed, msg.ID)
	}
	return nil
}

// Consume decodes envelopes from the queue and passes them to handle until
// ctx ends. A handler error requeues the delivery; an undecodable body is
// dropped.
func (t *RabbitTransport) Consume(ctx context.Context, consumer string, handle func(ctx context.Context, env repository.Envelope) error) error {
	deliveries, err := t.ch.Consume(t.queue, consumer, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = t.ch.Cancel(consumer, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			var env repository.Envelope
			if err := json.Unmarshal(d.Body, &env); err != nil {
				_ = d.Nack(false, false)
				continue
			}
			if err := handle(ctx, env); err != nil {
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (t *RabbitTransport) Close() error {
	if t.ch != nil {
		_ = t.ch.Close()
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}
