package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aq2208/goshop-api/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "shop.events"
	routingKey   = "order.confirmed"
	queueName    = "order.confirmed.q"
)

// RabbitProducer implements usecase.NotificationQueue.
type RabbitProducer struct {
	ch *amqp.Channel
}

// DeclareTopology sets up the exchange, queue, and binding. Called by the
// producer at startup and by the email worker, so either side may come up
// first.
func DeclareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, exchangeName, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

func NewRabbitProducer(ch *amqp.Channel) (*RabbitProducer, error) {
	if err := DeclareTopology(ch); err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}
	return &RabbitProducer{ch: ch}, nil
}

func (p *RabbitProducer) PublishOrderConfirmed(ctx context.Context, msg usecase.OrderConfirmedMsg) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// NoopProducer stands in when the broker is unreachable at startup: checkout
// must degrade to a no-op rather than fail, the skipped notification is only
// logged.
type NoopProducer struct {
	Log *slog.Logger
}

func (p NoopProducer) PublishOrderConfirmed(_ context.Context, msg usecase.OrderConfirmedMsg) error {
	if p.Log != nil {
		p.Log.Info("notification broker unavailable, skipping confirmation", "order_id", msg.OrderID)
	}
	return nil
}

var (
	_ usecase.NotificationQueue = (*RabbitProducer)(nil)
	_ usecase.NotificationQueue = NoopProducer{}
)
