package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	DLQExchangeName = "dashboard.events.dlq"
)

// DeclareDLQExchange declares the dead letter exchange.
func DeclareDLQExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(DLQExchangeName, "topic", true, false, false, false, nil)
}

// DeclareDLQQueue declares and binds "<routingKey>.dlq".
func DeclareDLQQueue(ch *amqp091.Channel, routingKey string) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(routingKey+".dlq", true, false, false, false, nil)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare DLQ queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, routingKey, DLQExchangeName, false, nil); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to bind DLQ queue: %w", err)
	}
	return q, nil
}

// PublishToDLQ publishes an undecodable message with the failure reason in its headers.
func (p *Publisher) PublishToDLQ(routingKey string, payload []byte, originalError string) error {
	if _, err := DeclareDLQQueue(p.channel, routingKey); err != nil {
		return err
	}
	return p.channel.Publish(
		DLQExchangeName,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp091.Persistent,
			Headers: amqp091.Table{
				"x-original-error": originalError,
				"x-failed-at":      "dashboard-service",
			},
		},
	)
}
