package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventPublisher emits domain events. Publishing is best effort everywhere:
// callers discard the error after logging, never block on it.
type EventPublisher interface {
	Publish(ctx context.Context, tenantID, key string, payload any) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

// AMQPPublisher fans domain events out on a topic exchange, routing key
// "{tenantId}.{event}".
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare("secretary.events", "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, tenantID, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	routingKey := key
	if strings.TrimSpace(tenantID) != "" {
		routingKey = tenantID + "." + key
	}
	return p.channel.PublishWithContext(ctx, "secretary.events", routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
}
