package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConversionEventPayload announces a terminal queue outcome (uploaded or
// dead_letter) to whatever consumes the conversions exchange: dashboards,
// the data warehouse loader, ops tooling.
type ConversionEventPayload struct {
	QueueItemID  string `json:"queue_item_id"`
	ConversionID string `json:"conversion_id"`
	Platform     string `json:"platform"`
	Status       string `json:"status"` // uploaded, dead_letter
	RetryCount   int    `json:"retry_count"`
	LastError    string `json:"last_error,omitempty"`
}

type RabbitMQProducer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{
		Conn: conn,
		Ch:   ch,
	}
}

func (p *RabbitMQProducer) PublishConversionEvent(ctx context.Context, payload ConversionEventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to RabbitMQ: %w", err)
	}

	return nil
}
