package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"restaurant_pos_backend/pkg/utils"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys for order lifecycle events.
const (
	OrderCreated       = "order.created"
	OrderSplit         = "order.split"
	OrderStatusChanged = "order.status_changed"
	OrderPaid          = "order.paid"
	TableReleased      = "table.released"
)

// Publisher sends domain events after the state change is committed.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// Envelope wraps every published payload.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	utils.LogDebug("Event discarded, no broker configured", map[string]interface{}{"routing_key": routingKey})
	return nil
}

func (NoopPublisher) Close() error { return nil }

// RabbitPublisher publishes JSON envelopes to a durable topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
	channel  *amqp.Channel
	exchange string
	timeout  time.Duration
}

// NewRabbitPublisher dials url and declares the exchange.
func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening rabbitmq channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	utils.LogInfo("Connected to RabbitMQ", map[string]interface{}{"exchange": exchange})
	return &RabbitPublisher{conn: conn, channel: channel, exchange: exchange, timeout: 5 * time.Second}, nil
}

// NewEnvelope builds the message body for routingKey.
func NewEnvelope(routingKey string, payload any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
}

func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	envelope := NewEnvelope(routingKey, payload)
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", routingKey, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    envelope.ID,
			Timestamp:    envelope.OccurredAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publishing %s event: %w", routingKey, err)
	}

	utils.LogDebug("Event published", map[string]interface{}{"routing_key": routingKey, "event_id": envelope.ID})
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
