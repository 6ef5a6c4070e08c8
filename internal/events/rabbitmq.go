package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchangeName is the fanout exchange events are published to
const DefaultExchangeName = "taskboard_events"

// RabbitMQPublisher publishes events to a durable fanout exchange. Each subscriber gets
// its own exclusive queue, so every watcher sees every event.
type RabbitMQPublisher struct {
	conn         *amqp.Connection
	mu           sync.Mutex
	channel      *amqp.Channel
	exchangeName string
}

// NewRabbitMQPublisher connects to amqpURL and declares the exchange
func NewRabbitMQPublisher(amqpURL string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p := &RabbitMQPublisher{
		conn:         conn,
		channel:      ch,
		exchangeName: DefaultExchangeName,
	}

	if err := declareExchange(ch, p.exchangeName); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return p, nil
}

func declareExchange(ch *amqp.Channel, name string) error {
	err := ch.ExchangeDeclare(
		name,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}

// Publish sends e to the exchange
func (p *RabbitMQPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		MessageId:   e.ID.String(),
		Timestamp:   e.At,
		Type:        string(e.Type),
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.PublishWithContext(ctx, p.exchangeName, "", false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe binds a fresh exclusive queue to the exchange and streams decoded events
// until ctx is cancelled. Undecodable messages are reported on the error channel and skipped.
func (p *RabbitMQPublisher) Subscribe(ctx context.Context) (<-chan Event, <-chan error, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("failed to declare subscriber queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", p.exchangeName, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("failed to bind subscriber queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumer tag (empty = auto-generate)
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	out := make(chan Event, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)
		defer func() { _ = ch.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					errs <- fmt.Errorf("delivery channel closed")
					return
				}
				e, err := Decode(d.Body)
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- e:
				}
			}
		}
	}()

	return out, errs, nil
}

// HealthCheck verifies the connection is still open
func (p *RabbitMQPublisher) HealthCheck(ctx context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("RabbitMQ connection is closed")
	}
	return nil
}

// Close closes the channel and connection
func (p *RabbitMQPublisher) Close() error {
	var err error
	if p.channel != nil {
		err = p.channel.Close()
	}
	if p.conn != nil {
		if closeErr := p.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
