// Package amqpqueue publishes events to RabbitMQ durable queues through the
// default exchange.
package amqpqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/MrJamesThe3rd/proposalflow/internal/event"
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch     Channel
	prefix string

	mu       sync.Mutex
	declared map[string]bool
}

func New(ch Channel, prefix string) *Publisher {
	return &Publisher{ch: ch, prefix: prefix, declared: make(map[string]bool)}
}

// Dial connects to url and opens a channel. The returned func closes both.
func Dial(url, prefix string) (*Publisher, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("opening channel: %w", err)
	}

	closeFn := func() error {
		if err := ch.Close(); err != nil {
			conn.Close()
			return fmt.Errorf("closing channel: %w", err)
		}

		return conn.Close()
	}

	return New(ch, prefix), closeFn, nil
}

func (p *Publisher) QueueName(queue string) string {
	return p.prefix + "." + queue
}

func (p *Publisher) Publish(ctx context.Context, queue string, e event.Event) error {
	name := p.QueueName(queue)

	if err := p.declare(name); err != nil {
		return err
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID.String(),
		Type:         string(e.Type),
		Timestamp:    e.OccurredAt,
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, "", name, false, false, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", name, err)
	}

	return nil
}

func (p *Publisher) declare(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.declared[name] {
		return nil
	}

	if _, err := p.ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", name, err)
	}

	p.declared[name] = true

	return nil
}
