package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/queue"
)

// QueuePublisher fans notifications out through a RabbitMQ fanout
// exchange so that every server instance, this one included, delivers them
// to its own sockets via queue.StartNotificationConsumer.  When the broker
// is unreachable the event is delivered through Fallback instead, which
// keeps single-node deployments working during broker outages.
type QueuePublisher struct {
	URL      string
	Exchange string
	Fallback Notifier
	Timeout  time.Duration

	logger *zap.Logger
	origin string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewQueuePublisher does not dial; the connection is opened on first use
// and reopened after failures.
func NewQueuePublisher(url, exchange string, fallback Notifier, logger *zap.Logger) *QueuePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fallback == nil {
		fallback = Nop{}
	}
	return &QueuePublisher{
		URL:      url,
		Exchange: exchange,
		Fallback: fallback,
		Timeout:  5 * time.Second,
		logger:   logger.Named("notify-publisher"),
		origin:   uuid.NewString(),
	}
}

// Notify publishes the event, falling back to local delivery on error.
func (p *QueuePublisher) Notify(ctx context.Context, roles []string, event string, payload any) {
	if err := p.Publish(ctx, roles, event, payload); err != nil {
		p.logger.Warn("publish failed; delivering locally",
			zap.String("event", event), zap.Error(err))
		p.Fallback.Notify(ctx, roles, event, payload)
	}
}

// Publish sends one persistent JSON message to the exchange.
func (p *QueuePublisher) Publish(ctx context.Context, roles []string, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	body, err := json.Marshal(queue.NotificationEvent{
		Roles:     roles,
		Event:     event,
		Payload:   raw,
		Origin:    p.origin,
		EmittedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	err = ch.PublishWithContext(ctx,
		p.Exchange, // fanout exchange
		"",         // routing key ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// channel returns the cached channel, dialing when needed.  Callers hold mu.
func (p *QueuePublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(p.Timeout)})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := queue.DeclareExchange(ch, p.Exchange); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("exchange declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *QueuePublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close releases the broker connection.
func (p *QueuePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
