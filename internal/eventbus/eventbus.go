// Package eventbus publishes EventSignal and ReplanTrigger notifications
// after a transaction commits. Publishing is best-effort: a broker
// outage never blocks or fails the triggering write.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"planengine/internal/config"
	"planengine/internal/models"
)

const exchangeType = "topic"

const (
	RoutingKeyEventSignal   = "event.signal"
	RoutingKeyReplanTrigger = "replan.trigger"
)

// Publisher emits domain notifications onto the event bus.
type Publisher interface {
	PublishEventSignal(ctx context.Context, e models.EventSignal) error
	PublishReplanTrigger(ctx context.Context, t models.ReplanTrigger) error
	Close() error
}

// amqpPublisher is the amqp091-go backed implementation.
type amqpPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials the broker, opens a channel, and declares the
// durable topic exchange events are published onto.
func NewAMQPPublisher(cfg config.AMQPConfig) (Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("eventbus: dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("eventbus: open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(cfg.Exchange, exchangeType, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("eventbus: declare exchange %q: %w", cfg.Exchange, err)
	}

	return &amqpPublisher{conn: conn, channel: channel, exchange: cfg.Exchange}, nil
}

func (p *amqpPublisher) publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("eventbus: marshal %s: %w", routingKey, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.channel.PublishWithContext(pubCtx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
}

func (p *amqpPublisher) PublishEventSignal(ctx context.Context, e models.EventSignal) error {
	if err := p.publish(ctx, RoutingKeyEventSignal, e); err != nil {
		log.Warn().Err(err).Str("trip_id", e.TripID.String()).Msg("failed to publish event signal")
		return err
	}
	return nil
}

func (p *amqpPublisher) PublishReplanTrigger(ctx context.Context, t models.ReplanTrigger) error {
	if err := p.publish(ctx, RoutingKeyReplanTrigger, t); err != nil {
		log.Warn().Err(err).Str("trip_id", t.TripID.String()).Msg("failed to publish replan trigger")
		return err
	}
	return nil
}

func (p *amqpPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NullPublisher discards everything. Used when no broker is configured,
// e.g. in tests.
type NullPublisher struct{}

func (NullPublisher) PublishEventSignal(ctx context.Context, e models.EventSignal) error   { return nil }
func (NullPublisher) PublishReplanTrigger(ctx context.Context, t models.ReplanTrigger) error { return nil }
func (NullPublisher) Close() error                                                          { return nil }
