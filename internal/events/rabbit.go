package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"PixRelay/internal/models"

	"github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher emits status changes to a fanout exchange.
type RabbitPublisher struct {
	conn     *amqp091.Connection
	exchange string
	logger   *slog.Logger
}

func NewRabbitPublisher(url, exchange string, logger *slog.Logger) (*RabbitPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &RabbitPublisher{conn: conn, exchange: exchange, logger: logger}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	return ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
}

func (p *RabbitPublisher) OrderStatusChanged(ctx context.Context, orderID string, status models.OrderStatus) {
	evt := NewStatusEvent(orderID, status)
	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("marshal status event", "order_id", orderID, "err", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Publish(pubCtx, "orders.status_changed", payload); err != nil {
		p.logger.Warn("publish status event failed", "order_id", orderID, "status", status, "err", err)
	}
}

func (p *RabbitPublisher) Close() error {
	return p.conn.Close()
}
