package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
)

// RoutingKeyReportCreated ключ маршрутизации новых отчётов
const RoutingKeyReportCreated = "report.created"

// AMQPPublisher публикует события в обменник RabbitMQ
type AMQPPublisher struct {
	mu       sync.Mutex
	amqpURL  string
	exchange string
	conn     *amqp.Connection
	channel  *amqp.Channel
}

// NewAMQPPublisher подключается и объявляет direct-обменник
func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{amqpURL: amqpURL, exchange: exchange}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

// Publish отправляет событие; при обрыве соединения переподключается один раз
func (p *AMQPPublisher) Publish(ctx context.Context, event entity.ReportEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := amqpPublishing(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		if err := p.connectLocked(); err != nil {
			return err
		}
	}
	err = p.channel.Publish(p.exchange, RoutingKeyReportCreated, false, false, msg)
	if err == nil {
		return nil
	}

	log.WithError(err).Warn("AMQP publish failed, reconnecting")
	p.closeLocked()
	if err := p.connectLocked(); err != nil {
		return err
	}
	if err := p.channel.Publish(p.exchange, RoutingKeyReportCreated, false, false, msg); err != nil {
		return fmt.Errorf("publish to RabbitMQ: %w", err)
	}
	return nil
}

// amqpPublishing постоянное JSON-сообщение с id отчёта в заголовках
func amqpPublishing(event entity.ReportEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    strconv.FormatInt(event.ID, 10),
		Type:         RoutingKeyReportCreated,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"x-severity": string(event.Severity),
		},
		Body: body,
	}, nil
}

// Close закрывает канал и соединение
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *AMQPPublisher) connectLocked() error {
	conn, err := amqp.Dial(p.amqpURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(p.exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = ch
	return nil
}

func (p *AMQPPublisher) closeLocked() {
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

var _ port.Notifier = (*AMQPPublisher)(nil)
