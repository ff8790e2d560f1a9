package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
)

// SubjectReportCreated subject NATS для новых отчётов
const SubjectReportCreated = "potholes.reports.created"

// NATSPublisher публикует события в NATS
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher подключается к NATS
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("pothole-watch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: SubjectReportCreated}, nil
}

// Publish отправляет событие с заголовками для маршрутизации
func (p *NATSPublisher) Publish(ctx context.Context, event entity.ReportEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.conn == nil || !p.conn.IsConnected() {
		return errors.New("NATS connection not available")
	}

	msg, err := natsMessage(p.subject, event)
	if err != nil {
		return err
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to NATS: %w", err)
	}

	log.WithFields(log.Fields{"report_id": event.ID, "subject": p.subject}).Debug("Published report to NATS")
	return nil
}

// natsMessage JSON события и заголовки для маршрутизации без разбора тела
func natsMessage(subject string, event entity.ReportEvent) (*nats.Msg, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	headers := nats.Header{}
	headers.Set("x-report-id", strconv.FormatInt(event.ID, 10))
	headers.Set("x-severity", string(event.Severity))
	headers.Set("x-timestamp", event.CreatedAt.Format(time.RFC3339Nano))

	return &nats.Msg{Subject: subject, Data: body, Header: headers}, nil
}

// Close сбрасывает буфер и закрывает соединение
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

var _ port.Notifier = (*NATSPublisher)(nil)
