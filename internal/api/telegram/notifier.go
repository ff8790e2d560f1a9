package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "pothole-watch/internal/application"
	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
)

const msgNewPotholeFormat = `🚧 Новая яма #%d

Опасность: %s
Площадь: %.2f м²
Координаты: %.5f, %.5f`

// Notifier объявляет о новых ямах подписанным чатам
type Notifier struct {
	api   Messenger
	users *app.UserService
}

func NewNotifier(api Messenger, users *app.UserService) *Notifier {
	return &Notifier{api: api, users: users}
}

// Publish отправляет сообщение каждому подписчику, сбой одного чата не останавливает остальные
func (n *Notifier) Publish(ctx context.Context, event entity.ReportEvent) error {
	subscribers, err := n.users.Subscribers(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}

	text := fmt.Sprintf(msgNewPotholeFormat, event.ID, SeverityLabel(event.Severity),
		event.AreaM2, event.Latitude, event.Longitude)

	var errs []error
	for _, user := range subscribers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := n.api.Send(tgbotapi.NewMessage(user.ChatID, text)); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", user.ChatID, err))
		}
	}
	return errors.Join(errs...)
}

var _ port.Notifier = (*Notifier)(nil)
