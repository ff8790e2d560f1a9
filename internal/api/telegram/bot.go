package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	app "pothole-watch/internal/application"
	"pothole-watch/internal/container"
	"pothole-watch/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я бот для учёта ям на дорогах.

📍 Отправьте геопозицию, затем фото ямы, и я оценю её размер и опасность.

📋 Команды:
/report — сообщить о яме
/subscribe — получать уведомления о новых ямах
/unsubscribe — отключить уведомления
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте /report
2️⃣ Поделитесь геопозицией ямы
3️⃣ Отправьте фото, яма должна быть в центре кадра
4️⃣ Вы получите оценку площади, глубины и опасности и фото с подсветкой

💡 Рекомендации:
• Снимайте сверху, с высоты роста
• Яма должна занимать центр кадра
• Без геопозиции берутся координаты из EXIF фото

📋 Команды:
/report — сообщить о яме
/subscribe, /unsubscribe — уведомления о новых ямах
/cancel — отменить операцию`

	msgAwaitingLocation = "📍 Отправьте геопозицию ямы (скрепка → Геопозиция)."
	msgAwaitingPhoto    = "📸 Теперь отправьте фото ямы."
	msgBadLocation      = "⚠️ Некорректная геопозиция, попробуйте ещё раз."
	msgCancelled        = "❌ Операция отменена. Отправьте /report для нового отчёта."
	msgSendPhoto        = "📸 Пожалуйста, отправьте фото ямы или /report, чтобы начать с геопозиции."
	msgUnknownCommand   = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing       = "⏳ Обрабатываю изображение..."
	msgNoPothole        = "✅ Яма на фото не обнаружена."
	msgModelNotReady    = "⏳ Модель ещё загружается, попробуйте через минуту."
	msgBadImage         = "⚠️ Не удалось прочитать изображение. Попробуйте другое фото."
	msgProcessingError  = "⚠️ Не удалось обработать изображение. Попробуйте сделать другое фото."
	msgSubscribed       = "🔔 Вы подписаны на уведомления о новых ямах."
	msgUnsubscribed     = "🔕 Уведомления отключены."

	msgReportFormat = `🕳 Яма #%d зарегистрирована

Опасность: %s
Площадь: %.2f м²
Глубина (оценка): %.2f м
Уверенность: %.1f%%`
)

const (
	downloadTimeout = 30 * time.Second

	// pollTimeout секунд long polling, клиент API ждёт чуть дольше
	pollTimeout = 60
	apiTimeout  = (pollTimeout + 15) * time.Second
)

// Messenger часть Telegram Bot API, нужная боту
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type updater interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot представляет Telegram-бота
type Bot struct {
	api       Messenger
	updates   updater
	users     *app.UserService
	detection *app.DetectionService
	reports   *app.ReportService
	client    *http.Client
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: apiTimeout})
	if err != nil {
		return nil, err
	}

	log.Infof("Authorized on account %s", api.Self.UserName)

	b := newBot(api, c)
	b.updates = api
	return b, nil
}

func newBot(api Messenger, c *container.Container) *Bot {
	return &Bot{
		api:       api,
		users:     c.UserService,
		detection: c.DetectionService,
		reports:   c.ReportService,
		client:    &http.Client{Timeout: downloadTimeout},
	}
}

// Notifier канал уведомлений подписчикам через этого бота
func (b *Bot) Notifier() *Notifier {
	return NewNotifier(b.api, b.users)
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout

	updates := b.updates.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.updates.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}

			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}

	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		log.WithError(err).Error("Error getting user")
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Обработка геопозиции
	if msg.Location != nil {
		b.handleLocation(ctx, msg)
		return
	}

	// Обработка фото
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	// Текстовое сообщение (не команда)
	if user.State == entity.StateAwaitingLocation {
		b.sendMessage(msg.Chat.ID, msgAwaitingLocation)
		return
	}
	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	var (
		err   error
		reply string
	)

	switch msg.Command() {
	case "start":
		_, err = b.users.Cancel(ctx, user.ID, user.ChatID)
		reply = msgStart

	case "help":
		reply = msgHelp

	case "report":
		_, err = b.users.BeginReport(ctx, user.ID, user.ChatID)
		reply = msgAwaitingLocation

	case "subscribe":
		_, err = b.users.Subscribe(ctx, user.ID, user.ChatID)
		reply = msgSubscribed

	case "unsubscribe":
		_, err = b.users.Unsubscribe(ctx, user.ID, user.ChatID)
		reply = msgUnsubscribed

	case "cancel":
		_, err = b.users.Cancel(ctx, user.ID, user.ChatID)
		reply = msgCancelled

	default:
		reply = msgUnknownCommand
	}

	if err != nil {
		log.WithError(err).WithField("command", msg.Command()).Error("Error updating user")
		reply = msgProcessingError
	}
	b.sendMessage(msg.Chat.ID, reply)
}

// handleLocation запоминает геопозицию для следующего фото
func (b *Bot) handleLocation(ctx context.Context, msg *tgbotapi.Message) {
	loc := entity.Location{Latitude: msg.Location.Latitude, Longitude: msg.Location.Longitude}
	if _, err := b.users.SetLocation(ctx, msg.From.ID, msg.Chat.ID, loc); err != nil {
		log.WithError(err).Warn("Rejected location")
		b.sendMessage(msg.Chat.ID, msgBadLocation)
		return
	}
	b.sendMessage(msg.Chat.ID, msgAwaitingPhoto)
}

// handlePhoto прогоняет фото через конвейер детекции
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	// Устанавливаем состояние "обработка" и забираем геопозицию
	_, loc, err := b.users.StartProcessing(ctx, msg.From.ID, chatID)
	if err != nil {
		log.WithError(err).Error("Error updating user")
		b.sendMessage(chatID, msgProcessingError)
		return
	}
	defer func() {
		if _, err := b.users.Finish(ctx, msg.From.ID, chatID); err != nil {
			log.WithError(err).Error("Error updating user")
		}
	}()

	b.sendMessage(chatID, msgProcessing)

	// Получаем файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(ctx, photo.FileID)
	if err != nil {
		log.WithError(err).Error("Error downloading photo")
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	res, err := b.detection.Detect(ctx, app.DetectionRequest{Image: imageData, Location: loc})
	if err != nil {
		b.sendMessage(chatID, failureText(err))
		return
	}
	if !res.Detected {
		b.sendMessage(chatID, msgNoPothole)
		return
	}

	b.sendReport(ctx, chatID, res.Report)
}

// sendReport отвечает оверлеем с подписью, а без оверлея текстом
func (b *Bot) sendReport(ctx context.Context, chatID int64, report *entity.Report) {
	caption := fmt.Sprintf(msgReportFormat, report.ID, SeverityLabel(report.Severity),
		report.AreaM2, report.DepthM, report.Confidence*100)

	overlay, err := b.reports.Image(ctx, report.ImagePath)
	if err != nil {
		log.WithError(err).WithField("report_id", report.ID).Warn("Overlay unavailable for reply")
		b.sendMessage(chatID, caption)
		return
	}

	reply := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: report.ImagePath, Bytes: overlay})
	reply.Caption = caption
	if _, err := b.api.Send(reply); err != nil {
		log.WithError(err).Error("Error sending photo")
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).Error("Error sending message")
	}
}

func failureText(err error) string {
	switch {
	case errors.Is(err, entity.ErrModelNotReady):
		return msgModelNotReady
	case errors.Is(err, entity.ErrInvalidInput):
		return msgBadImage
	default:
		return msgProcessingError
	}
}

// SeverityLabel название уровня опасности для сообщений
func SeverityLabel(s entity.Severity) string {
	switch s {
	case entity.SeverityHigh:
		return "🔴 высокая"
	case entity.SeverityMedium:
		return "🟠 средняя"
	default:
		return "🟢 низкая"
	}
}
