package container

import (
	"time"

	app "pothole-watch/internal/application"
	"pothole-watch/internal/domain/calibration"
	"pothole-watch/internal/domain/port"
	"pothole-watch/internal/infrastructure/notify"
	"pothole-watch/internal/metrics"
)

// Deps внешние зависимости сервисов приложения
type Deps struct {
	Users       port.UserRepository
	Reports     port.ReportRepository
	Images      port.ImageStore
	Segmenter   port.Segmenter
	Calibration calibration.Calibration
	Exporter    port.ReportExporter
	Maps        port.MapRenderer
	Metrics     *metrics.Metrics

	// NotifyTimeout бюджет рассылки одного отчёта, 0 означает значение по умолчанию
	NotifyTimeout time.Duration
}

type Container struct {
	UserService      *app.UserService
	DetectionService *app.DetectionService
	ReportService    *app.ReportService

	// Notifier рассылка новых отчётов, каналы добавляются через Add
	Notifier *notify.Fanout
}

func New(deps Deps) *Container {
	fanout := notify.NewFanout(deps.NotifyTimeout)

	return &Container{
		UserService:      app.NewUserService(deps.Users),
		DetectionService: app.NewDetectionService(deps.Segmenter, deps.Calibration, deps.Images, deps.Reports, fanout, deps.Metrics),
		ReportService:    app.NewReportService(deps.Reports, deps.Images, deps.Exporter, deps.Maps),
		Notifier:         fanout,
	}
}
