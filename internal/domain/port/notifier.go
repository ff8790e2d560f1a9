package port

import (
	"context"

	"pothole-watch/internal/domain/entity"
)

// Notifier рассылает события о новых отчётах подписчикам
type Notifier interface {
	Publish(ctx context.Context, event entity.ReportEvent) error
}
