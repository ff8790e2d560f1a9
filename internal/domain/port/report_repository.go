package port

import (
	"context"

	"pothole-watch/internal/domain/entity"
)

// ReportRepository интерфейс хранилища отчётов
type ReportRepository interface {
	// Create назначает ID и CreatedAt, сохраняет атомарно и возвращает сохранённый отчёт
	Create(ctx context.Context, report *entity.Report) (*entity.Report, error)

	// ListAll возвращает все отчёты, новые первыми
	ListAll(ctx context.Context) ([]entity.Report, error)

	// Get возвращает отчёт по ID или entity.ErrNotFound
	Get(ctx context.Context, id int64) (*entity.Report, error)
}
