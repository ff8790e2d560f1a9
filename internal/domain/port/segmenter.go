package port

import (
	"context"
	"image"

	"pothole-watch/internal/domain/entity"
)

// Segmenter адаптер внешней модели сегментации
type Segmenter interface {
	// Ready сообщает, завершилась ли загрузка модели
	Ready() bool

	// Segment возвращает одну лучшую маску для точки-подсказки
	Segment(ctx context.Context, img image.Image, prompt image.Point) (entity.Segmentation, error)
}
