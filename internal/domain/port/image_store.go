package port

import (
	"context"
	"image"
)

// ImageStore хранилище оверлеев
type ImageStore interface {
	// Save сохраняет изображение под уникальным именем и возвращает ссылку на него
	Save(ctx context.Context, img image.Image) (string, error)

	// Open возвращает байты изображения или entity.ErrNotFound
	Open(ctx context.Context, ref string) ([]byte, error)
}
