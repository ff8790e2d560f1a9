// Package imageio декодирует входящие фотографии.
package imageio

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	log "github.com/sirupsen/logrus"

	"pothole-watch/internal/domain/entity"
)

// MaxPixels предел числа пикселей, проверяется по заголовку до декодирования
const MaxPixels = 50_000_000

// Photo декодированное изображение и геопозиция из EXIF, если она есть
type Photo struct {
	Image    image.Image
	Location *entity.Location
}

// Decode декодирует JPEG/PNG/GIF/BMP/TIFF с учётом EXIF-ориентации
func Decode(data []byte) (*Photo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", entity.ErrInvalidInput)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image header: %w", entity.ErrInvalidInput, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: image is %dx%d, limit is %d pixels",
			entity.ErrInvalidInput, cfg.Width, cfg.Height, MaxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %w", entity.ErrInvalidInput, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: image has no pixels", entity.ErrInvalidInput)
	}

	return &Photo{Image: img, Location: GPSLocation(data)}, nil
}

// GPSLocation читает координаты из EXIF. nil, если их нет или они некорректны.
func GPSLocation(data []byte) *entity.Location {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	lat, lon, err := x.LatLong()
	if err != nil {
		return nil
	}

	loc := entity.Location{Latitude: lat, Longitude: lon}
	if err := loc.Validate(); err != nil {
		log.WithError(err).Debug("Ignoring EXIF GPS")
		return nil
	}
	return &loc
}
