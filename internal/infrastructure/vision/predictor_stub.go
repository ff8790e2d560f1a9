//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"pothole-watch/internal/infrastructure/segmentation"
)

// ErrNoGoCV сборка без тега gocv
var ErrNoGoCV = errors.New("gocv build tag is not enabled")

// GoCVPredictor предиктор-заглушка (без OpenCV).
type GoCVPredictor struct {
	BlurKernel     int
	MinAreaRatio   float64
	MaxAreaRatio   float64
	MinImageSide   int
	MinExtentScore float64
}

// NewGoCVPredictor создаёт предиктор-заглушку.
func NewGoCVPredictor() *GoCVPredictor {
	return &GoCVPredictor{
		BlurKernel:     7,
		MinAreaRatio:   0.0005,
		MaxAreaRatio:   0.6,
		MinImageSide:   64,
		MinExtentScore: 0.05,
	}
}

// Load всегда падает: адаптер останется неготовым.
func (p *GoCVPredictor) Load(ctx context.Context) error {
	_ = ctx
	return ErrNoGoCV
}

// Predict возвращает ошибку, если сборка без тега gocv.
func (p *GoCVPredictor) Predict(ctx context.Context, prompt segmentation.Prompt) (segmentation.Prediction, error) {
	_ = ctx
	_ = prompt
	return segmentation.Prediction{}, ErrNoGoCV
}

var _ segmentation.Predictor = (*GoCVPredictor)(nil)
