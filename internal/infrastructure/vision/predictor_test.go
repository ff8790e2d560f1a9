//go:build gocv
// +build gocv

package vision

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"pothole-watch/internal/infrastructure/segmentation"
)

// roadWithHole светлый фон и тёмный квадрат 60x60 в центре
func roadWithHole() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			c := color.RGBA{R: 200, G: 200, B: 200, A: 255}
			if x >= 70 && x < 130 && y >= 70 && y < 130 {
				c = color.RGBA{R: 30, G: 30, B: 30, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestGoCVPredictor_MaskCoversOnlyTheContour(t *testing.T) {
	p := NewGoCVPredictor()
	require.NoError(t, p.Load(context.Background()))

	img := roadWithHole()
	pred, err := p.Predict(context.Background(), segmentation.Prompt{
		Image: img,
		Point: segmentation.Center(img),
		Label: segmentation.ForegroundLabel,
	})
	require.NoError(t, err)
	require.Len(t, pred.Masks, 1)

	mask := pred.Masks[0]
	require.InDelta(t, 3600, mask.Count(), 600)

	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			if x < 60 || x >= 140 || y < 60 || y >= 140 {
				require.False(t, mask.At(x, y), "pixel (%d,%d) outside the hole", x, y)
			}
		}
	}
}
