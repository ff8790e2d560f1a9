//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/infrastructure/segmentation"
)

// GoCVPredictor локальная сегментация без нейросети: тёмная замкнутая область вокруг точки.
type GoCVPredictor struct {
	BlurKernel     int
	MinAreaRatio   float64
	MaxAreaRatio   float64
	MinImageSide   int
	MinExtentScore float64
}

// NewGoCVPredictor создаёт предиктор с порогами по умолчанию.
func NewGoCVPredictor() *GoCVPredictor {
	return &GoCVPredictor{
		BlurKernel:     7,
		MinAreaRatio:   0.0005,
		MaxAreaRatio:   0.6,
		MinImageSide:   64,
		MinExtentScore: 0.05,
	}
}

// Load проверяет, что OpenCV доступен.
func (p *GoCVPredictor) Load(ctx context.Context) error {
	_ = ctx
	probe := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8U)
	defer probe.Close()
	if probe.Empty() {
		return errors.New("opencv is not available")
	}
	return nil
}

// Predict ищет контур, содержащий точку-подсказку, и заливает его в маску.
func (p *GoCVPredictor) Predict(ctx context.Context, prompt segmentation.Prompt) (segmentation.Prediction, error) {
	_ = ctx
	mat, err := gocv.ImageToMatRGB(prompt.Image)
	if err != nil {
		return segmentation.Prediction{}, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return segmentation.Prediction{}, errors.New("empty image")
	}
	if mat.Cols() < p.MinImageSide || mat.Rows() < p.MinImageSide {
		return segmentation.Prediction{}, fmt.Errorf("image is too small (%dx%d)", mat.Cols(), mat.Rows())
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(gray, &blur, image.Pt(p.BlurKernel, p.BlurKernel), 0, 0, gocv.BorderDefault)

	// Ямы темнее асфальта вокруг: инвертированный порог Оцу.
	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(blur, &thresh, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	total := float64(mat.Cols() * mat.Rows())
	best := -1
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		if gocv.PointPolygonTest(c, prompt.Point, false) < 0 {
			continue
		}
		ratio := gocv.ContourArea(c) / total
		if ratio < p.MinAreaRatio || ratio > p.MaxAreaRatio {
			continue
		}
		best = i
		break
	}
	if best < 0 {
		return segmentation.Prediction{}, nil
	}

	c := contours.At(best)
	rect := gocv.BoundingRect(c)
	extent := 0.0
	if rectArea := rect.Dx() * rect.Dy(); rectArea > 0 {
		extent = gocv.ContourArea(c) / float64(rectArea)
	}
	if extent < p.MinExtentScore {
		return segmentation.Prediction{}, nil
	}

	filled := gocv.Zeros(mat.Rows(), mat.Cols(), gocv.MatTypeCV8U)
	defer filled.Close()
	gocv.DrawContours(&filled, contours, best, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	return segmentation.Prediction{
		Masks:  []entity.Mask{matToMask(filled)},
		Scores: []float64{clamp01(extent)},
	}, nil
}

func matToMask(m gocv.Mat) entity.Mask {
	mask := entity.NewMask(m.Cols(), m.Rows())
	for y := 0; y < m.Rows(); y++ {
		for x := 0; x < m.Cols(); x++ {
			if m.GetUCharAt(y, x) > 0 {
				mask.Set(x, y, true)
			}
		}
	}
	return mask
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ segmentation.Predictor = (*GoCVPredictor)(nil)
