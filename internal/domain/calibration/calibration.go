// Package calibration переводит пиксельную статистику маски в физические величины.
//
// Глубина здесь эвристика по площади, а не измерение.
package calibration

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"pothole-watch/internal/domain/entity"
)

// DefaultPixelsPerMeter калибровка камеры по умолчанию
const DefaultPixelsPerMeter = 100.0

const (
	depthFloor = 0.05 // м
	depthSlope = 0.5
	depthCap   = 0.5 // м сверх depthFloor
)

// Highlight цвет, которым закрашивается маска на оверлее
var Highlight = color.NRGBA{R: 255, A: 255}

// AreaM2 площадь в м² по числу пикселей маски
func AreaM2(pixelCount int, pixelsPerMeter float64) float64 {
	if pixelCount <= 0 || !(pixelsPerMeter > 0) || math.IsInf(pixelsPerMeter, 0) {
		return 0
	}
	return float64(pixelCount) / (pixelsPerMeter * pixelsPerMeter)
}

// SeverityFor ступенчатая классификация по площади
func SeverityFor(areaM2 float64) entity.Severity {
	return entity.SeverityForArea(areaM2)
}

// DepthM оценка глубины, монотонна по площади, в пределах [0.05, 0.55]
func DepthM(areaM2 float64) float64 {
	if !(areaM2 > 0) {
		areaM2 = 0
	}
	return depthFloor + math.Min(areaM2*depthSlope, depthCap)
}

// Overlay возвращает копию изображения с закрашенной маской. Исходник не меняется.
func Overlay(img image.Image, mask entity.Mask) *image.NRGBA {
	out := imaging.Clone(img)
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if mask.At(x, y) {
				out.SetNRGBA(x, y, Highlight)
			}
		}
	}
	return out
}

// Measurement итог расчёта по одной маске
type Measurement struct {
	PixelCount int
	AreaM2     float64
	DepthM     float64
	Severity   entity.Severity
}

// Calibration параметры камеры. Нулевое значение использует DefaultPixelsPerMeter.
type Calibration struct {
	PixelsPerMeter float64
}

// Default калибровка по умолчанию
func Default() Calibration {
	return Calibration{PixelsPerMeter: DefaultPixelsPerMeter}
}

func (c Calibration) pixelsPerMeter() float64 {
	if c.PixelsPerMeter == 0 {
		return DefaultPixelsPerMeter
	}
	return c.PixelsPerMeter
}

// Measure считает площадь, глубину и уровень опасности
func (c Calibration) Measure(mask entity.Mask) Measurement {
	count := mask.Count()
	area := AreaM2(count, c.pixelsPerMeter())
	return Measurement{
		PixelCount: count,
		AreaM2:     area,
		DepthM:     DepthM(area),
		Severity:   SeverityFor(area),
	}
}
