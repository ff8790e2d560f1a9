package calibration

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"pothole-watch/internal/domain/entity"
)

func TestAreaM2(t *testing.T) {
	require.Equal(t, 0.0, AreaM2(0, 100))
	require.Equal(t, 0.0, AreaM2(-5, 100))
	require.Equal(t, 0.0, AreaM2(10, 0))
	require.InDelta(t, 0.05, AreaM2(500, 100), 1e-12)
	require.InDelta(t, 1.0, AreaM2(10000, 100), 1e-12)

	for _, tc := range []struct {
		pixels int
		k      float64
	}{{1, 1}, {250, 50}, {12345, 100}, {3, 0.5}} {
		require.InDelta(t, float64(tc.pixels)/(tc.k*tc.k), AreaM2(tc.pixels, tc.k), 1e-12)
	}
}

func TestSeverityFor_Boundaries(t *testing.T) {
	require.Equal(t, entity.SeverityLow, SeverityFor(0))
	require.Equal(t, entity.SeverityLow, SeverityFor(0.0999999))
	require.Equal(t, entity.SeverityMedium, SeverityFor(0.1))
	require.Equal(t, entity.SeverityMedium, SeverityFor(0.2999999))
	require.Equal(t, entity.SeverityHigh, SeverityFor(0.3))
	require.Equal(t, entity.SeverityHigh, SeverityFor(42))
	require.Equal(t, entity.SeverityLow, SeverityFor(-1))
	require.Equal(t, entity.SeverityLow, SeverityFor(math.NaN()))
}

func TestSeverityFor_Monotonic(t *testing.T) {
	rank := map[entity.Severity]int{entity.SeverityLow: 0, entity.SeverityMedium: 1, entity.SeverityHigh: 2}
	prev := -1
	for a := 0.0; a < 1.0; a += 0.001 {
		r := rank[SeverityFor(a)]
		require.GreaterOrEqual(t, r, prev)
		prev = r
	}
}

func TestDepthM(t *testing.T) {
	require.Equal(t, 0.05, DepthM(0))
	require.Equal(t, 0.05, DepthM(-3))
	require.InDelta(t, 0.075, DepthM(0.05), 1e-12)
	require.InDelta(t, 0.55, DepthM(1.0), 1e-12)
	require.InDelta(t, 0.55, DepthM(10.0), 1e-12)

	prev := DepthM(0)
	for a := 0.0; a < 3; a += 0.01 {
		d := DepthM(a)
		require.GreaterOrEqual(t, d, prev)
		require.GreaterOrEqual(t, d, 0.05)
		require.LessOrEqual(t, d, 0.55+1e-12)
		prev = d
	}
}

func TestMeasure_Idempotent(t *testing.T) {
	mask := entity.NewMask(100, 10)
	for x := 0; x < 50; x++ {
		for y := 0; y < 10; y++ {
			mask.Set(x, y, true)
		}
	}

	c := Default()
	first := c.Measure(mask)
	second := c.Measure(mask)
	require.Equal(t, first, second)
	require.Equal(t, 500, first.PixelCount)
	require.InDelta(t, 0.05, first.AreaM2, 1e-12)
	require.Equal(t, entity.SeverityLow, first.Severity)
	require.InDelta(t, 0.075, first.DepthM, 1e-12)
}

func TestMeasure_EmptyMask(t *testing.T) {
	m := Calibration{}.Measure(entity.NewMask(0, 0))
	require.Equal(t, 0.0, m.AreaM2)
	require.Equal(t, 0.05, m.DepthM)
	require.Equal(t, entity.SeverityLow, m.Severity)
}

func TestMeasure_CustomCalibration(t *testing.T) {
	mask := entity.NewMask(10, 10)
	for i := range mask.Bits {
		mask.Bits[i] = true
	}
	m := Calibration{PixelsPerMeter: 10}.Measure(mask)
	require.InDelta(t, 1.0, m.AreaM2, 1e-12)
	require.Equal(t, entity.SeverityHigh, m.Severity)
}

func TestOverlay_DoesNotMutateInput(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	gray := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.SetRGBA(x, y, gray)
		}
	}
	mask := entity.NewMask(3, 2)
	mask.Set(1, 0, true)

	out := Overlay(src, mask)
	require.Equal(t, Highlight, out.NRGBAAt(1, 0))
	require.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, out.NRGBAAt(0, 0))
	require.Equal(t, gray, src.RGBAAt(1, 0))
}
