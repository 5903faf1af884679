package visual

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCompareIdenticalImagesYieldsNoSeverity(t *testing.T) {
	a := solidImage(20, 20, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	b := solidImage(20, 20, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	result := Compare(a, b, DiffThresholds{PixelDiffThreshold: 0.1, LayoutShiftMinPixels: 5})

	assert.Equal(t, 0.0, result.DiffRatio)
	assert.False(t, result.HasLayoutShift)
	assert.Equal(t, SeverityNone, result.Severity)
}

func TestCompareFullyDifferentImagesYieldsCritical(t *testing.T) {
	a := solidImage(40, 40, color.RGBA{R: 0, G: 0, B: 0, A: 255})
	b := solidImage(40, 40, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	result := Compare(a, b, DiffThresholds{PixelDiffThreshold: 0.1, LayoutShiftMinPixels: 5})

	assert.Greater(t, result.DiffRatio, 0.9)
	assert.True(t, result.HasLayoutShift)
	assert.Equal(t, SeverityCritical, result.Severity)
}

func TestCompareResamplesDifferentDimensions(t *testing.T) {
	a := solidImage(10, 10, color.RGBA{R: 50, G: 50, B: 50, A: 255})
	b := solidImage(20, 30, color.RGBA{R: 50, G: 50, B: 50, A: 255})

	result := Compare(a, b, DiffThresholds{PixelDiffThreshold: 0.1, LayoutShiftMinPixels: 5})

	assert.Equal(t, 0.0, result.DiffRatio)
}

func TestClassifySeverityTable(t *testing.T) {
	assert.Equal(t, SeverityNone, classifySeverity(0, false))
	assert.Equal(t, SeverityCritical, classifySeverity(0.6, true))
	assert.Equal(t, SeverityHigh, classifySeverity(0.01, true))
	assert.Equal(t, SeverityHigh, classifySeverity(0.35, false))
	assert.Equal(t, SeverityMedium, classifySeverity(0.15, false))
	assert.Equal(t, SeverityLow, classifySeverity(0.07, false))
	assert.Equal(t, SeverityNone, classifySeverity(0.01, false))
}

func TestMaxSeverityPicksHighestRank(t *testing.T) {
	assert.Equal(t, SeverityHigh, MaxSeverity(SeverityNone, SeverityLow, SeverityHigh, SeverityMedium))
	assert.Equal(t, SeverityNone, MaxSeverity())
}
