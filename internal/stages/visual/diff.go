// Package visual implements the Visual Diff Stage (SPEC_FULL.md §4.6):
// pixel-level comparison of baseline vs candidate screenshots per
// viewport, with layout-shift detection and severity classification.
package visual

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Severity mirrors reasoning.Severity's five-value ordinal scale without
// importing the reasoning package, keeping this stage's pixel-math free of
// reasoning-layer concerns.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DiffResult is the outcome of comparing one baseline/candidate screenshot
// pair at one viewport.
type DiffResult struct {
	DiffRatio      float64
	HasLayoutShift bool
	ShiftRegions   []ShiftRegion
	DiffImage      *image.RGBA
	Heatmap        *image.RGBA
	Severity       Severity
}

// ShiftRegion is one 10x10-grid cell whose difference-pixel count exceeded
// the configured minimum. ShiftMagnitude is the distance from the image
// center to the cell's geometric center; the center of mass of the cell's
// difference pixels is not computed.
type ShiftRegion struct {
	GridX, GridY   int
	ShiftMagnitude float64
}

// DiffThresholds bundles the two configurable knobs §4.6 exposes.
type DiffThresholds struct {
	PixelDiffThreshold   float64 // default 0.1, anti-alias-aware per-pixel tolerance
	LayoutShiftMinPixels int     // default 5
}

// Compare resamples candidate to baseline's dimensions if they differ
// (nearest-neighbor), computes a pixel diff and heatmap, detects layout
// shift on a 10x10 grid, and classifies severity.
func Compare(baseline, candidate image.Image, thresholds DiffThresholds) DiffResult {
	bounds := baseline.Bounds()
	if candidate.Bounds().Dx() != bounds.Dx() || candidate.Bounds().Dy() != bounds.Dy() {
		candidate = resampleNearestNeighbor(candidate, bounds.Dx(), bounds.Dy())
	}

	width, height := bounds.Dx(), bounds.Dy()
	diffImage := image.NewRGBA(image.Rect(0, 0, width, height))
	heatmap := image.NewRGBA(image.Rect(0, 0, width, height))

	diffPixels := 0
	totalPixels := width * height

	// 10x10 grid accumulators for layout-shift detection.
	const gridSize = 10
	cellDiffCount := make([][]int, gridSize)
	for i := range cellDiffCount {
		cellDiffCount[i] = make([]int, gridSize)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			br, bg, bb, _ := baseline.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			cr, cg, cb, _ := candidate.At(x, y).RGBA()

			intensity := pixelDiffIntensity(br, bg, bb, cr, cg, cb)
			normalized := intensity / 255.0

			if normalized > thresholds.PixelDiffThreshold {
				diffPixels++
				diffImage.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})

				gx := x * gridSize / width
				gy := y * gridSize / height
				if gx >= gridSize {
					gx = gridSize - 1
				}
				if gy >= gridSize {
					gy = gridSize - 1
				}
				cellDiffCount[gy][gx]++
			} else {
				diffImage.Set(x, y, color.RGBA{A: 0})
			}

			heatmap.Set(x, y, heatColor(intensity))
		}
	}

	diffRatio := 0.0
	if totalPixels > 0 {
		diffRatio = float64(diffPixels) / float64(totalPixels)
	}

	regions := detectShiftRegions(cellDiffCount, thresholds.LayoutShiftMinPixels, width, height, gridSize)

	result := DiffResult{
		DiffRatio:      diffRatio,
		HasLayoutShift: len(regions) > 0,
		ShiftRegions:   regions,
		DiffImage:      diffImage,
		Heatmap:        heatmap,
	}
	result.Severity = classifySeverity(result.DiffRatio, result.HasLayoutShift)
	return result
}

// pixelDiffIntensity returns a 0-255 scale difference between two pixels,
// anti-alias-aware by averaging channel deltas rather than taking a worst
// single-channel delta.
func pixelDiffIntensity(br, bg, bb, cr, cg, cb uint32) float64 {
	dr := math.Abs(float64(br>>8) - float64(cr>>8))
	dg := math.Abs(float64(bg>>8) - float64(cg>>8))
	db := math.Abs(float64(bb>>8) - float64(cb>>8))
	return (dr + dg + db) / 3
}

// heatColor maps an intensity (0-255) to the heatmap gradient described in
// §4.6: red above 200, gradient to yellow, to green, transparent at zero.
func heatColor(intensity float64) color.RGBA {
	if intensity <= 0 {
		return color.RGBA{A: 0}
	}
	if intensity > 200 {
		return color.RGBA{R: 255, G: 0, B: 0, A: 255}
	}
	if intensity > 100 {
		// yellow -> red
		t := (intensity - 100) / 100
		return color.RGBA{R: 255, G: uint8(255 * (1 - t)), B: 0, A: 255}
	}
	// green -> yellow
	t := intensity / 100
	return color.RGBA{R: uint8(255 * t), G: 255, B: 0, A: 255}
}

func detectShiftRegions(cellDiffCount [][]int, minPixels, width, height, gridSize int) []ShiftRegion {
	var regions []ShiftRegion
	centerX, centerY := float64(width)/2, float64(height)/2
	cellW, cellH := float64(width)/float64(gridSize), float64(height)/float64(gridSize)

	for gy := 0; gy < gridSize; gy++ {
		for gx := 0; gx < gridSize; gx++ {
			if cellDiffCount[gy][gx] <= minPixels {
				continue
			}
			cellCenterX := (float64(gx)+0.5)*cellW
			cellCenterY := (float64(gy)+0.5)*cellH
			shift := math.Hypot(cellCenterX-centerX, cellCenterY-centerY)
			regions = append(regions, ShiftRegion{GridX: gx, GridY: gy, ShiftMagnitude: shift})
		}
	}
	return regions
}

// classifySeverity implements §4.6's severity table exactly.
func classifySeverity(diffRatio float64, hasLayoutShift bool) Severity {
	switch {
	case diffRatio == 0 && !hasLayoutShift:
		return SeverityNone
	case hasLayoutShift && diffRatio > 0.5:
		return SeverityCritical
	case hasLayoutShift || diffRatio > 0.3:
		return SeverityHigh
	case diffRatio > 0.1:
		return SeverityMedium
	case diffRatio > 0.05:
		return SeverityLow
	default:
		return SeverityNone
	}
}

func resampleNearestNeighbor(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// MaxSeverity returns the highest-ranked severity among the given values,
// used to aggregate per-viewport results into a per-page result (§4.6:
// per-page is the max across viewports, not weighted).
func MaxSeverity(severities ...Severity) Severity {
	order := map[Severity]int{SeverityNone: 0, SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3, SeverityCritical: 4}
	best := SeverityNone
	for _, s := range severities {
		if order[s] > order[best] {
			best = s
		}
	}
	return best
}
