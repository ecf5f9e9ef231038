package similarity

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// clamp01 bounds a raw metric value to [0,1]. Negative correlation is
// treated as no evidence of similarity, not evidence of mismatch, and a
// NaN from a zero-variance input degrades to 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0.0
	}
	if v > 1 {
		return 1.0
	}
	return v
}

// medianUChar returns the median pixel value of an 8-bit single-channel Mat.
func medianUChar(m gocv.Mat) float64 {
	var counts [256]int
	total := 0
	for y := 0; y < m.Rows(); y++ {
		for x := 0; x < m.Cols(); x++ {
			counts[m.GetUCharAt(y, x)]++
			total++
		}
	}
	if total == 0 {
		return 0
	}

	half := total / 2
	seen := 0
	for v := 0; v < 256; v++ {
		seen += counts[v]
		if seen > half {
			return float64(v)
		}
	}
	return 255
}

// templateCorrelation computes the normalized cross-correlation of two
// equal-sized single-channel images, the structural-similarity proxy used
// by the structural and edge extractors.
func templateCorrelation(a, b gocv.Mat) float64 {
	if a.Empty() || b.Empty() {
		return 0.0
	}

	target := b
	resized := gocv.NewMat()
	defer resized.Close()
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		gocv.Resize(b, &resized, image.Pt(a.Cols(), a.Rows()), 0, 0, gocv.InterpolationLinear)
		target = resized
	}

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(a, target, &result, gocv.TmCcoeffNormed, mask)
	if result.Empty() {
		return 0.0
	}
	return float64(result.GetFloatAt(0, 0))
}
