package similarity

import (
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"productauth/config"
)

// ShapeExtractor compares the dominant silhouette of two images through
// contour moments. It is de-weighted to zero by default because
// silhouette varies too much with photo angle to be trustworthy for
// product authentication; it stays available as an extension point.
type ShapeExtractor struct {
	cfg *config.SimilarityConfig
}

// NewShapeExtractor creates a contour-moment extractor.
func NewShapeExtractor(cfg *config.SimilarityConfig) *ShapeExtractor {
	return &ShapeExtractor{cfg: cfg}
}

// shapeFeatures holds the seven log-compressed Hu moment invariants of
// the largest external contour. A nil moments slice marks a degenerate
// input (no contours or a zero-area contour).
type shapeFeatures struct {
	moments []float64
}

// Extract locates the largest external contour and computes its seven
// rotation/scale-invariant moment descriptors, log-transformed to
// compress their dynamic range.
func (e *ShapeExtractor) Extract(gray gocv.Mat) *shapeFeatures {
	contours := gocv.FindContours(gray, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return &shapeFeatures{}
	}

	largest := 0
	largestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > largestArea {
			largestArea = area
			largest = i
		}
	}
	if largestArea == 0 {
		return &shapeFeatures{}
	}

	// Rasterize the contour so its region moments can be computed.
	filled := gocv.Zeros(gray.Rows(), gray.Cols(), gocv.MatTypeCV8UC1)
	defer filled.Close()
	gocv.DrawContours(&filled, contours, largest, color.RGBA{R: 255, G: 255, B: 255}, -1)

	moments := gocv.Moments(filled, true)
	if moments["m00"] == 0 {
		return &shapeFeatures{}
	}

	hu := huInvariants(moments)
	for i, h := range hu {
		hu[i] = -sign(h) * math.Log10(math.Abs(h)+1e-10)
	}
	return &shapeFeatures{moments: hu}
}

// Similarity converts the Euclidean distance between the two moment
// vectors into a similarity via 1/(1+distance).
func (e *ShapeExtractor) Similarity(f1, f2 *shapeFeatures) float64 {
	if f1 == nil || f2 == nil || len(f1.moments) == 0 || len(f2.moments) == 0 {
		return 0.0
	}

	var sum float64
	for i := range f1.moments {
		d := f1.moments[i] - f2.moments[i]
		sum += d * d
	}
	distance := math.Sqrt(sum)

	return clamp01(1.0 / (1.0 + distance))
}

// huInvariants derives the seven Hu moment invariants from the
// normalized central moments. gocv exposes Moments but not HuMoments, so
// the standard formulas are applied to the nu values directly.
func huInvariants(m map[string]float64) []float64 {
	nu20, nu02, nu11 := m["nu20"], m["nu02"], m["nu11"]
	nu30, nu21, nu12, nu03 := m["nu30"], m["nu21"], m["nu12"], m["nu03"]

	p := nu30 + nu12
	q := nu21 + nu03
	r := nu30 - 3*nu12
	s := 3*nu21 - nu03

	return []float64{
		nu20 + nu02,
		(nu20-nu02)*(nu20-nu02) + 4*nu11*nu11,
		r*r + s*s,
		p*p + q*q,
		r*p*(p*p-3*q*q) + s*q*(3*p*p-q*q),
		(nu20-nu02)*(p*p-q*q) + 4*nu11*p*q,
		s*p*(p*p-3*q*q) - r*q*(3*p*p-q*q),
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
