package similarity

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"productauth/config"
)

// EdgeExtractor compares edge density and placement between two images, a
// proxy for shape and fine detail that is invariant to solid-color
// regions.
type EdgeExtractor struct {
	cfg *config.SimilarityConfig
}

// NewEdgeExtractor creates an adaptive edge-map extractor.
func NewEdgeExtractor(cfg *config.SimilarityConfig) *EdgeExtractor {
	return &EdgeExtractor{cfg: cfg}
}

type edgeFeatures struct {
	edges gocv.Mat
}

func (f *edgeFeatures) Close() {
	f.edges.Close()
}

// Extract equalizes local contrast, then runs Canny with thresholds
// derived from the image's own median brightness instead of fixed
// constants, which adapts the detector to both bright and dark product
// photos. A small Gaussian blur suppresses sensor noise first.
func (e *EdgeExtractor) Extract(gray gocv.Mat) *edgeFeatures {
	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()

	normalized := gocv.NewMat()
	defer normalized.Close()
	clahe.Apply(gray, &normalized)

	median := medianUChar(normalized)
	lower := math.Max(0, e.cfg.CannyLowerFactor*median)
	upper := math.Min(255, e.cfg.CannyUpperFactor*median)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(normalized, &blurred, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	gocv.Canny(blurred, &edges, float32(lower), float32(upper))

	return &edgeFeatures{edges: edges}
}

// Similarity compares the two edge maps with three independent measures
// and keeps the most optimistic surviving one: template correlation,
// histogram correlation, and edge-density difference.
func (e *EdgeExtractor) Similarity(f1, f2 *edgeFeatures) float64 {
	if f1 == nil || f2 == nil || f1.edges.Empty() || f2.edges.Empty() {
		return 0.0
	}

	scores := []float64{
		clamp01(templateCorrelation(f1.edges, f2.edges)),
		edgeHistogramCorrelation(f1.edges, f2.edges),
		edgeDensitySimilarity(f1.edges, f2.edges),
	}

	best := 0.0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}
	return clamp01(best)
}

func edgeHistogramCorrelation(a, b gocv.Mat) float64 {
	mask := gocv.NewMat()
	defer mask.Close()

	histA := gocv.NewMat()
	defer histA.Close()
	histB := gocv.NewMat()
	defer histB.Close()

	gocv.CalcHist([]gocv.Mat{a}, []int{0}, mask, &histA, []int{256}, []float64{0, 256}, false)
	gocv.CalcHist([]gocv.Mat{b}, []int{0}, mask, &histB, []int{256}, []float64{0, 256}, false)

	return clamp01(float64(gocv.CompareHist(histA, histB, gocv.HistCmpCorrel)))
}

func edgeDensitySimilarity(a, b gocv.Mat) float64 {
	sizeA := a.Rows() * a.Cols()
	sizeB := b.Rows() * b.Cols()
	if sizeA == 0 || sizeB == 0 {
		return 0.0
	}

	densityA := float64(gocv.CountNonZero(a)) / float64(sizeA)
	densityB := float64(gocv.CountNonZero(b)) / float64(sizeB)
	return clamp01(1.0 - math.Abs(densityA-densityB))
}
