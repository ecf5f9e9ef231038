package similarity

import (
	"gocv.io/x/gocv"

	"productauth/config"
)

// StructuralExtractor approximates global structural correlation: whether
// the two images are laid out similarly, regardless of color.
type StructuralExtractor struct {
	cfg *config.SimilarityConfig
}

// NewStructuralExtractor creates a structural correlation extractor.
func NewStructuralExtractor(cfg *config.SimilarityConfig) *StructuralExtractor {
	return &StructuralExtractor{cfg: cfg}
}

type structuralFeatures struct {
	normalized gocv.Mat
}

func (f *structuralFeatures) Close() {
	f.normalized.Close()
}

// Extract min-max normalizes the grayscale buffer so the correlation is
// insensitive to global brightness offsets.
func (e *StructuralExtractor) Extract(gray gocv.Mat) *structuralFeatures {
	normalized := gocv.NewMat()
	gocv.Normalize(gray, &normalized, 0, 255, gocv.NormMinMax)

	converted := gocv.NewMat()
	normalized.ConvertTo(&converted, gocv.MatTypeCV8U)
	normalized.Close()

	return &structuralFeatures{normalized: converted}
}

// Similarity is the normalized template correlation of the two buffers,
// clamped so negative correlation reads as no evidence of similarity.
func (e *StructuralExtractor) Similarity(f1, f2 *structuralFeatures) float64 {
	if f1 == nil || f2 == nil {
		return 0.0
	}
	return clamp01(templateCorrelation(f1.normalized, f2.normalized))
}
