package config

import (
	"fmt"
	"math"
)

// SimilarityConfig holds every tunable of the similarity engine. It is
// constructed once, validated, and shared read-only by the calculator and
// all feature extractors.
type SimilarityConfig struct {
	// Image preprocessing
	ResizeWidth  int
	ResizeHeight int

	// Keypoint extraction parameters (strict for product differentiation)
	MaxKeypoints   int
	LoweRatioFLANN float64
	LoweRatioBF    float64

	// Adaptive edge detection factors applied to the median brightness
	CannyLowerFactor float64
	CannyUpperFactor float64

	// Similarity weights, must sum to 1.0
	ColorWeight      float64
	KeypointWeight   float64
	StructuralWeight float64
	EdgeWeight       float64
	ShapeWeight      float64

	// Matching thresholds
	DefaultMatchThreshold     float64
	HighConfidenceThreshold   float64
	MediumConfidenceThreshold float64

	// Maximum per-component descriptor distance used by the naive
	// keypoint matching fallback
	MaxPossibleDistanceFactor float64
}

// Default returns the calibration tuned for luxury-goods photos. Color
// dominates because it is the strongest discriminator between different
// products; shape is disabled because silhouette varies too much with
// camera angle.
func Default() *SimilarityConfig {
	return &SimilarityConfig{
		ResizeWidth:  400,
		ResizeHeight: 400,

		MaxKeypoints:   1000,
		LoweRatioFLANN: 0.65,
		LoweRatioBF:    0.6,

		CannyLowerFactor: 0.6,
		CannyUpperFactor: 1.4,

		ColorWeight:      0.50,
		KeypointWeight:   0.15,
		StructuralWeight: 0.25,
		EdgeWeight:       0.10,
		ShapeWeight:      0.00,

		DefaultMatchThreshold:     0.6,
		HighConfidenceThreshold:   0.75,
		MediumConfidenceThreshold: 0.45,

		MaxPossibleDistanceFactor: 255.0,
	}
}

// New validates cfg and returns an immutable copy. A config whose weights
// do not sum to 1.0 or whose thresholds leave [0,1] is a fatal
// misconfiguration, reported as an error rather than silently corrected.
func New(cfg SimilarityConfig) (*SimilarityConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the construction invariants of the configuration.
func (c *SimilarityConfig) Validate() error {
	if c.ResizeWidth <= 0 || c.ResizeHeight <= 0 {
		return fmt.Errorf("resize dimensions must be positive, got %dx%d", c.ResizeWidth, c.ResizeHeight)
	}
	if c.MaxKeypoints <= 0 {
		return fmt.Errorf("max keypoints must be positive, got %d", c.MaxKeypoints)
	}

	weights := map[string]float64{
		"color":      c.ColorWeight,
		"keypoint":   c.KeypointWeight,
		"structural": c.StructuralWeight,
		"edge":       c.EdgeWeight,
		"shape":      c.ShapeWeight,
	}
	total := 0.0
	for name, w := range weights {
		if w < 0 {
			return fmt.Errorf("%s weight must not be negative, got %f", name, w)
		}
		total += w
	}
	if math.Abs(total-1.0) >= 0.001 {
		return fmt.Errorf("similarity weights must sum to 1.0, got %f", total)
	}

	thresholds := map[string]float64{
		"default match":     c.DefaultMatchThreshold,
		"high confidence":   c.HighConfidenceThreshold,
		"medium confidence": c.MediumConfidenceThreshold,
	}
	for name, t := range thresholds {
		if t < 0.0 || t > 1.0 {
			return fmt.Errorf("%s threshold must be between 0.0 and 1.0, got %f", name, t)
		}
	}

	return nil
}

// Interpretation maps a similarity score onto a human-readable band.
// The bands are contiguous and exhaustive over [0,1].
func Interpretation(score float64) string {
	switch {
	case score >= 0.75:
		return "Very High"
	case score >= 0.6:
		return "High"
	case score >= 0.4:
		return "Medium"
	case score >= 0.25:
		return "Low"
	default:
		return "Very Low"
	}
}

// ConfidenceLevel maps a similarity score onto the configured
// three-tier confidence label.
func (c *SimilarityConfig) ConfidenceLevel(score float64) string {
	switch {
	case score >= c.HighConfidenceThreshold:
		return "High"
	case score >= c.MediumConfidenceThreshold:
		return "Medium"
	default:
		return "Low"
	}
}
