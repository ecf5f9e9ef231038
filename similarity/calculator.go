package similarity

import (
	"fmt"
	"math"
	"os"
	"sync"

	"productauth/config"
	"productauth/logging"
	"productauth/types"
)

// Calculator orchestrates preprocessing and the five feature extractors
// for one image pair and fuses their scores under the configured weights.
// The extractors share no mutable state, so one comparison runs them as
// parallel tasks; correctness does not depend on the ordering.
type Calculator struct {
	cfg     *config.SimilarityConfig
	loaders *ImageLoaderRegistry

	color      *ColorExtractor
	keypoint   *KeypointExtractor
	structural *StructuralExtractor
	edge       *EdgeExtractor
	shape      *ShapeExtractor
}

// NewCalculator creates a calculator bound to cfg. A nil cfg selects the
// default calibration.
func NewCalculator(cfg *config.SimilarityConfig) *Calculator {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Calculator{
		cfg:        cfg,
		loaders:    NewImageLoaderRegistry(),
		color:      NewColorExtractor(cfg),
		keypoint:   NewKeypointExtractor(cfg),
		structural: NewStructuralExtractor(cfg),
		edge:       NewEdgeExtractor(cfg),
		shape:      NewShapeExtractor(cfg),
	}
}

// Config returns the configuration the calculator was built with.
func (c *Calculator) Config() *config.SimilarityConfig {
	return c.cfg
}

// Close releases the native detector resources.
func (c *Calculator) Close() error {
	return c.keypoint.Close()
}

// CalculateSimilarity compares two product images and returns the
// weighted aggregate score in [0,1]. Load or decode failure yields 0.0
// rather than an error; use GetDetailedAnalysis when the failure cause
// matters.
func (c *Calculator) CalculateSimilarity(path1, path2 string) float64 {
	pair, err := c.loadAndPreprocess(path1, path2)
	if err != nil {
		logging.LogWarning("cannot compare %s and %s: %v", path1, path2, err)
		return 0.0
	}
	defer pair.Close()

	scores := c.metricScores(pair)
	return aggregateScore(scores)
}

// GetDetailedAnalysis compares two images and returns the aggregate plus
// the per-metric breakdown and image metadata.
func (c *Calculator) GetDetailedAnalysis(path1, path2 string) (*types.DetailedAnalysis, error) {
	meta1, err := c.imageMetadata(path1)
	if err != nil {
		return nil, err
	}
	meta2, err := c.imageMetadata(path2)
	if err != nil {
		return nil, err
	}

	pair, err := c.loadAndPreprocess(path1, path2)
	if err != nil {
		return nil, err
	}
	defer pair.Close()

	scores := c.metricScores(pair)

	analysis := &types.DetailedAnalysis{
		SimilarityScore:  round3(aggregateScore(scores)),
		IndividualScores: make(map[string]float64, len(scores)),
		Weights:          make(map[string]float64, len(scores)),
		Image1:           meta1,
		Image2:           meta2,
	}
	for _, s := range scores {
		analysis.IndividualScores[s.Name] = round3(s.Score)
		analysis.Weights[s.Name] = s.Weight
	}
	return analysis, nil
}

// metricScores runs all five extractors on the preprocessed pair. Every
// per-metric score is clamped to [0,1] by the extractor; a degenerate
// input contributes exactly 0.0, so the aggregate is always computable.
func (c *Calculator) metricScores(pair *imagePair) []types.MetricScore {
	scores := []types.MetricScore{
		{Name: types.MetricColor, Weight: c.cfg.ColorWeight},
		{Name: types.MetricKeypoint, Weight: c.cfg.KeypointWeight},
		{Name: types.MetricStructural, Weight: c.cfg.StructuralWeight},
		{Name: types.MetricEdge, Weight: c.cfg.EdgeWeight},
		{Name: types.MetricShape, Weight: c.cfg.ShapeWeight},
	}

	jobs := []func() float64{
		func() float64 {
			f1 := c.color.Extract(pair.img1)
			defer f1.Close()
			f2 := c.color.Extract(pair.img2)
			defer f2.Close()
			return c.color.Similarity(f1, f2)
		},
		func() float64 {
			f1 := c.keypoint.Extract(pair.gray1)
			defer f1.Close()
			f2 := c.keypoint.Extract(pair.gray2)
			defer f2.Close()
			return c.keypoint.Similarity(f1, f2)
		},
		func() float64 {
			f1 := c.structural.Extract(pair.gray1)
			defer f1.Close()
			f2 := c.structural.Extract(pair.gray2)
			defer f2.Close()
			return c.structural.Similarity(f1, f2)
		},
		func() float64 {
			f1 := c.edge.Extract(pair.gray1)
			defer f1.Close()
			f2 := c.edge.Extract(pair.gray2)
			defer f2.Close()
			return c.edge.Similarity(f1, f2)
		},
		func() float64 {
			f1 := c.shape.Extract(pair.gray1)
			f2 := c.shape.Extract(pair.gray2)
			return c.shape.Similarity(f1, f2)
		},
	}

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(slot int, fn func() float64) {
			defer wg.Done()
			scores[slot].Score = fn()
		}(i, job)
	}
	wg.Wait()

	return scores
}

// imageMetadata probes one input file at its native size.
func (c *Calculator) imageMetadata(path string) (types.ImageMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.ImageMetadata{}, fmt.Errorf("%w: %s", ErrImageNotFound, path)
		}
		return types.ImageMetadata{}, fmt.Errorf("cannot access image %s: %v", path, err)
	}

	width, height, channels, err := c.probeImage(path)
	if err != nil {
		return types.ImageMetadata{}, err
	}

	return types.ImageMetadata{
		Path:       path,
		Dimensions: fmt.Sprintf("%dx%d", width, height),
		Channels:   channels,
		SizeKB:     math.Round(float64(info.Size())/1024*10) / 10,
	}, nil
}

// aggregateScore is the weighted sum of the per-metric scores. The
// weights sum to 1.0 by construction, so the result is in [0,1] whenever
// each metric is; the clamp is defensive.
func aggregateScore(scores []types.MetricScore) float64 {
	total := 0.0
	for _, s := range scores {
		total += s.Score * s.Weight
	}
	return clamp01(total)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
