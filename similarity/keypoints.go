package similarity

import (
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"

	"productauth/config"
)

// KeypointExtractor detects local distinguishing structures (logos, stitch
// patterns, embossing) and measures how many correspond between two
// images, independent of global color.
type KeypointExtractor struct {
	cfg        *config.SimilarityConfig
	sift       gocv.SIFT
	strategies []matchStrategy
}

// matchStrategy is one redundant matching algorithm. A strategy reports
// ok=false when it produced no usable signal; a panicking strategy is
// skipped the same way.
type matchStrategy struct {
	name string
	fn   func(f1, f2 *keypointFeatures) (float64, bool)
}

// NewKeypointExtractor creates a SIFT-based keypoint extractor.
func NewKeypointExtractor(cfg *config.SimilarityConfig) *KeypointExtractor {
	e := &KeypointExtractor{
		cfg:  cfg,
		sift: gocv.NewSIFT(),
	}
	e.strategies = []matchStrategy{
		{name: "flann-ratio", fn: e.flannRatioMatch},
		{name: "bruteforce-ratio", fn: e.bruteForceRatioMatch},
		{name: "nearest-distance", fn: e.nearestDistanceMatch},
	}
	return e
}

// Close releases the detector.
func (e *KeypointExtractor) Close() error {
	return e.sift.Close()
}

// keypointFeatures holds detected keypoints and their descriptor rows.
type keypointFeatures struct {
	keypoints   []gocv.KeyPoint
	descriptors gocv.Mat
}

func (f *keypointFeatures) Close() {
	f.descriptors.Close()
}

// Extract detects up to MaxKeypoints scale/rotation-invariant keypoints on
// the CLAHE-equalized grayscale image. Local-contrast equalization before
// detection makes the keypoints robust to lighting differences between
// the two photos.
func (e *KeypointExtractor) Extract(gray gocv.Mat) *keypointFeatures {
	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()

	normalized := gocv.NewMat()
	defer normalized.Close()
	clahe.Apply(gray, &normalized)

	mask := gocv.NewMat()
	defer mask.Close()

	keypoints, descriptors := e.sift.DetectAndCompute(normalized, mask)
	features := &keypointFeatures{keypoints: keypoints, descriptors: descriptors}
	e.capKeypoints(features)
	return features
}

// capKeypoints keeps the strongest-response keypoints when the detector
// returns more than the configured cap, so match-count normalization
// stays comparable across images.
func (e *KeypointExtractor) capKeypoints(f *keypointFeatures) {
	maxKP := e.cfg.MaxKeypoints
	if len(f.keypoints) <= maxKP || f.descriptors.Empty() {
		return
	}

	order := make([]int, len(f.keypoints))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return f.keypoints[order[a]].Response > f.keypoints[order[b]].Response
	})
	order = order[:maxKP]

	cols := f.descriptors.Cols()
	capped := gocv.NewMatWithSize(maxKP, cols, gocv.MatTypeCV32F)
	kept := make([]gocv.KeyPoint, maxKP)
	for row, idx := range order {
		kept[row] = f.keypoints[idx]
		for col := 0; col < cols; col++ {
			capped.SetFloatAt(row, col, f.descriptors.GetFloatAt(idx, col))
		}
	}

	f.descriptors.Close()
	f.keypoints = kept
	f.descriptors = capped
}

// Similarity runs every matching strategy and returns the most optimistic
// surviving result. Fewer than two descriptors on either side is absence
// of signal, scored 0 rather than reported as an error.
func (e *KeypointExtractor) Similarity(f1, f2 *keypointFeatures) float64 {
	if f1 == nil || f2 == nil || f1.descriptors.Empty() || f2.descriptors.Empty() {
		return 0.0
	}
	if f1.descriptors.Rows() < 2 || f2.descriptors.Rows() < 2 {
		return 0.0
	}

	best := 0.0
	found := false
	for _, strategy := range e.strategies {
		score, ok := runStrategy(strategy, f1, f2)
		if !ok {
			continue
		}
		found = true
		if score > best {
			best = score
		}
	}
	if !found {
		return 0.0
	}
	return clamp01(best)
}

// runStrategy isolates a strategy so a numeric edge case inside one
// algorithm only disables that algorithm, not the whole metric.
func runStrategy(s matchStrategy, f1, f2 *keypointFeatures) (score float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			score, ok = 0.0, false
		}
	}()
	return s.fn(f1, f2)
}

// flannRatioMatch: approximate nearest-neighbor matching with the strict
// ratio test.
func (e *KeypointExtractor) flannRatioMatch(f1, f2 *keypointFeatures) (float64, bool) {
	matcher := gocv.NewFlannBasedMatcher()
	defer matcher.Close()

	matches := matcher.KnnMatch(f1.descriptors, f2.descriptors, 2)
	good := countRatioMatches(matches, e.cfg.LoweRatioFLANN)
	if good == 0 {
		return 0.0, false
	}
	return normalizedMatchScore(good, len(f1.keypoints), len(f2.keypoints)), true
}

// bruteForceRatioMatch: exhaustive nearest-neighbor matching with the
// looser ratio test.
func (e *KeypointExtractor) bruteForceRatioMatch(f1, f2 *keypointFeatures) (float64, bool) {
	matcher := gocv.NewBFMatcher()
	defer matcher.Close()

	matches := matcher.KnnMatch(f1.descriptors, f2.descriptors, 2)
	good := countRatioMatches(matches, e.cfg.LoweRatioBF)
	if good == 0 {
		return 0.0, false
	}
	return normalizedMatchScore(good, len(f1.keypoints), len(f2.keypoints)), true
}

// nearestDistanceMatch: naive closest-descriptor fallback that converts
// the mean minimum distance into a similarity.
func (e *KeypointExtractor) nearestDistanceMatch(f1, f2 *keypointFeatures) (float64, bool) {
	d1 := descriptorRows(f1.descriptors)
	d2 := descriptorRows(f2.descriptors)
	if len(d1) == 0 || len(d2) == 0 {
		return 0.0, false
	}

	var total float64
	for _, row1 := range d1 {
		minDist := math.Inf(1)
		for _, row2 := range d2 {
			dist := euclideanDistance(row1, row2)
			if dist < minDist {
				minDist = dist
			}
		}
		total += minDist
	}
	avgDistance := total / float64(len(d1))

	dim := float64(len(d1[0]))
	maxPossible := math.Sqrt(dim * e.cfg.MaxPossibleDistanceFactor * e.cfg.MaxPossibleDistanceFactor)
	similarity := 1.0 - avgDistance/maxPossible
	if similarity < 0 {
		similarity = 0.0
	}
	return similarity, true
}

// countRatioMatches applies Lowe's ratio test: a nearest-neighbor match
// only counts when it is meaningfully closer than the second-best
// candidate.
func countRatioMatches(matches [][]gocv.DMatch, ratio float64) int {
	good := 0
	for _, pair := range matches {
		if len(pair) != 2 {
			continue
		}
		if pair[0].Distance < ratio*pair[1].Distance {
			good++
		}
	}
	return good
}

// normalizedMatchScore scales a raw match count by the smaller keypoint
// population and caps it at 1.
func normalizedMatchScore(matches, kp1, kp2 int) float64 {
	minKP := kp1
	if kp2 < minKP {
		minKP = kp2
	}
	if minKP == 0 {
		return 0.0
	}
	score := float64(matches) / float64(minKP)
	if score > 1.0 {
		return 1.0
	}
	return score
}

func descriptorRows(m gocv.Mat) [][]float32 {
	rows := make([][]float32, 0, m.Rows())
	for r := 0; r < m.Rows(); r++ {
		row := make([]float32, m.Cols())
		for c := 0; c < m.Cols(); c++ {
			row[c] = m.GetFloatAt(r, c)
		}
		rows = append(rows, row)
	}
	return rows
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
