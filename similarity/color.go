package similarity

import (
	"gocv.io/x/gocv"

	"productauth/config"
)

const (
	bgrHistBins = 64
	hsvHistBins = 32
)

// ColorExtractor measures how similarly colored two product photos are.
// Color is the strongest discriminator between genuinely different
// products, so it carries the dominant weight by default.
type ColorExtractor struct {
	cfg *config.SimilarityConfig
}

// NewColorExtractor creates a color histogram extractor.
func NewColorExtractor(cfg *config.SimilarityConfig) *ColorExtractor {
	return &ColorExtractor{cfg: cfg}
}

// colorFeatures holds per-channel histograms: three 64-bin BGR histograms
// followed by three 32-bin HSV histograms.
type colorFeatures struct {
	hists []gocv.Mat
}

func (f *colorFeatures) Close() {
	for i := range f.hists {
		f.hists[i].Close()
	}
}

// Extract computes the per-channel histograms of img in both BGR and HSV
// space. HSV hue/saturation are comparatively invariant to exposure
// changes, which gives the metric its lighting robustness.
func (e *ColorExtractor) Extract(img gocv.Mat) *colorFeatures {
	normalized := gocv.NewMat()
	defer normalized.Close()
	gocv.Normalize(img, &normalized, 0, 255, gocv.NormMinMax)

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(normalized, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()

	features := &colorFeatures{}
	for ch := 0; ch < 3; ch++ {
		hist := gocv.NewMat()
		gocv.CalcHist([]gocv.Mat{normalized}, []int{ch}, mask, &hist, []int{bgrHistBins}, []float64{0, 256}, false)
		features.hists = append(features.hists, hist)
	}
	for ch := 0; ch < 3; ch++ {
		hist := gocv.NewMat()
		gocv.CalcHist([]gocv.Mat{hsv}, []int{ch}, mask, &hist, []int{hsvHistBins}, []float64{0, 256}, false)
		features.hists = append(features.hists, hist)
	}

	return features
}

// Similarity correlates the histograms per channel, takes the best channel
// within each color space, and combines the two spaces with a strict AND:
// the minimum of both. Two images are only called color-similar when they
// agree in both spaces, which suppresses coincidental single-space
// correlation between different products.
func (e *ColorExtractor) Similarity(f1, f2 *colorFeatures) float64 {
	if f1 == nil || f2 == nil || len(f1.hists) < 6 || len(f2.hists) < 6 {
		return 0.0
	}

	bgrBest := bestChannelCorrelation(f1.hists[0:3], f2.hists[0:3])
	hsvBest := bestChannelCorrelation(f1.hists[3:6], f2.hists[3:6])

	score := hsvBest
	if bgrBest < score {
		score = bgrBest
	}
	return clamp01(score)
}

func bestChannelCorrelation(hists1, hists2 []gocv.Mat) float64 {
	best := -1.0
	for i := range hists1 {
		corr := float64(gocv.CompareHist(hists1[i], hists2[i], gocv.HistCmpCorrel))
		if corr > best {
			best = corr
		}
	}
	return best
}
