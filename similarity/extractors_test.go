package similarity

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"productauth/config"
)

func solidMat(c color.RGBA, size int) gocv.Mat {
	m := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&m, image.Rect(0, 0, size, size), c, -1)
	return m
}

func grayWithSquare(background, square uint8) gocv.Mat {
	m := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8UC1)
	gocv.Rectangle(&m, image.Rect(0, 0, 200, 200), color.RGBA{R: background, G: background, B: background}, -1)
	gocv.Rectangle(&m, image.Rect(50, 50, 150, 150), color.RGBA{R: square, G: square, B: square}, -1)
	return m
}

func TestColorExtractorIdenticalImages(t *testing.T) {
	cfg := config.Default()
	e := NewColorExtractor(cfg)

	img := solidMat(color.RGBA{R: 40, G: 90, B: 200}, 200)
	defer img.Close()

	f1 := e.Extract(img)
	defer f1.Close()
	f2 := e.Extract(img)
	defer f2.Close()

	assert.InDelta(t, 1.0, e.Similarity(f1, f2), 0.01)
}

// rampHist builds a bins-long CV32F histogram column filled by fn.
func rampHist(bins int, fn func(i int) float32) gocv.Mat {
	m := gocv.NewMatWithSize(bins, 1, gocv.MatTypeCV32F)
	for i := 0; i < bins; i++ {
		m.SetFloatAt(i, 0, fn(i))
	}
	return m
}

func TestColorSimilarityIsMinimumAcrossSpaces(t *testing.T) {
	e := NewColorExtractor(config.Default())

	rising := func(i int) float32 { return float32(i) }

	f1 := &colorFeatures{}
	f2 := &colorFeatures{}
	defer f1.Close()
	defer f2.Close()

	// BGR histograms agree perfectly in both feature sets.
	for i := 0; i < 3; i++ {
		f1.hists = append(f1.hists, rampHist(64, rising))
		f2.hists = append(f2.hists, rampHist(64, rising))
	}
	// HSV histograms anti-correlate: agreement in one space alone is not
	// color similarity.
	for i := 0; i < 3; i++ {
		f1.hists = append(f1.hists, rampHist(32, rising))
		f2.hists = append(f2.hists, rampHist(32, func(i int) float32 { return float32(31 - i) }))
	}

	assert.Equal(t, 0.0, e.Similarity(f1, f2))
}

func TestColorExtractorNilFeatures(t *testing.T) {
	e := NewColorExtractor(config.Default())
	assert.Equal(t, 0.0, e.Similarity(nil, nil))
}

func TestStructuralExtractorIdentical(t *testing.T) {
	e := NewStructuralExtractor(config.Default())

	img := grayWithSquare(30, 220)
	defer img.Close()

	f1 := e.Extract(img)
	defer f1.Close()
	f2 := e.Extract(img)
	defer f2.Close()

	assert.InDelta(t, 1.0, e.Similarity(f1, f2), 0.01)
}

func TestEdgeExtractorIdentical(t *testing.T) {
	e := NewEdgeExtractor(config.Default())

	img := grayWithSquare(30, 220)
	defer img.Close()

	f1 := e.Extract(img)
	defer f1.Close()
	f2 := e.Extract(img)
	defer f2.Close()

	assert.InDelta(t, 1.0, e.Similarity(f1, f2), 0.01)
}

func TestEdgeDensitySimilarity(t *testing.T) {
	a := grayWithSquare(0, 255)
	defer a.Close()
	b := gocv.Zeros(200, 200, gocv.MatTypeCV8UC1)
	defer b.Close()

	self := edgeDensitySimilarity(a, a)
	assert.InDelta(t, 1.0, self, 1e-9)

	cross := edgeDensitySimilarity(a, b)
	assert.Less(t, cross, 1.0)
	assert.GreaterOrEqual(t, cross, 0.0)
}

func TestShapeExtractorIdenticalContour(t *testing.T) {
	e := NewShapeExtractor(config.Default())

	img := grayWithSquare(0, 255)
	defer img.Close()

	f1 := e.Extract(img)
	f2 := e.Extract(img)
	require.NotEmpty(t, f1.moments)
	assert.Len(t, f1.moments, 7)

	assert.InDelta(t, 1.0, e.Similarity(f1, f2), 0.01)
}

func TestShapeExtractorDegenerateImage(t *testing.T) {
	e := NewShapeExtractor(config.Default())

	// All-black frame has no contours at all.
	black := gocv.Zeros(200, 200, gocv.MatTypeCV8UC1)
	defer black.Close()

	f1 := e.Extract(black)
	assert.Empty(t, f1.moments)

	square := grayWithSquare(0, 255)
	defer square.Close()
	shaped := e.Extract(square)
	assert.Equal(t, 0.0, e.Similarity(f1, shaped))
}

func TestKeypointExtractorTooFewDescriptors(t *testing.T) {
	e := NewKeypointExtractor(config.Default())
	defer e.Close()

	flat := gocv.Zeros(200, 200, gocv.MatTypeCV8UC1)
	defer flat.Close()

	f1 := e.Extract(flat)
	defer f1.Close()
	f2 := e.Extract(flat)
	defer f2.Close()

	assert.Equal(t, 0.0, e.Similarity(f1, f2))
}

func TestNormalizedMatchScore(t *testing.T) {
	assert.Equal(t, 0.5, normalizedMatchScore(5, 10, 20))
	assert.Equal(t, 1.0, normalizedMatchScore(30, 10, 20))
	assert.Equal(t, 0.0, normalizedMatchScore(3, 0, 0))
}

func TestCountRatioMatches(t *testing.T) {
	matches := [][]gocv.DMatch{
		{{Distance: 10}, {Distance: 100}}, // passes
		{{Distance: 90}, {Distance: 100}}, // fails ratio
		{{Distance: 10}},                  // incomplete pair skipped
	}

	assert.Equal(t, 1, countRatioMatches(matches, 0.65))
}

func TestHuInvariantsOfCircleAreScaleInvariant(t *testing.T) {
	small := gocv.Zeros(200, 200, gocv.MatTypeCV8UC1)
	defer small.Close()
	gocv.Circle(&small, image.Pt(100, 100), 40, color.RGBA{R: 255, G: 255, B: 255}, -1)

	large := gocv.Zeros(200, 200, gocv.MatTypeCV8UC1)
	defer large.Close()
	gocv.Circle(&large, image.Pt(100, 100), 80, color.RGBA{R: 255, G: 255, B: 255}, -1)

	h1 := huInvariants(gocv.Moments(small, true))
	h2 := huInvariants(gocv.Moments(large, true))

	require.Len(t, h1, 7)
	// The first invariant is the most numerically stable; scale must not move it much.
	assert.InDelta(t, h1[0], h2[0], 0.01)
}
