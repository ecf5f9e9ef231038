package analyzer

import (
	"image"
	"image/color"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"productauth/config"
	"productauth/types"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a := New(config.Default())
	t.Cleanup(func() { a.Close() })
	return a
}

func writeTestImage(t *testing.T, path string, seed int64) {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	img := gocv.NewMatWithSize(400, 400, gocv.MatTypeCV8UC3)
	defer img.Close()

	gocv.Rectangle(&img, image.Rect(0, 0, 400, 400), color.RGBA{R: 190, G: 170, B: 150}, -1)
	for i := 0; i < 150; i++ {
		x := rng.Intn(360)
		y := rng.Intn(360)
		w := 10 + rng.Intn(40)
		h := 10 + rng.Intn(40)
		c := color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256))}
		gocv.Rectangle(&img, image.Rect(x, y, x+w, y+h), c, -1)
	}

	require.True(t, gocv.IMWrite(path, img), "failed to write test image %s", path)
}

func TestCompareIdenticalImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "product.png")
	writeTestImage(t, path, 1)

	a := newTestAnalyzer(t)
	report := a.Compare(path, path, 0)

	require.Empty(t, report.Error)
	assert.True(t, report.IsMatch)
	assert.Equal(t, "MATCH", report.MatchStatus)
	assert.Equal(t, 0.6, report.Threshold)
	assert.GreaterOrEqual(t, report.SimilarityScore, 0.95)

	require.NotNil(t, report.Analysis)
	assert.Equal(t, "Very High", report.Analysis.Interpretation)
	assert.Equal(t, "High", report.Analysis.Confidence)
	assert.Equal(t, "Low", report.Analysis.CounterfeitRisk)

	require.NotNil(t, report.Image1)
	assert.Equal(t, path, report.Image1.Path)
	assert.Equal(t, "400x400", report.Image1.Dimensions)
	assert.Equal(t, 3, report.Image1.Channels)
	assert.Greater(t, report.Image1.SizeKB, 0.0)

	assert.Len(t, report.DetailedScores, 5)
	assert.Len(t, report.Weights, 5)
}

func TestCompareMissingFileReturnsErrorReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "product.png")
	writeTestImage(t, path, 2)

	a := newTestAnalyzer(t)
	report := a.Compare(path, filepath.Join(dir, "does_not_exist.jpg"), 0)

	require.NotNil(t, report)
	assert.Contains(t, report.Error, "image file not found")
	assert.False(t, report.IsMatch)
	assert.Nil(t, report.Analysis)
}

func TestCompareUsesExplicitThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "product.png")
	writeTestImage(t, path, 3)

	a := newTestAnalyzer(t)
	report := a.Compare(path, path, 0.99)

	require.Empty(t, report.Error)
	assert.Equal(t, 0.99, report.Threshold)
}

func TestInsightsDecisionTable(t *testing.T) {
	a := newTestAnalyzer(t)

	cases := []struct {
		score      float64
		isMatch    bool
		wantRisk   string
		wantAction string
	}{
		{0.8, true, "Low", "Use as reference for authentication"},
		{0.75, true, "Low", "Use as reference for authentication"},
		{0.65, true, "Low to Medium", "Compare physical details carefully"},
		{0.5, false, "Medium", "Check for differences in brand markings, colors, and quality"},
		{0.45, false, "Medium", "Check for differences in brand markings, colors, and quality"},
		{0.2, false, "High", "Verify with official brand website and check for counterfeits"},
	}

	for _, tc := range cases {
		got := a.insights(tc.score, tc.isMatch)
		assert.Equal(t, tc.wantRisk, got.CounterfeitRisk, "score %.2f match %v", tc.score, tc.isMatch)
		assert.Equal(t, tc.wantAction, got.SuggestedAction, "score %.2f match %v", tc.score, tc.isMatch)
		assert.Equal(t, config.Interpretation(tc.score), got.Interpretation)
	}
}

func TestCounterfeitVerdictTable(t *testing.T) {
	a := newTestAnalyzer(t)

	cases := []struct {
		score          float64
		isMatch        bool
		wantVerdict    string
		wantConfidence string
	}{
		{0.9, true, types.VerdictLikelyAuthentic, "High"},
		{0.7, true, types.VerdictLikelyAuthentic, "High"},
		{0.65, true, types.VerdictLikelyAuthentic, "Medium"},
		{0.4, false, types.VerdictNeedsVerification, "Low"},
		{0.3, false, types.VerdictNeedsVerification, "Low"},
		{0.1, false, types.VerdictSuspicious, "High"},
	}

	for _, tc := range cases {
		report := &types.ComparisonReport{SimilarityScore: tc.score, IsMatch: tc.isMatch}
		verdict := a.CounterfeitVerdict(report)

		assert.Equal(t, tc.wantVerdict, verdict.Verdict, "score %.2f", tc.score)
		assert.Equal(t, tc.wantConfidence, verdict.Confidence, "score %.2f", tc.score)
		assert.NotEmpty(t, verdict.Reasoning)
		assert.NotEmpty(t, verdict.RecommendedActions)
	}
}

func TestCounterfeitVerdictOnErrorReport(t *testing.T) {
	a := newTestAnalyzer(t)

	verdict := a.CounterfeitVerdict(&types.ComparisonReport{Error: "image file not found: x"})
	assert.Equal(t, "cannot analyze due to comparison error", verdict.Error)
	assert.Empty(t, verdict.Verdict)

	verdict = a.CounterfeitVerdict(nil)
	assert.NotEmpty(t, verdict.Error)
}

func TestBatchCompareIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.png")
	pathB := filepath.Join(dir, "b.png")
	writeTestImage(t, pathA, 4)
	writeTestImage(t, pathB, 5)
	missing := filepath.Join(dir, "missing.png")

	pairs := [][2]string{
		{pathA, pathA},
		{pathA, pathB},
		{pathA, missing},
		{pathB, pathB},
		{pathB, pathA},
	}

	a := newTestAnalyzer(t)
	result := a.BatchCompare(pairs, 0)

	assert.Equal(t, 5, result.TotalComparisons)
	require.Len(t, result.Comparisons, 5)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 5, result.Matches+result.NoMatches+result.Errors)

	// The failed slot is the one with the missing file; its neighbors are intact.
	assert.NotEmpty(t, result.Comparisons[2].Error)
	assert.Equal(t, 2, result.Comparisons[2].PairIndex)
	assert.Empty(t, result.Comparisons[1].Error)
	assert.Empty(t, result.Comparisons[3].Error)
}

func TestBatchCompareEmpty(t *testing.T) {
	a := newTestAnalyzer(t)
	result := a.BatchCompare(nil, 0)

	assert.Equal(t, 0, result.TotalComparisons)
	assert.Empty(t, result.Comparisons)
}
