package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productauth/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "comparisons.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveReportAndStats(t *testing.T) {
	s := openTestStore(t)

	report := &types.ComparisonReport{
		SimilarityScore: 0.82,
		IsMatch:         true,
		MatchStatus:     "MATCH",
		Threshold:       0.6,
		Analysis:        &types.AnalysisInsights{CounterfeitRisk: "Low"},
		DetailedScores: map[string]float64{
			types.MetricColor:      0.9,
			types.MetricKeypoint:   0.4,
			types.MetricStructural: 0.8,
			types.MetricEdge:       0.7,
			types.MetricShape:      0.0,
		},
	}
	require.NoError(t, s.SaveReport("ref.jpg", "candidate.jpg", report))

	noMatch := &types.ComparisonReport{
		SimilarityScore: 0.2,
		MatchStatus:     "NO MATCH",
		Threshold:       0.6,
		Analysis:        &types.AnalysisInsights{CounterfeitRisk: "High"},
	}
	require.NoError(t, s.SaveReport("ref.jpg", "other.jpg", noMatch))

	failed := &types.ComparisonReport{Error: "image file not found: gone.jpg"}
	require.NoError(t, s.SaveReport("ref.jpg", "gone.jpg", failed))

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalComparisons)
	assert.Equal(t, 1, stats.Matches)
	assert.Equal(t, 1, stats.Errors)
	assert.InDelta(t, 0.51, stats.AverageScore, 1e-9)
}

func TestStatsOnEmptyStore(t *testing.T) {
	s := openTestStore(t)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalComparisons)
	assert.Equal(t, 0.0, stats.AverageScore)
}

func TestSaveReportWithoutAnalysis(t *testing.T) {
	s := openTestStore(t)

	report := &types.ComparisonReport{SimilarityScore: 0.5, Threshold: 0.6}
	assert.NoError(t, s.SaveReport("a.jpg", "b.jpg", report))
}
