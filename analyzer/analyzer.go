package analyzer

import (
	"fmt"
	"os"

	"productauth/config"
	"productauth/logging"
	"productauth/similarity"
	"productauth/types"
)

// Analyzer wraps the similarity calculator with authentication
// semantics: match decisions, interpretation bands, counterfeit-risk
// labels, and batch comparison.
type Analyzer struct {
	cfg  *config.SimilarityConfig
	calc *similarity.Calculator
	meta *metadataReader
}

// New creates an analyzer bound to cfg. A nil cfg selects the default
// calibration.
func New(cfg *config.SimilarityConfig) *Analyzer {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Analyzer{
		cfg:  cfg,
		calc: similarity.NewCalculator(cfg),
		meta: newMetadataReader(),
	}
}

// Calculator exposes the underlying calculator for callers that only
// need raw scores.
func (a *Analyzer) Calculator() *similarity.Calculator {
	return a.calc
}

// Close releases detector and metadata resources.
func (a *Analyzer) Close() error {
	a.meta.Close()
	return a.calc.Close()
}

// Compare compares two product images and returns a full report. A
// threshold <= 0 selects the configured default. Input problems (missing
// file, undecodable image) come back as a report with Error set, never
// as a panic, so batch runs and web callers can continue.
func (a *Analyzer) Compare(path1, path2 string, threshold float64) *types.ComparisonReport {
	if threshold <= 0 {
		threshold = a.cfg.DefaultMatchThreshold
	}

	for _, path := range []string{path1, path2} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return &types.ComparisonReport{Error: fmt.Sprintf("image file not found: %s", path)}
		}
	}

	detailed, err := a.calc.GetDetailedAnalysis(path1, path2)
	if err != nil {
		logging.LogError("comparison of %s and %s failed: %v", path1, path2, err)
		return &types.ComparisonReport{Error: fmt.Sprintf("analysis failed: %v", err)}
	}

	score := detailed.SimilarityScore
	isMatch := score >= threshold
	matchStatus := "NO MATCH"
	if isMatch {
		matchStatus = "MATCH"
	}

	meta1 := a.meta.enrich(detailed.Image1)
	meta2 := a.meta.enrich(detailed.Image2)

	logging.LogComparison(path1, path2, score, isMatch)

	return &types.ComparisonReport{
		SimilarityScore: score,
		IsMatch:         isMatch,
		MatchStatus:     matchStatus,
		Threshold:       threshold,
		Image1:          &meta1,
		Image2:          &meta2,
		Analysis:        a.insights(score, isMatch),
		DetailedScores:  detailed.IndividualScores,
		Weights:         detailed.Weights,
	}
}

// insights derives the recommendation and counterfeit-risk label from the
// decision table keyed on (is_match, score).
func (a *Analyzer) insights(score float64, isMatch bool) *types.AnalysisInsights {
	out := &types.AnalysisInsights{
		Confidence:     a.cfg.ConfidenceLevel(score),
		Interpretation: config.Interpretation(score),
	}

	switch {
	case isMatch && score >= a.cfg.HighConfidenceThreshold:
		out.Recommendation = "Likely same product - High confidence match"
		out.CounterfeitRisk = "Low"
		out.SuggestedAction = "Use as reference for authentication"
	case isMatch:
		out.Recommendation = "Similar products - Moderate confidence match"
		out.CounterfeitRisk = "Low to Medium"
		out.SuggestedAction = "Compare physical details carefully"
	case score >= a.cfg.MediumConfidenceThreshold:
		out.Recommendation = "Some similarities found - Needs verification"
		out.CounterfeitRisk = "Medium"
		out.SuggestedAction = "Check for differences in brand markings, colors, and quality"
	default:
		out.Recommendation = "Different products or poor match"
		out.CounterfeitRisk = "High"
		out.SuggestedAction = "Verify with official brand website and check for counterfeits"
	}

	return out
}

// BatchCompare processes each pair independently: one pair's failure is
// recorded in its slot and never aborts the rest of the batch.
func (a *Analyzer) BatchCompare(pairs [][2]string, threshold float64) *types.BatchResult {
	result := &types.BatchResult{
		TotalComparisons: len(pairs),
		Comparisons:      make([]types.BatchEntry, 0, len(pairs)),
	}

	for i, pair := range pairs {
		report := a.Compare(pair[0], pair[1], threshold)

		switch {
		case report.Error != "":
			result.Errors++
		case report.IsMatch:
			result.Matches++
		default:
			result.NoMatches++
		}

		result.Comparisons = append(result.Comparisons, types.BatchEntry{
			PairIndex:        i,
			ComparisonReport: report,
		})
	}

	return result
}

// CounterfeitVerdict derives an authentication verdict from a comparison
// report. Its cut points (0.7/0.5/0.3) are looser than the risk table's
// on purpose: genuine product variation from lighting and angle should
// not produce a "suspicious" verdict.
func (a *Analyzer) CounterfeitVerdict(report *types.ComparisonReport) *types.VerdictReport {
	if report == nil || report.Error != "" {
		return &types.VerdictReport{Error: "cannot analyze due to comparison error"}
	}

	score := report.SimilarityScore
	out := &types.VerdictReport{SimilarityScore: score}

	switch {
	case report.IsMatch && score >= 0.7:
		out.Verdict = types.VerdictLikelyAuthentic
		out.Confidence = "High"
		out.Reasoning = []string{
			"Images show very high similarity",
			"Products appear to be identical",
			"Good reference for authentication",
		}
	case report.IsMatch && score >= 0.5:
		out.Verdict = types.VerdictLikelyAuthentic
		out.Confidence = "Medium"
		out.Reasoning = []string{
			"Images show good similarity",
			"Products appear to be the same",
			"Minor differences may be due to lighting/angle",
		}
	case score >= 0.3:
		out.Verdict = types.VerdictNeedsVerification
		out.Confidence = "Low"
		out.Reasoning = []string{
			"Some similarities found but limited",
			"Compare physical details carefully",
			"Check authentication certificates",
		}
	default:
		out.Verdict = types.VerdictSuspicious
		out.Confidence = "High"
		out.Reasoning = []string{
			"No significant similarities found",
			"Higher risk of counterfeit",
			"Verify with official brand website",
		}
	}

	out.RecommendedActions = recommendedActions(out.Verdict)
	return out
}

func recommendedActions(verdict string) []string {
	switch verdict {
	case types.VerdictLikelyAuthentic:
		return []string{
			"Use as reference for authentication",
			"Compare with official product images",
			"Verify serial numbers and markings",
		}
	case types.VerdictNeedsVerification:
		return []string{
			"Check for differences in brand markings",
			"Compare color variations carefully",
			"Examine quality details and stitching",
			"Verify with official brand website",
		}
	default:
		return []string{
			"Verify with official brand website",
			"Check for authentication certificates",
			"Compare with known authentic examples",
			"Consider professional authentication",
		}
	}
}
