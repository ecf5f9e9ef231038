package types

// Metric names used as keys in detailed score maps. The SIFT/SSIM names are
// kept for backward compatibility with the JSON contract of the web layer.
const (
	MetricColor      = "Color"
	MetricKeypoint   = "SIFT"
	MetricStructural = "SSIM"
	MetricEdge       = "Edge"
	MetricShape      = "Shape"
)

// MetricScore is one extractor's contribution to the aggregate.
type MetricScore struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// ImageMetadata describes one compared image file.
type ImageMetadata struct {
	Path       string  `json:"path"`
	Dimensions string  `json:"dimensions"`
	Channels   int     `json:"channels"`
	SizeKB     float64 `json:"size_kb"`
	Format     string  `json:"format,omitempty"`
}

// DetailedAnalysis is the calculator-level breakdown of a comparison.
type DetailedAnalysis struct {
	SimilarityScore  float64            `json:"similarity_score"`
	IndividualScores map[string]float64 `json:"individual_scores"`
	Weights          map[string]float64 `json:"weights"`
	Image1           ImageMetadata      `json:"image1_metadata"`
	Image2           ImageMetadata      `json:"image2_metadata"`
}

// AnalysisInsights carries the business interpretation of a score.
type AnalysisInsights struct {
	Confidence      string `json:"confidence"`
	Interpretation  string `json:"interpretation"`
	Recommendation  string `json:"recommendation"`
	CounterfeitRisk string `json:"counterfeit_risk"`
	SuggestedAction string `json:"suggested_action"`
}

// ComparisonReport is the full result of comparing two product images.
// When Error is non-empty the remaining fields are zero values; a report
// is always returned, never a panic or an error crossing the API.
type ComparisonReport struct {
	SimilarityScore float64            `json:"similarity_score"`
	IsMatch         bool               `json:"is_match"`
	MatchStatus     string             `json:"match_status,omitempty"`
	Threshold       float64            `json:"threshold,omitempty"`
	Image1          *ImageMetadata     `json:"image1,omitempty"`
	Image2          *ImageMetadata     `json:"image2,omitempty"`
	Analysis        *AnalysisInsights  `json:"analysis,omitempty"`
	DetailedScores  map[string]float64 `json:"detailed_scores,omitempty"`
	Weights         map[string]float64 `json:"weights,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// BatchEntry is one pair's report inside a batch result.
type BatchEntry struct {
	PairIndex int `json:"pair_index"`
	*ComparisonReport
}

// BatchResult aggregates a batch of independent comparisons.
type BatchResult struct {
	TotalComparisons int          `json:"total_comparisons"`
	Matches          int          `json:"matches"`
	NoMatches        int          `json:"no_matches"`
	Errors           int          `json:"errors"`
	Comparisons      []BatchEntry `json:"comparisons"`
}

// Counterfeit verdicts.
const (
	VerdictLikelyAuthentic   = "LIKELY_AUTHENTIC"
	VerdictNeedsVerification = "NEEDS_VERIFICATION"
	VerdictSuspicious        = "SUSPICIOUS"
)

// VerdictReport is the counterfeit-detection reading of a comparison.
type VerdictReport struct {
	Verdict            string   `json:"verdict,omitempty"`
	Confidence         string   `json:"confidence,omitempty"`
	SimilarityScore    float64  `json:"similarity_score"`
	Reasoning          []string `json:"reasoning,omitempty"`
	RecommendedActions []string `json:"recommended_actions,omitempty"`
	Error              string   `json:"error,omitempty"`
}
