package personalization

import "math"

// Composite weights. They sum to 1.0 so that all-maximal inputs score exactly 1.0.
const (
	WeightGeography  = 0.35
	WeightPillar     = 0.30
	WeightTags       = 0.20
	WeightConfidence = 0.15
)

// RelevanceBreakdown keeps the component scores alongside the composite.
type RelevanceBreakdown struct {
	Geography  float64 `json:"geography"`
	Pillar     float64 `json:"pillar"`
	Tags       float64 `json:"tags"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
}

// CompositeRelevanceScorer combines the leaf scores with the insight's own confidence.
type CompositeRelevanceScorer struct {
	geo     *GeographicRelevanceResolver
	pillars *PillarVulnerabilityMatcher
	tags    TagMatcher
}

func NewCompositeRelevanceScorer(geo *GeographicRelevanceResolver, pillars *PillarVulnerabilityMatcher, tags TagMatcher) *CompositeRelevanceScorer {
	return &CompositeRelevanceScorer{geo: geo, pillars: pillars, tags: tags}
}

func (s *CompositeRelevanceScorer) Score(insight *Insight, profile *ClientProfile) RelevanceBreakdown {
	b := RelevanceBreakdown{
		Geography:  s.geo.Score(insight.AffectedCounties, profile.PrimaryCounties),
		Pillar:     s.pillars.Score(insight.AffectedPillars, profile.ActiveVulnerabilities),
		Tags:       s.tags.Score(insight.Tags, profile.ActiveVulnerabilities),
		Confidence: insight.ConfidenceScore,
	}
	b.Score = Combine(b.Geography, b.Pillar, b.Tags, b.Confidence)
	return b
}

// Combine applies the weights and clamps to [0,1]. The sum is rounded to 12
// decimal places so float noise never pushes 1.0 to 0.9999999999999999.
func Combine(geo, pillar, tags, confidence float64) float64 {
	v := geo*WeightGeography + pillar*WeightPillar + tags*WeightTags + confidence*WeightConfidence
	if math.IsNaN(v) {
		return 0
	}
	v = math.Round(v*1e12) / 1e12
	return math.Max(0, math.Min(1, v))
}
