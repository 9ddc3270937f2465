// Package personalization turns an external compliance insight and a client
// profile into a bounded, deterministic business-impact assessment.
package personalization

import "time"

type ImpactLevel string

const (
	ImpactCritical ImpactLevel = "critical"
	ImpactHigh     ImpactLevel = "high"
	ImpactMedium   ImpactLevel = "medium"
	ImpactLow      ImpactLevel = "low"
)

type Urgency string

const (
	UrgencyImmediate     Urgency = "immediate"
	UrgencyUrgent        Urgency = "urgent"
	UrgencyStandard      Urgency = "standard"
	UrgencyInformational Urgency = "informational"
)

type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// Pillars the engine knows markers for. Other pillar values are carried but ignored.
const (
	PillarFoodSafety     = "food_safety"
	PillarFacilitySafety = "facility_safety"
)

// CostImpact is the baseline monetary range attached to an insight.
type CostImpact struct {
	Low         float64 `json:"low"`
	High        float64 `json:"high"`
	Currency    string  `json:"currency,omitempty"`
	Methodology string  `json:"methodology,omitempty"`
}

func (c CostImpact) isZero() bool {
	return c.Low == 0 && c.High == 0
}

// Insight is one externally sourced compliance event.
type Insight struct {
	ID                  string      `json:"id"`
	SourceType          string      `json:"source_type,omitempty"`
	Category            string      `json:"category,omitempty"`
	ImpactLevel         ImpactLevel `json:"impact_level"`
	Urgency             Urgency     `json:"urgency,omitempty"`
	Title               string      `json:"title,omitempty"`
	Headline            string      `json:"headline,omitempty"`
	Summary             string      `json:"summary,omitempty"`
	ConfidenceScore     float64     `json:"confidence_score"`
	AffectedCounties    []string    `json:"affected_counties"`
	AffectedPillars     []string    `json:"affected_pillars"`
	Tags                []string    `json:"tags"`
	EstimatedCostImpact CostImpact  `json:"estimated_cost_impact"`
	ActionItems         []string    `json:"action_items"`
	PublishedAt         string      `json:"published_at,omitempty"`
	SourceName          string      `json:"source_name,omitempty"`

	// PersonalizedBusinessImpact is a curated result returned verbatim in fixture mode.
	PersonalizedBusinessImpact *PersonalizedImpact `json:"personalizedBusinessImpact,omitempty"`
}

// HasSignal reports whether the insight carries anything the engine can score.
func (i *Insight) HasSignal() bool {
	if i == nil || i.ID == "" {
		return false
	}
	return len(i.AffectedCounties) > 0 ||
		len(i.AffectedPillars) > 0 ||
		len(i.Tags) > 0 ||
		len(i.ActionItems) > 0 ||
		!i.EstimatedCostImpact.isZero() ||
		i.ConfidenceScore != 0
}

type AffectedLocation struct {
	Name      string    `json:"name"`
	Impact    string    `json:"impact"`
	RiskLevel RiskLevel `json:"risk_level"`
}

// AdjustedCost is the baseline range rescaled for one client, in whole currency units.
type AdjustedCost struct {
	Low         int64  `json:"low"`
	High        int64  `json:"high"`
	Methodology string `json:"methodology"`
}

// PersonalizedImpact is the engine's output for one (insight, profile) pair.
type PersonalizedImpact struct {
	RelevanceScore          float64            `json:"relevance_score"`
	BusinessContext         string             `json:"business_context"`
	AffectedLocations       []AffectedLocation `json:"affected_locations"`
	FinancialImpactAdjusted AdjustedCost       `json:"financial_impact_adjusted"`
	PersonalizedActions     []string           `json:"personalized_actions"`
	IndustrySpecificNote    string             `json:"industry_specific_note"`
}

// Clone returns a deep copy; slices are not shared with the receiver.
func (p *PersonalizedImpact) Clone() *PersonalizedImpact {
	if p == nil {
		return nil
	}
	c := *p
	if p.AffectedLocations != nil {
		c.AffectedLocations = append([]AffectedLocation(nil), p.AffectedLocations...)
	}
	if p.PersonalizedActions != nil {
		c.PersonalizedActions = append([]string(nil), p.PersonalizedActions...)
	}
	return &c
}

// CacheEntry is the stored form of a cached result.
type CacheEntry struct {
	Key      string              `json:"key"`
	Result   *PersonalizedImpact `json:"result"`
	CachedAt time.Time           `json:"cachedAt"`
}

// Expired reports whether the entry is older than ttl at now.
func (e CacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CachedAt) >= ttl
}
