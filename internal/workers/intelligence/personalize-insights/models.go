// internal/workers/intelligence/personalize-insights/models.go
package personalizeinsights

import (
	"encoding/json"

	"intelligence-workers/internal/personalization"
)

type Input struct {
	Insights       []json.RawMessage `json:"insights,omitempty"`
	InsightIDs     []string          `json:"insightIds,omitempty"`
	Profile        json.RawMessage   `json:"profile,omitempty"`
	OrganizationID string            `json:"organizationId,omitempty"`
	UseFixture     *bool             `json:"useFixture,omitempty"`
}

// Output maps insight id to its personalized impact. Insights without a
// result are listed in SkippedIDs.
type Output struct {
	OrganizationID string                                         `json:"organizationId"`
	Results        map[string]*personalization.PersonalizedImpact `json:"results"`
	Processed      int                                            `json:"processed"`
	Skipped        int                                            `json:"skipped"`
	SkippedIDs     []string                                       `json:"skippedIds,omitempty"`
	TopInsightID   string                                         `json:"topInsightId,omitempty"`
}
