// internal/workers/intelligence/personalize-insight/models.go
package personalizeinsight

import (
	"encoding/json"

	"intelligence-workers/internal/personalization"
)

// Input accepts the insight and profile inline or by id. Inline payloads win.
type Input struct {
	Insight        json.RawMessage `json:"insight,omitempty"`
	InsightID      string          `json:"insightId,omitempty"`
	Profile        json.RawMessage `json:"profile,omitempty"`
	OrganizationID string          `json:"organizationId,omitempty"`
	UseFixture     *bool           `json:"useFixture,omitempty"`
}

type Output struct {
	InsightID          string                              `json:"insightId"`
	OrganizationID     string                              `json:"organizationId"`
	PersonalizedImpact *personalization.PersonalizedImpact `json:"personalizedImpact"`
	RelevanceScore     float64                             `json:"relevanceScore"`
	Cached             bool                                `json:"cached"`
	Fixture            bool                                `json:"fixture"`
}
