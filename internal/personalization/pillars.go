package personalization

import "strings"

// Pillar vulnerability scores.
const (
	PillarNoPillars = 0.3
	PillarMatch     = 0.9
	PillarNoMatch   = 0.5
)

// PillarPolicy decides how several event pillars combine.
type PillarPolicy string

const (
	// PillarPolicyMax scores each known pillar against its own markers; any match wins.
	PillarPolicyMax PillarPolicy = "max"
	// PillarPolicyLastWins lets the last known pillar on the event decide the outcome.
	PillarPolicyLastWins PillarPolicy = "last_wins"
)

// ParsePillarPolicy falls back to max for unknown values.
func ParsePillarPolicy(s string) PillarPolicy {
	if PillarPolicy(s) == PillarPolicyLastWins {
		return PillarPolicyLastWins
	}
	return PillarPolicyMax
}

var pillarMarkers = map[string][]string{
	PillarFacilitySafety: {"hood", "fire", "nfpa", "suppression", "nps_documentation"},
	PillarFoodSafety:     {"temp", "cooler", "poultry", "contamination", "haccp"},
}

// PillarVulnerabilityMatcher checks an insight's pillars against a profile's
// active vulnerabilities using per-pillar substring markers.
type PillarVulnerabilityMatcher struct {
	policy PillarPolicy
}

func NewPillarVulnerabilityMatcher(policy PillarPolicy) *PillarVulnerabilityMatcher {
	if policy != PillarPolicyLastWins {
		policy = PillarPolicyMax
	}
	return &PillarVulnerabilityMatcher{policy: policy}
}

func (m *PillarVulnerabilityMatcher) Policy() PillarPolicy {
	return m.policy
}

func (m *PillarVulnerabilityMatcher) Score(eventPillars, vulnerabilities []string) float64 {
	if len(eventPillars) == 0 {
		return PillarNoPillars
	}

	matched := false
	for _, pillar := range eventPillars {
		markers, known := pillarMarkers[strings.ToLower(pillar)]
		if !known {
			continue
		}
		hit := anyContainsMarker(vulnerabilities, markers)
		if m.policy == PillarPolicyLastWins {
			matched = hit
			continue
		}
		if hit {
			return PillarMatch
		}
	}

	if matched {
		return PillarMatch
	}
	return PillarNoMatch
}

func anyContainsMarker(vulnerabilities, markers []string) bool {
	for _, v := range vulnerabilities {
		lv := strings.ToLower(v)
		for _, marker := range markers {
			if strings.Contains(lv, marker) {
				return true
			}
		}
	}
	return false
}
