package personalization

import "strings"

// Geographic relevance scores.
const (
	GeoDirectMatch = 1.0
	GeoNeighbor    = 0.6
	GeoStatewide   = 0.5
	GeoDistant     = 0.3
)

// GeographicRelevanceResolver scores how close an insight's jurisdictions are to a client's.
type GeographicRelevanceResolver struct {
	ref *ReferenceData
}

func NewGeographicRelevanceResolver(ref *ReferenceData) *GeographicRelevanceResolver {
	if ref == nil {
		ref = DefaultReferenceData()
	}
	return &GeographicRelevanceResolver{ref: ref}
}

// Score returns 0.5 for statewide insights (no counties), 1.0 when any insight
// county is a client county, 0.6 when one is in a client county's directed
// neighbor list and 0.3 otherwise.
func (g *GeographicRelevanceResolver) Score(eventCounties, clientCounties []string) float64 {
	if len(eventCounties) == 0 {
		return GeoStatewide
	}

	client := make(map[string]bool, len(clientCounties))
	for _, c := range clientCounties {
		client[strings.ToLower(c)] = true
	}

	score := 0.0
	for _, county := range eventCounties {
		e := strings.ToLower(county)
		if client[e] {
			return GeoDirectMatch
		}
		if score >= GeoNeighbor {
			continue
		}
		for _, c := range clientCounties {
			if g.ref.IsNeighbor(c, e) {
				score = GeoNeighbor
				break
			}
		}
	}

	if score == 0 {
		return GeoDistant
	}
	return score
}
