package personalization

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	impactStatewide      = "Statewide regulation applies to this location"
	impactDirectExposure = "Direct exposure — active vulnerability detected at this location"
	impactCountyFormat   = "Located in affected county (%s)"
)

// LocationExposureMapper selects the locations an insight implicates and tiers their risk.
type LocationExposureMapper struct{}

func NewLocationExposureMapper() *LocationExposureMapper {
	return &LocationExposureMapper{}
}

// Map includes every location for statewide insights and otherwise only the
// locations inside the insight's counties. A location is high risk when one of
// its vulnerabilities contains a snake_cased insight tag, medium otherwise.
func (LocationExposureMapper) Map(eventCounties, eventTags []string, locations []Location) []AffectedLocation {
	tags := normalizeTags(eventTags)
	out := make([]AffectedLocation, 0, len(locations))

	if len(eventCounties) == 0 {
		for _, loc := range locations {
			if hasTagMatch(loc.ActiveVulnerabilities, tags) {
				out = append(out, AffectedLocation{Name: loc.Name, Impact: impactDirectExposure, RiskLevel: RiskHigh})
				continue
			}
			out = append(out, AffectedLocation{Name: loc.Name, Impact: impactStatewide, RiskLevel: RiskMedium})
		}
		return out
	}

	counties := make(map[string]bool, len(eventCounties))
	for _, c := range eventCounties {
		counties[strings.ToLower(c)] = true
	}

	for _, loc := range locations {
		if !counties[strings.ToLower(loc.County)] {
			continue
		}
		if hasTagMatch(loc.ActiveVulnerabilities, tags) {
			out = append(out, AffectedLocation{Name: loc.Name, Impact: impactDirectExposure, RiskLevel: RiskHigh})
			continue
		}
		out = append(out, AffectedLocation{
			Name:      loc.Name,
			Impact:    fmt.Sprintf(impactCountyFormat, loc.County),
			RiskLevel: RiskMedium,
		})
	}
	return out
}

// normalizeTags lower-cases tags and turns each whitespace rune into "_".
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return '_'
			}
			return r
		}, strings.ToLower(t))
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func hasTagMatch(vulnerabilities, normalizedTags []string) bool {
	for _, v := range vulnerabilities {
		lv := strings.ToLower(v)
		for _, t := range normalizedTags {
			if strings.Contains(lv, t) {
				return true
			}
		}
	}
	return false
}
