package personalization

import (
	"math"
	"strings"
)

// TagHitWeight is the score contributed by each matching tag.
const TagHitWeight = 0.25

// TagMatcher scores keyword overlap between insight tags and profile vulnerabilities.
type TagMatcher interface {
	Score(eventTags, vulnerabilities []string) float64
}

// VulnerabilityTagMatcher splits vulnerabilities on underscores and counts tags
// that contain any resulting token. Four hits saturate at 1.0.
type VulnerabilityTagMatcher struct{}

func NewVulnerabilityTagMatcher() *VulnerabilityTagMatcher {
	return &VulnerabilityTagMatcher{}
}

func (VulnerabilityTagMatcher) Score(eventTags, vulnerabilities []string) float64 {
	tokens := vulnerabilityTokens(vulnerabilities)
	if len(tokens) == 0 {
		return 0
	}

	hits := 0
	for _, tag := range eventTags {
		lt := strings.ToLower(tag)
		for _, tok := range tokens {
			if strings.Contains(lt, tok) {
				hits++
				break
			}
		}
	}
	return math.Min(1.0, float64(hits)*TagHitWeight)
}

// vulnerabilityTokens expands "cooler_trending_warm" into cooler, trending, warm.
// Empty tokens from doubled or edge underscores are dropped.
func vulnerabilityTokens(vulnerabilities []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range vulnerabilities {
		for _, tok := range strings.Split(strings.ToLower(v), "_") {
			if tok == "" || seen[tok] {
				continue
			}
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}
