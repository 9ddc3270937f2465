// pkg/registry/schema.go
package registry

// ReferenceRegistry holds the reference tables the relevance engine scores against.
// Neighbors is directed: a county lists the counties it considers adjacent, and
// nothing is inferred in the other direction.
type ReferenceRegistry struct {
	Version     string              `json:"version"`
	LastUpdated string              `json:"lastUpdated,omitempty"`
	Neighbors   map[string][]string `json:"neighbors"`
	Multipliers map[string]float64  `json:"multipliers"`
}

// Segments lists every industry segment a multiplier must exist for.
var Segments = []string{
	"national_park_concession",
	"multi_unit_restaurant",
	"healthcare",
	"k12",
	"university",
	"corporate_dining",
	"hotel",
	"independent",
	"casual_dining",
}
