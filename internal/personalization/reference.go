package personalization

import (
	"strings"
	"sync"

	"intelligence-workers/pkg/registry"
)

// ReferenceData is the immutable lookup form of a registry: directed county
// adjacency and segment multipliers. Build it once and share it.
type ReferenceData struct {
	neighbors   map[string]map[string]struct{}
	multipliers map[Segment]float64
	version     string
}

// NewReferenceData snapshots reg. Later changes to reg are not observed.
func NewReferenceData(reg *registry.ReferenceRegistry) *ReferenceData {
	ref := &ReferenceData{
		neighbors:   make(map[string]map[string]struct{}, len(reg.Neighbors)),
		multipliers: make(map[Segment]float64, len(reg.Multipliers)),
		version:     reg.Version,
	}
	for county, list := range reg.Neighbors {
		set := make(map[string]struct{}, len(list))
		for _, n := range list {
			set[strings.ToLower(n)] = struct{}{}
		}
		ref.neighbors[strings.ToLower(county)] = set
	}
	for seg, m := range reg.Multipliers {
		ref.multipliers[Segment(seg)] = m
	}
	return ref
}

var (
	defaultRefOnce sync.Once
	defaultRef     *ReferenceData
)

// DefaultReferenceData returns the built-in tables.
func DefaultReferenceData() *ReferenceData {
	defaultRefOnce.Do(func() {
		defaultRef = NewReferenceData(registry.Default())
	})
	return defaultRef
}

// IsNeighbor reports whether eventCounty is in clientCounty's directed neighbor list.
func (r *ReferenceData) IsNeighbor(clientCounty, eventCounty string) bool {
	set, ok := r.neighbors[strings.ToLower(clientCounty)]
	if !ok {
		return false
	}
	_, ok = set[strings.ToLower(eventCounty)]
	return ok
}

// Multiplier returns the industry multiplier for seg, 1.0 when unknown.
func (r *ReferenceData) Multiplier(seg Segment) float64 {
	if m, ok := r.multipliers[seg]; ok && m > 0 {
		return m
	}
	return 1.0
}

func (r *ReferenceData) Version() string {
	return r.version
}
