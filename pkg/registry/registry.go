// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// DefaultVersion tags the built-in tables.
const DefaultVersion = "1.0.0"

// Default returns a fresh copy of the built-in tables.
func Default() *ReferenceRegistry {
	return &ReferenceRegistry{
		Version: DefaultVersion,
		Neighbors: map[string][]string{
			"fresno":     {"madera", "kings", "tulare", "merced", "mariposa"},
			"merced":     {"stanislaus", "mariposa", "madera", "fresno", "san_benito"},
			"stanislaus": {"san_joaquin", "merced", "tuolumne", "calaveras", "santa_clara"},
			"mariposa":   {"tuolumne", "merced", "madera", "fresno"},
		},
		Multipliers: map[string]float64{
			"healthcare":               2.5,
			"national_park_concession": 2.0,
			"k12":                      3.0,
			"university":               1.8,
			"corporate_dining":         1.5,
			"hotel":                    1.6,
			"multi_unit_restaurant":    1.3,
			"casual_dining":            1.2,
			"independent":              1.0,
		},
	}
}

// LoadRegistry reads a registry file. County names are lower-cased on load.
func LoadRegistry(path string) (*ReferenceRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ReferenceRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	reg.normalize()
	return &reg, nil
}

// Save writes the registry as indented JSON and stamps LastUpdated.
func (r *ReferenceRegistry) Save(path string) error {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (r *ReferenceRegistry) normalize() {
	if r.Neighbors == nil {
		r.Neighbors = map[string][]string{}
	}
	if r.Multipliers == nil {
		r.Multipliers = map[string]float64{}
	}
	neighbors := make(map[string][]string, len(r.Neighbors))
	for county, list := range r.Neighbors {
		key := strings.ToLower(strings.TrimSpace(county))
		for _, n := range list {
			neighbors[key] = appendUnique(neighbors[key], strings.ToLower(strings.TrimSpace(n)))
		}
		if _, ok := neighbors[key]; !ok {
			neighbors[key] = []string{}
		}
	}
	r.Neighbors = neighbors
}

// NeighborsOf returns the directed neighbor list of county.
func (r *ReferenceRegistry) NeighborsOf(county string) []string {
	return r.Neighbors[strings.ToLower(county)]
}

// Multiplier returns the multiplier for segment and whether it is known.
func (r *ReferenceRegistry) Multiplier(segment string) (float64, bool) {
	m, ok := r.Multipliers[segment]
	return m, ok
}

// AddNeighbor appends neighbor to county's list. It reports false when the edge already exists.
func (r *ReferenceRegistry) AddNeighbor(county, neighbor string) bool {
	if r.Neighbors == nil {
		r.Neighbors = map[string][]string{}
	}
	c := strings.ToLower(strings.TrimSpace(county))
	n := strings.ToLower(strings.TrimSpace(neighbor))
	for _, existing := range r.Neighbors[c] {
		if existing == n {
			return false
		}
	}
	r.Neighbors[c] = append(r.Neighbors[c], n)
	return true
}

// SetMultiplier overrides the multiplier of a known segment.
func (r *ReferenceRegistry) SetMultiplier(segment string, m float64) error {
	if !isKnownSegment(segment) {
		return fmt.Errorf("unknown segment %q", segment)
	}
	if m <= 0 {
		return fmt.Errorf("multiplier for %s must be positive, got %v", segment, m)
	}
	if r.Multipliers == nil {
		r.Multipliers = map[string]float64{}
	}
	r.Multipliers[segment] = m
	return nil
}

// Validate checks that every segment has a positive multiplier and that
// neighbor lists contain no blanks, duplicates or self references.
func (r *ReferenceRegistry) Validate() error {
	for _, seg := range Segments {
		m, ok := r.Multipliers[seg]
		if !ok {
			return fmt.Errorf("missing multiplier for segment %s", seg)
		}
		if m <= 0 {
			return fmt.Errorf("multiplier for %s must be positive, got %v", seg, m)
		}
	}
	for seg := range r.Multipliers {
		if !isKnownSegment(seg) {
			return fmt.Errorf("multiplier for unknown segment %s", seg)
		}
	}

	counties := make([]string, 0, len(r.Neighbors))
	for c := range r.Neighbors {
		counties = append(counties, c)
	}
	sort.Strings(counties)

	for _, county := range counties {
		if county == "" {
			return fmt.Errorf("neighbor table has an empty county key")
		}
		seen := map[string]bool{}
		for _, n := range r.Neighbors[county] {
			switch {
			case n == "":
				return fmt.Errorf("county %s has an empty neighbor", county)
			case n == county:
				return fmt.Errorf("county %s lists itself as a neighbor", county)
			case seen[n]:
				return fmt.Errorf("county %s lists %s twice", county, n)
			}
			seen[n] = true
		}
	}
	return nil
}

func isKnownSegment(segment string) bool {
	for _, s := range Segments {
		if s == segment {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
