package personalization

import (
	"fmt"
	"strings"
)

// Location is one operating site. It belongs to exactly one profile.
type Location struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	County                string   `json:"county"`
	State                 string   `json:"state,omitempty"`
	Type                  string   `json:"type,omitempty"`
	ActiveVulnerabilities []string `json:"active_vulnerabilities"`
}

// ClientProfile describes one operator. ID is the organization id and scopes cache keys.
type ClientProfile struct {
	ID                    string     `json:"id"`
	OrganizationName      string     `json:"organization_name"`
	Segment               Segment    `json:"segment"`
	IndustryMultiplier    float64    `json:"industry_multiplier"`
	Locations             []Location `json:"locations"`
	PrimaryCounties       []string   `json:"primary_counties"`
	DualJurisdiction      bool       `json:"dual_jurisdiction"`
	JurisdictionNotes     string     `json:"jurisdiction_notes,omitempty"`
	ActiveVulnerabilities []string   `json:"active_vulnerabilities"`
}

// ProfileOptions carries the optional attributes of NewClientProfile.
type ProfileOptions struct {
	DualJurisdiction  bool
	JurisdictionNotes string
	Reference         *ReferenceData
}

// NewClientProfile derives the multiplier, primary counties and the
// vulnerability union from segment and locations. The profile keeps its own
// copy of locations with counties lower-cased.
func NewClientProfile(id, organizationName string, segment Segment, locations []Location, opts ProfileOptions) *ClientProfile {
	ref := opts.Reference
	if ref == nil {
		ref = DefaultReferenceData()
	}
	if !segment.Valid() {
		segment = SegmentIndependent
	}

	locs := make([]Location, len(locations))
	for i, l := range locations {
		l.County = strings.ToLower(strings.TrimSpace(l.County))
		l.ActiveVulnerabilities = append([]string(nil), l.ActiveVulnerabilities...)
		locs[i] = l
	}

	return &ClientProfile{
		ID:                    id,
		OrganizationName:      organizationName,
		Segment:               segment,
		IndustryMultiplier:    ref.Multiplier(segment),
		Locations:             locs,
		PrimaryCounties:       countiesOf(locs),
		DualJurisdiction:      opts.DualJurisdiction,
		JurisdictionNotes:     opts.JurisdictionNotes,
		ActiveVulnerabilities: vulnerabilitiesOf(locs),
	}
}

// countiesOf returns the distinct non-empty counties in first-seen order.
func countiesOf(locs []Location) []string {
	seen := make(map[string]bool, len(locs))
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		c := strings.ToLower(l.County)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func vulnerabilitiesOf(locs []Location) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range locs {
		for _, v := range l.ActiveVulnerabilities {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Validate reports violations of the profile invariants. The engine never
// calls it; callers reject malformed profiles before personalizing.
func (p *ClientProfile) Validate(ref *ReferenceData) error {
	if ref == nil {
		ref = DefaultReferenceData()
	}
	var problems []string

	if strings.TrimSpace(p.OrganizationName) == "" {
		problems = append(problems, "organization_name is empty")
	}
	if !p.Segment.Valid() {
		problems = append(problems, fmt.Sprintf("segment %q is not recognised", p.Segment))
	}
	if want := ref.Multiplier(p.Segment); p.IndustryMultiplier != want {
		problems = append(problems, fmt.Sprintf("industry_multiplier %v does not match %v for %s", p.IndustryMultiplier, want, p.Segment))
	}
	if len(p.Locations) == 0 {
		problems = append(problems, "profile has no locations")
	}

	seenIDs := map[string]bool{}
	for i, l := range p.Locations {
		if l.ID == "" {
			problems = append(problems, fmt.Sprintf("locations[%d] has no id", i))
		} else if seenIDs[l.ID] {
			problems = append(problems, fmt.Sprintf("location id %s is duplicated", l.ID))
		}
		seenIDs[l.ID] = true
		if l.County != strings.ToLower(l.County) {
			problems = append(problems, fmt.Sprintf("location %s county %q is not lower-case", l.ID, l.County))
		}
	}

	if !sameSet(p.PrimaryCounties, countiesOf(p.Locations)) {
		problems = append(problems, "primary_counties is not the distinct union of location counties")
	}

	if len(problems) > 0 {
		return fmt.Errorf("malformed profile: %s", strings.Join(problems, "; "))
	}
	return nil
}

func sameSet(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	if len(set) != len(a) || len(set) != len(b) {
		return false
	}
	for _, v := range b {
		if !set[v] {
			return false
		}
	}
	return true
}
