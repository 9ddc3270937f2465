package personalization

import "strings"

// Segment is the closed set of business verticals a client can belong to.
type Segment string

const (
	SegmentNationalParkConcession Segment = "national_park_concession"
	SegmentMultiUnitRestaurant    Segment = "multi_unit_restaurant"
	SegmentHealthcare             Segment = "healthcare"
	SegmentK12                    Segment = "k12"
	SegmentUniversity             Segment = "university"
	SegmentCorporateDining        Segment = "corporate_dining"
	SegmentHotel                  Segment = "hotel"
	SegmentIndependent            Segment = "independent"
	SegmentCasualDining           Segment = "casual_dining"
)

var knownSegments = map[Segment]bool{
	SegmentNationalParkConcession: true,
	SegmentMultiUnitRestaurant:    true,
	SegmentHealthcare:             true,
	SegmentK12:                    true,
	SegmentUniversity:             true,
	SegmentCorporateDining:        true,
	SegmentHotel:                  true,
	SegmentIndependent:            true,
	SegmentCasualDining:           true,
}

// ParseSegment maps free text onto a Segment. Unknown values become independent.
func ParseSegment(s string) Segment {
	seg := Segment(strings.ToLower(strings.TrimSpace(s)))
	if knownSegments[seg] {
		return seg
	}
	return SegmentIndependent
}

func (s Segment) Valid() bool {
	return knownSegments[s]
}

// Human renders the segment for prose: underscores become spaces.
func (s Segment) Human() string {
	return strings.ReplaceAll(string(s), "_", " ")
}
