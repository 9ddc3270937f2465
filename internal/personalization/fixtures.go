package personalization

import "fmt"

// DemoProfileID identifies the demo organization.
const DemoProfileID = "demo-org"

// DemoClientProfile is the seven-location Fresno operator used by demo sessions.
func DemoClientProfile() *ClientProfile {
	vulns := [][]string{
		{"cooler_trending_warm"},
		{"cooler_trending_warm", "hood_cleaning_approaching"},
		{},
		{"hood_cleaning_approaching"},
		{"temp_log_documentation_gaps"},
		{"poultry_temp_variance", "cross_contamination_risk"},
		{},
	}

	locs := make([]Location, len(vulns))
	for i, v := range vulns {
		locs[i] = Location{
			ID:                    fmt.Sprintf("demo-org-loc-%d", i+1),
			Name:                  fmt.Sprintf("Location %d", i+1),
			County:                "fresno",
			State:                 "CA",
			ActiveVulnerabilities: v,
		}
	}
	return NewClientProfile(DemoProfileID, "Demo Organization", SegmentCasualDining, locs, ProfileOptions{})
}

// DemoInsights returns a fresh copy of the demo insight set. The first carries
// a curated result used in fixture mode; the second is always computed.
func DemoInsights() []*Insight {
	return []*Insight{
		{
			ID:          "demo-intel-001",
			SourceType:  "health_dept",
			Category:    "enforcement_surge",
			ImpactLevel: ImpactHigh,
			Urgency:     UrgencyUrgent,
			Title:       "Fresno County Hood Cleaning Citations Up 47% in Q1 2026",
			Headline:    "Fresno inspectors are citing hood cleaning violations at nearly double the normal rate — review your schedule now.",
			ActionItems: []string{
				"Pull your hood cleaning logs for all Fresno locations today",
				"Verify cleaning frequency meets NFPA 96 Table 12.4 for your cooking volume",
				"Confirm your vendor has documentation of last service with grease weight recorded",
				"Schedule an unannounced self-inspection using the Facility Safety checklist this week",
				"Brief your kitchen managers on what inspectors are specifically looking for",
			},
			AffectedPillars:  []string{PillarFacilitySafety},
			AffectedCounties: []string{"fresno"},
			ConfidenceScore:  0.82,
			Tags:             []string{"hood cleaning", "NFPA 96", "Fresno", "enforcement", "facility safety"},
			EstimatedCostImpact: CostImpact{
				Low: 2500, High: 45000, Currency: "USD",
				Methodology: "Based on closure order frequency and emergency service costs",
			},
			PublishedAt: "2026-02-20T08:00:00Z",
			SourceName:  "Fresno County Environmental Health",
			PersonalizedBusinessImpact: &PersonalizedImpact{
				RelevanceScore:  0.82,
				BusinessContext: "Fresno County's 47% hood cleaning enforcement surge directly impacts your Fresno Convention Center Catering operation. With hood cleaning approaching threshold at that location, you are in the primary enforcement zone during peak citation activity.",
				AffectedLocations: []AffectedLocation{
					{Name: "Fresno Convention Center Catering", Impact: "Direct exposure — hood cleaning approaching threshold in active enforcement zone", RiskLevel: RiskHigh},
				},
				FinancialImpactAdjusted: AdjustedCost{
					Low: 5000, High: 90000,
					Methodology: "Adjusted for national park concession (2.0x multiplier) across 1 affected Fresno location",
				},
				PersonalizedActions: []string{
					"Pull hood cleaning logs for Fresno Convention Center today — last service may be approaching NFPA 96 threshold",
					"Verify your Fresno hood cleaning vendor has documentation with grease weight measurements",
					"Cross-check Yosemite NPS locations for similar documentation gaps before they become an issue",
				},
				IndustrySpecificNote: "As a national park concession operator, facility safety documentation failures at any location can trigger NPS concession compliance review across your entire portfolio.",
			},
		},
		{
			ID:          "demo-intel-003",
			SourceType:  "fda_recall",
			Category:    "recall_alert",
			ImpactLevel: ImpactCritical,
			Urgency:     UrgencyImmediate,
			Title:       "Class I Recall: Romaine Lettuce E.coli O157:H7 — California Distribution",
			Headline:    "URGENT: Class I recall for romaine lettuce with confirmed E.coli O157:H7 contamination affects California restaurant distributors.",
			ActionItems: []string{
				"IMMEDIATELY check all romaine lettuce inventory and remove affected lot codes",
				"Contact your produce supplier to confirm if your supply chain is affected",
				"Document removal in your HACCP log with date, quantity, and disposition",
				"Notify kitchen staff to halt all romaine use until clearance confirmed",
				"Take photos of disposed product for your records",
			},
			AffectedPillars:  []string{PillarFoodSafety},
			AffectedCounties: []string{"fresno", "merced", "stanislaus", "mariposa", "sacramento"},
			ConfidenceScore:  0.99,
			Tags:             []string{"recall", "romaine", "ecoli", "FDA", "Class I", "HACCP"},
			EstimatedCostImpact: CostImpact{
				Low: 500, High: 5000, Currency: "USD",
				Methodology: "Inventory disposal, supplier credit claim, documentation time",
			},
			PublishedAt: "2026-02-21T10:00:00Z",
			SourceName:  "FDA Food Safety and Inspection Service",
		},
	}
}
