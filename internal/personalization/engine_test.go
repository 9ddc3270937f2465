package personalization

import (
	"context"
	"strings"
	"sync"
	"testing"

	"intelligence-workers/internal/common/logger"
	"intelligence-workers/internal/common/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*PersonalizedImpact
	gets    int
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*PersonalizedImpact{}}
}

func (c *fakeCache) Get(_ context.Context, key string) (*PersonalizedImpact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) Put(_ context.Context, key string, result *PersonalizedImpact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.entries[key] = result
}

// panickingTags blows up on a marker tag to exercise batch isolation.
type panickingTags struct{ VulnerabilityTagMatcher }

func (p panickingTags) Score(tags, vulns []string) float64 {
	for _, t := range tags {
		if t == "explode" {
			panic("boom")
		}
	}
	return p.VulnerabilityTagMatcher.Score(tags, vulns)
}

func demoInsight(t *testing.T, id string) *Insight {
	t.Helper()
	for _, in := range DemoInsights() {
		if in.ID == id {
			return in
		}
	}
	t.Fatalf("no demo insight %s", id)
	return nil
}

func TestEngine_Compute_RomaineRecall(t *testing.T) {
	e := NewEngine()
	got := e.Compute(demoInsight(t, "demo-intel-003"), DemoClientProfile())
	require.NotNil(t, got)

	// geo 1.0, pillar 0.9 (cooler), no tag hits, confidence 0.99
	assert.InDelta(t, 0.7685, got.RelevanceScore, 1e-9)
	require.Len(t, got.AffectedLocations, 7)
	for _, loc := range got.AffectedLocations {
		assert.Equal(t, RiskMedium, loc.RiskLevel)
		assert.Equal(t, "Located in affected county (fresno)", loc.Impact)
	}
	assert.Equal(t, AdjustedCost{
		Low: 4200, High: 42000,
		Methodology: "Adjusted for casual dining (1.2x multiplier) across 7 affected locations",
	}, got.FinancialImpactAdjusted)
	assert.Equal(t, []string{
		"IMMEDIATELY check all romaine lettuce inventory and remove affected lot codes",
		"Contact your produce supplier to confirm if your supply chain is affected",
		"Document removal in your HACCP log with date, quantity, and disposition",
	}, got.PersonalizedActions)
	assert.Equal(t, "This critical-impact event affects Demo Organization's operations at "+
		"Location 1, Location 2, Location 3, Location 4, Location 5, Location 6, Location 7.", got.BusinessContext)
	assert.Equal(t, "As a casual dining operator, the industry impact multiplier (1.2x) reflects heightened regulatory scrutiny for your segment.",
		got.IndustrySpecificNote)
}

func TestEngine_Compute_HoodCleaningSurge(t *testing.T) {
	got := NewEngine().Compute(demoInsight(t, "demo-intel-001"), DemoClientProfile())

	// geo 1.0, pillar 0.9 (hood), one tag hit, confidence 0.82
	assert.InDelta(t, 0.793, got.RelevanceScore, 1e-9)
	require.Len(t, got.AffectedLocations, 7)
	assert.Equal(t, RiskHigh, got.AffectedLocations[1].RiskLevel)
	assert.Equal(t, RiskHigh, got.AffectedLocations[3].RiskLevel)
	assert.Equal(t, RiskMedium, got.AffectedLocations[0].RiskLevel)
	assert.Len(t, got.PersonalizedActions, MaxPersonalizedActions)
}

func TestEngine_Compute_NoAffectedLocations(t *testing.T) {
	insight := &Insight{
		ID:                  "la-1",
		ImpactLevel:         ImpactLow,
		AffectedCounties:    []string{"los_angeles"},
		EstimatedCostImpact: CostImpact{Low: 100, High: 1000},
		ActionItems:         []string{"Review"},
	}
	got := NewEngine().Compute(insight, DemoClientProfile())

	assert.Empty(t, got.AffectedLocations)
	assert.Equal(t, "This low-impact event affects Demo Organization's operations across all locations.", got.BusinessContext)
	assert.Equal(t, int64(120), got.FinancialImpactAdjusted.Low)
	assert.Equal(t, int64(1200), got.FinancialImpactAdjusted.High)
	assert.True(t, strings.HasSuffix(got.FinancialImpactAdjusted.Methodology, "across 1 affected location"))
}

func TestEngine_Compute_DualJurisdictionNote(t *testing.T) {
	base := DemoClientProfile()
	p := NewClientProfile("nps-1", "Park Foods", SegmentNationalParkConcession, base.Locations, ProfileOptions{DualJurisdiction: true})

	got := NewEngine().Compute(demoInsight(t, "demo-intel-003"), p)
	assert.Equal(t, "As a national park concession operator with dual jurisdiction requirements, ensure compliance documentation satisfies both authorities.",
		got.IndustrySpecificNote)
}

func TestEngine_Compute_Deterministic(t *testing.T) {
	e := NewEngine()
	insight := demoInsight(t, "demo-intel-001")
	profile := DemoClientProfile()

	first := e.Compute(insight, profile)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, e.Compute(insight, profile))
	}
}

func TestEngine_Compute_StatewideCoversEveryLocation(t *testing.T) {
	insight := &Insight{ID: "state-1", ImpactLevel: ImpactHigh, AffectedPillars: []string{PillarFoodSafety}, ConfidenceScore: 0.78}
	got := NewEngine().Compute(insight, DemoClientProfile())
	assert.Len(t, got.AffectedLocations, 7)
	assert.Equal(t, int64(0), got.FinancialImpactAdjusted.High)
}

func TestEngine_Personalize_FixtureShortCircuit(t *testing.T) {
	cache := newFakeCache()
	e := NewEngine(WithCache(cache))
	insight := demoInsight(t, "demo-intel-001")
	before := testutil.ToFloat64(metrics.PersonalizationOutcomes.WithLabelValues(metrics.OutcomeFixture))

	res := e.Personalize(context.Background(), insight, DemoClientProfile(), true)

	assert.Equal(t, OutcomeFixture, res.Outcome)
	assert.Same(t, insight.PersonalizedBusinessImpact, res.Impact)
	assert.Equal(t, 0, cache.gets)
	assert.Equal(t, 0, cache.puts)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PersonalizationOutcomes.WithLabelValues(metrics.OutcomeFixture)))
}

func TestEngine_Personalize_FixtureIgnoredOutsideFixtureMode(t *testing.T) {
	insight := demoInsight(t, "demo-intel-001")
	res := NewEngine().Personalize(context.Background(), insight, DemoClientProfile(), false)

	assert.Equal(t, OutcomeComputed, res.Outcome)
	assert.NotSame(t, insight.PersonalizedBusinessImpact, res.Impact)
	assert.InDelta(t, 0.793, res.Impact.RelevanceScore, 1e-9)
}

func TestEngine_Personalize_CachesComputedResults(t *testing.T) {
	cache := newFakeCache()
	e := NewEngine(WithCache(cache), WithKeyScope(KeyScopeInsightProfile, "intel:impact:"))
	insight := demoInsight(t, "demo-intel-003")
	profile := DemoClientProfile()

	first := e.Personalize(context.Background(), insight, profile, true)
	assert.Equal(t, OutcomeComputed, first.Outcome)
	assert.Equal(t, "intel:impact:demo-intel-003:demo-org", first.Key)
	assert.Equal(t, 1, cache.puts)

	second := e.Personalize(context.Background(), insight, profile, true)
	assert.Equal(t, OutcomeCached, second.Outcome)
	assert.Same(t, first.Impact, second.Impact)
	assert.Equal(t, 1, cache.puts)
}

func TestEngine_Personalize_ProfilesWithoutIDKeepSeparateEntries(t *testing.T) {
	cache := newFakeCache()
	e := NewEngine(WithCache(cache), WithKeyScope(KeyScopeInsightProfile, "intel:impact:"))
	insight := demoInsight(t, "demo-intel-003")

	merced := DemoClientProfile()
	merced.ID = ""
	merced.OrganizationName = "Merced Org"
	la := DemoClientProfile()
	la.ID = ""
	la.OrganizationName = "LA Org"

	first := e.Personalize(context.Background(), insight, merced, false)
	second := e.Personalize(context.Background(), insight, la, false)

	assert.Equal(t, OutcomeComputed, first.Outcome)
	assert.Equal(t, OutcomeComputed, second.Outcome)
	assert.NotEqual(t, first.Key, second.Key)
	assert.NotEqual(t, "intel:impact:demo-intel-003:", second.Key)
	assert.Contains(t, second.Impact.BusinessContext, "LA Org's operations")

	again := e.Personalize(context.Background(), insight, merced, false)
	assert.Equal(t, OutcomeCached, again.Outcome)
	assert.Equal(t, first.Key, again.Key)
	assert.Contains(t, again.Impact.BusinessContext, "Merced Org's operations")
}

func TestEngine_Personalize_ServesCachedValue(t *testing.T) {
	cache := newFakeCache()
	e := NewEngine(WithCache(cache))
	sentinel := &PersonalizedImpact{RelevanceScore: 0.42}
	cache.entries[e.CacheKey("demo-intel-003", DemoProfileID)] = sentinel

	got := e.PersonalizeOne(context.Background(), demoInsight(t, "demo-intel-003"), DemoClientProfile(), false)
	assert.Same(t, sentinel, got)
}

func TestEngine_Personalize_NoSignal(t *testing.T) {
	cache := newFakeCache()
	e := NewEngine(WithCache(cache))
	ctx := context.Background()

	assert.Nil(t, e.PersonalizeOne(ctx, nil, DemoClientProfile(), false))
	assert.Nil(t, e.PersonalizeOne(ctx, &Insight{ID: "empty"}, DemoClientProfile(), false))
	assert.Nil(t, e.PersonalizeOne(ctx, &Insight{AffectedCounties: []string{"fresno"}}, DemoClientProfile(), false))
	assert.Nil(t, e.PersonalizeOne(ctx, demoInsight(t, "demo-intel-003"), nil, false))
	assert.Equal(t, 0, cache.puts)
}

func TestEngine_CacheKey(t *testing.T) {
	assert.Equal(t, "i-1:p-1", NewEngine().CacheKey("i-1", "p-1"))
	assert.Equal(t, "x:i-1", NewEngine(WithKeyScope(KeyScopeInsight, "x:")).CacheKey("i-1", "p-1"))
	assert.Equal(t, "x:i-1:p-1", NewEngine(WithKeyScope("unknown", "x:")).CacheKey("i-1", "p-1"))
}

func TestEngine_PillarPolicyOption(t *testing.T) {
	insight := &Insight{
		ID:               "p-1",
		AffectedCounties: []string{"fresno"},
		AffectedPillars:  []string{PillarFacilitySafety, PillarFoodSafety},
		ConfidenceScore:  1,
	}
	profile := NewClientProfile("o", "Org", SegmentIndependent, []Location{
		{ID: "1", Name: "A", County: "fresno", ActiveVulnerabilities: []string{"hood_cleaning_approaching"}},
	}, ProfileOptions{})

	maxPolicy := NewEngine().Compute(insight, profile)
	lastWins := NewEngine(WithPillarPolicy(PillarPolicyLastWins)).Compute(insight, profile)
	assert.Greater(t, maxPolicy.RelevanceScore, lastWins.RelevanceScore)
}

func TestEngine_PersonalizeBatch(t *testing.T) {
	insights := append(DemoInsights(), &Insight{ID: "empty"})
	e := NewEngine(WithBatchConcurrency(2), WithLogger(logger.NewTestLogger(t)))

	got := e.PersonalizeBatch(context.Background(), insights, DemoClientProfile(), true)

	require.Len(t, got, 2)
	assert.Same(t, insights[0].PersonalizedBusinessImpact, got["demo-intel-001"])
	assert.InDelta(t, 0.7685, got["demo-intel-003"].RelevanceScore, 1e-9)
	assert.NotContains(t, got, "empty")
}

func TestEngine_PersonalizeBatch_IsolatesPanics(t *testing.T) {
	e := NewEngine(WithTagMatcher(panickingTags{}), WithLogger(logger.NewTestLogger(t)))
	insights := []*Insight{
		demoInsight(t, "demo-intel-003"),
		{ID: "bad", AffectedCounties: []string{"fresno"}, Tags: []string{"explode"}},
		nil,
	}

	got := e.PersonalizeBatch(context.Background(), insights, DemoClientProfile(), false)

	require.Len(t, got, 1)
	assert.Contains(t, got, "demo-intel-003")
}

func TestEngine_PersonalizeBatch_Empty(t *testing.T) {
	got := NewEngine().PersonalizeBatch(context.Background(), nil, DemoClientProfile(), false)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEngine_Personalize_ConcurrentCallersAgree(t *testing.T) {
	cache := newFakeCache()
	e := NewEngine(WithCache(cache))
	insight := demoInsight(t, "demo-intel-003")
	profile := DemoClientProfile()

	var wg sync.WaitGroup
	results := make([]*PersonalizedImpact, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.PersonalizeOne(context.Background(), insight, profile, false)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, results[0].RelevanceScore, r.RelevanceScore)
	}
}
