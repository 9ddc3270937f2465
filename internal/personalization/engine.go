package personalization

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"intelligence-workers/internal/common/logger"
	"intelligence-workers/internal/common/metrics"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// MaxPersonalizedActions caps how many action items are carried into a result.
const MaxPersonalizedActions = 3

// ResultCache is a TTL-bound store of computed results. Implementations treat
// absent, expired, corrupt and unreachable entries alike: Get reports a miss.
type ResultCache interface {
	Get(ctx context.Context, key string) (*PersonalizedImpact, bool)
	Put(ctx context.Context, key string, result *PersonalizedImpact)
}

// KeyScope selects what a cache key is derived from.
type KeyScope string

const (
	// KeyScopeInsight keys by insight id only; safe only with one profile per process.
	KeyScopeInsight KeyScope = "insight"
	// KeyScopeInsightProfile keys by (insight id, profile id).
	KeyScopeInsightProfile KeyScope = "insight_profile"
)

// Outcome says where a result came from.
type Outcome string

const (
	OutcomeComputed Outcome = metrics.OutcomeComputed
	OutcomeCached   Outcome = metrics.OutcomeCached
	OutcomeFixture  Outcome = metrics.OutcomeFixture
	OutcomeSkipped  Outcome = metrics.OutcomeSkipped
)

// Result is a personalized impact with its provenance.
type Result struct {
	Impact  *PersonalizedImpact
	Outcome Outcome
	Key     string
}

// Engine is the personalization orchestrator. It is safe for concurrent use.
type Engine struct {
	ref       *ReferenceData
	scorer    *CompositeRelevanceScorer
	exposure  *LocationExposureMapper
	financial *FinancialImpactScaler

	cache       ResultCache
	keyScope    KeyScope
	keyPrefix   string
	concurrency int
	logger      logger.Logger

	flight singleflight.Group
}

type engineOptions struct {
	ref         *ReferenceData
	pillars     PillarPolicy
	tags        TagMatcher
	cache       ResultCache
	keyScope    KeyScope
	keyPrefix   string
	concurrency int
	logger      logger.Logger
}

type Option func(*engineOptions)

func WithReferenceData(ref *ReferenceData) Option {
	return func(o *engineOptions) { o.ref = ref }
}

func WithPillarPolicy(p PillarPolicy) Option {
	return func(o *engineOptions) { o.pillars = p }
}

// WithTagMatcher replaces the substring tag heuristic.
func WithTagMatcher(m TagMatcher) Option {
	return func(o *engineOptions) { o.tags = m }
}

func WithCache(c ResultCache) Option {
	return func(o *engineOptions) { o.cache = c }
}

func WithKeyScope(scope KeyScope, prefix string) Option {
	return func(o *engineOptions) {
		o.keyScope = scope
		o.keyPrefix = prefix
	}
}

func WithBatchConcurrency(n int) Option {
	return func(o *engineOptions) { o.concurrency = n }
}

func WithLogger(l logger.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// NewEngine builds an engine. Without WithCache results are never cached.
func NewEngine(opts ...Option) *Engine {
	o := engineOptions{
		pillars:     PillarPolicyMax,
		keyScope:    KeyScopeInsightProfile,
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ref == nil {
		o.ref = DefaultReferenceData()
	}
	if o.tags == nil {
		o.tags = NewVulnerabilityTagMatcher()
	}
	if o.logger == nil {
		o.logger = logger.NewNoOpLogger()
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	if o.keyScope != KeyScopeInsight {
		o.keyScope = KeyScopeInsightProfile
	}

	return &Engine{
		ref: o.ref,
		scorer: NewCompositeRelevanceScorer(
			NewGeographicRelevanceResolver(o.ref),
			NewPillarVulnerabilityMatcher(o.pillars),
			o.tags,
		),
		exposure:    NewLocationExposureMapper(),
		financial:   NewFinancialImpactScaler(),
		cache:       o.cache,
		keyScope:    o.keyScope,
		keyPrefix:   o.keyPrefix,
		concurrency: o.concurrency,
		logger:      o.logger,
	}
}

// CacheKey derives the cache key for an (insight, profile) pair under the configured scope.
func (e *Engine) CacheKey(insightID, profileID string) string {
	if e.keyScope == KeyScopeInsight {
		return e.keyPrefix + insightID
	}
	return e.keyPrefix + insightID + ":" + profileID
}

// profileCacheID is the profile id, or a digest of the profile's JSON form
// when the caller sent no id, so distinct id-less profiles never share a key.
func profileCacheID(profile *ClientProfile) string {
	if profile.ID != "" {
		return profile.ID
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return "anon-" + hex.EncodeToString(sum[:8])
}

// Compute is the pure scoring path: no cache and no fixture handling.
func (e *Engine) Compute(insight *Insight, profile *ClientProfile) *PersonalizedImpact {
	impact, _ := e.compute(insight, profile)
	return impact
}

func (e *Engine) compute(insight *Insight, profile *ClientProfile) (*PersonalizedImpact, RelevanceBreakdown) {
	affected := e.exposure.Map(insight.AffectedCounties, insight.Tags, profile.Locations)
	relevance := e.scorer.Score(insight, profile)
	financial := e.financial.Scale(insight.EstimatedCostImpact, profile.Segment, profile.IndustryMultiplier, len(affected))

	actions := insight.ActionItems
	if len(actions) > MaxPersonalizedActions {
		actions = actions[:MaxPersonalizedActions]
	}

	return &PersonalizedImpact{
		RelevanceScore:          relevance.Score,
		BusinessContext:         businessContext(insight, profile, affected),
		AffectedLocations:       affected,
		FinancialImpactAdjusted: financial,
		PersonalizedActions:     append([]string{}, actions...),
		IndustrySpecificNote:    industryNote(profile),
	}, relevance
}

func businessContext(insight *Insight, profile *ClientProfile, affected []AffectedLocation) string {
	where := " across all locations"
	if len(affected) > 0 {
		names := make([]string, len(affected))
		for i, a := range affected {
			names[i] = a.Name
		}
		where = " at " + strings.Join(names, ", ")
	}
	return fmt.Sprintf("This %s-impact event affects %s's operations%s.", insight.ImpactLevel, profile.OrganizationName, where)
}

func industryNote(profile *ClientProfile) string {
	if profile.DualJurisdiction {
		return fmt.Sprintf("As a %s operator with dual jurisdiction requirements, ensure compliance documentation satisfies both authorities.",
			profile.Segment.Human())
	}
	return fmt.Sprintf("As a %s operator, the industry impact multiplier (%sx) reflects heightened regulatory scrutiny for your segment.",
		profile.Segment.Human(), formatMultiplier(profile.IndustryMultiplier))
}

// PersonalizeOne returns the personalized impact, or nil when the insight
// carries no usable signal.
func (e *Engine) PersonalizeOne(ctx context.Context, insight *Insight, profile *ClientProfile, useFixture bool) *PersonalizedImpact {
	return e.Personalize(ctx, insight, profile, useFixture).Impact
}

// Personalize is PersonalizeOne with provenance. A curated fixture wins in
// fixture mode and is never cached; otherwise the cache is consulted and
// concurrent misses on the same key share a single computation.
func (e *Engine) Personalize(ctx context.Context, insight *Insight, profile *ClientProfile, useFixture bool) Result {
	if insight == nil {
		return e.skip("", "nil insight")
	}
	if useFixture && insight.PersonalizedBusinessImpact != nil {
		metrics.PersonalizationOutcomes.WithLabelValues(string(OutcomeFixture)).Inc()
		return Result{Impact: insight.PersonalizedBusinessImpact, Outcome: OutcomeFixture}
	}
	if !insight.HasSignal() {
		return e.skip(insight.ID, "no usable signal")
	}
	if profile == nil {
		return e.skip(insight.ID, "nil profile")
	}

	profileID := profileCacheID(profile)
	key := e.CacheKey(insight.ID, profileID)
	if e.cache != nil && profileID != "" {
		if cached, ok := e.cache.Get(ctx, key); ok {
			metrics.PersonalizationOutcomes.WithLabelValues(string(OutcomeCached)).Inc()
			return Result{Impact: cached, Outcome: OutcomeCached, Key: key}
		}
	}

	// In-flight sharing is always per profile, whatever the cache scope.
	v, _, _ := e.flight.Do(insight.ID+"\x00"+profileID, func() (interface{}, error) {
		impact, breakdown := e.compute(insight, profile)
		metrics.RelevanceScore.Observe(impact.RelevanceScore)
		e.logger.Debug("insight personalized", map[string]interface{}{
			"insightId":  insight.ID,
			"profileId":  profile.ID,
			"relevance":  breakdown.Score,
			"geography":  breakdown.Geography,
			"pillar":     breakdown.Pillar,
			"tags":       breakdown.Tags,
			"confidence": breakdown.Confidence,
			"locations":  len(impact.AffectedLocations),
		})
		if e.cache != nil && profileID != "" {
			e.cache.Put(ctx, key, impact)
		}
		return impact, nil
	})

	metrics.PersonalizationOutcomes.WithLabelValues(string(OutcomeComputed)).Inc()
	return Result{Impact: v.(*PersonalizedImpact), Outcome: OutcomeComputed, Key: key}
}

func (e *Engine) skip(insightID, reason string) Result {
	metrics.PersonalizationOutcomes.WithLabelValues(string(OutcomeSkipped)).Inc()
	e.logger.Debug("insight skipped", map[string]interface{}{
		"insightId": insightID,
		"reason":    reason,
	})
	return Result{Outcome: OutcomeSkipped}
}

// PersonalizeBatch personalizes every insight against one profile in parallel.
// Insights without a result, and insights whose computation panics, are
// logged and left out of the map.
func (e *Engine) PersonalizeBatch(ctx context.Context, insights []*Insight, profile *ClientProfile, useFixture bool) map[string]*PersonalizedImpact {
	results := make(map[string]*PersonalizedImpact, len(insights))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for _, insight := range insights {
		insight := insight
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					id := ""
					if insight != nil {
						id = insight.ID
					}
					e.logger.Error("personalization panicked, skipping insight", map[string]interface{}{
						"insightId": id,
						"panic":     fmt.Sprint(r),
						"stack":     string(debug.Stack()),
					})
				}
			}()

			res := e.Personalize(ctx, insight, profile, useFixture)
			if res.Impact == nil {
				return nil
			}
			mu.Lock()
			results[insight.ID] = res.Impact
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}
