// internal/workers/intelligence/personalize-insights/handler_test.go
package personalizeinsights

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "intelligence-workers/internal/common/errors"
	"intelligence-workers/internal/common/logger"
	"intelligence-workers/internal/intelligence"
	"intelligence-workers/internal/personalization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockInsightSource struct{ mock.Mock }

func (m *mockInsightSource) Get(ctx context.Context, id string) (*personalization.Insight, error) {
	args := m.Called(ctx, id)
	in, _ := args.Get(0).(*personalization.Insight)
	return in, args.Error(1)
}

func (m *mockInsightSource) GetMany(ctx context.Context, ids []string) ([]*personalization.Insight, error) {
	args := m.Called(ctx, ids)
	in, _ := args.Get(0).([]*personalization.Insight)
	return in, args.Error(1)
}

func createTestHandler(t *testing.T, source intelligence.InsightSource, cfg *Config) *Handler {
	t.Helper()
	if cfg == nil {
		cfg = &Config{Timeout: 5 * time.Second, MaxInsights: 10}
	}
	return NewHandler(HandlerOptions{
		CustomConfig: cfg,
		Engine:       personalization.NewEngine(personalization.WithBatchConcurrency(4)),
		Resolver:     intelligence.NewResolver(source, nil, nil),
		Logger:       logger.NewTestLogger(t),
	})
}

func TestHandler_Execute_Batch(t *testing.T) {
	source := &mockInsightSource{}
	source.On("GetMany", mock.Anything, []string{"demo-intel-001", "demo-intel-003"}).
		Return(personalization.DemoInsights(), nil)

	useFixture := true
	h := createTestHandler(t, source, nil)
	out, err := h.Execute(context.Background(), &Input{
		Insights:   []json.RawMessage{json.RawMessage(`{"id":"empty"}`)},
		InsightIDs: []string{"demo-intel-001", "demo-intel-003"},
		UseFixture: &useFixture,
	})
	require.NoError(t, err)

	assert.Equal(t, personalization.DemoProfileID, out.OrganizationID)
	assert.Equal(t, 2, out.Processed)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, []string{"empty"}, out.SkippedIDs)
	assert.Contains(t, out.Results, "demo-intel-001")
	assert.Contains(t, out.Results, "demo-intel-003")
	// curated 0.82 beats the computed 0.7685
	assert.Equal(t, "demo-intel-001", out.TopInsightID)

	source.AssertExpectations(t)
}

func TestHandler_Execute_LookupFailure(t *testing.T) {
	source := &mockInsightSource{}
	source.On("GetMany", mock.Anything, []string{"x"}).
		Return(nil, apperrors.NewInsightLookupFailedError("x", errors.New("es down")))

	useFixture := true
	_, err := createTestHandler(t, source, nil).Execute(context.Background(), &Input{InsightIDs: []string{"x"}, UseFixture: &useFixture})

	stdErr := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeInsightLookupFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestHandler_Execute_BatchTooLarge(t *testing.T) {
	h := createTestHandler(t, nil, &Config{Timeout: time.Second, MaxInsights: 1})
	_, err := h.Execute(context.Background(), &Input{InsightIDs: []string{"a", "b"}})
	assert.Equal(t, apperrors.ErrCodeInsightParseFailed, apperrors.AsStandardError(err).Code)
}

func TestHandler_Execute_EmptyBatch(t *testing.T) {
	useFixture := true
	out, err := createTestHandler(t, nil, nil).Execute(context.Background(), &Input{UseFixture: &useFixture})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Processed)
	assert.Empty(t, out.Results)
	assert.Equal(t, "", out.TopInsightID)
}

func TestTopInsight_TiesBreakByID(t *testing.T) {
	results := map[string]*personalization.PersonalizedImpact{
		"b": {RelevanceScore: 0.5},
		"a": {RelevanceScore: 0.5},
		"c": {RelevanceScore: 0.1},
	}
	assert.Equal(t, "a", topInsight(results))
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig(nil)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 500, cfg.MaxInsights)
	assert.False(t, cfg.FixtureMode)
}
