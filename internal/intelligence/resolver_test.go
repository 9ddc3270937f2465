package intelligence

import (
	"context"
	"encoding/json"
	"testing"

	apperrors "intelligence-workers/internal/common/errors"
	"intelligence-workers/internal/personalization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockInsights struct{ mock.Mock }

func (m *mockInsights) Get(ctx context.Context, id string) (*personalization.Insight, error) {
	args := m.Called(ctx, id)
	in, _ := args.Get(0).(*personalization.Insight)
	return in, args.Error(1)
}

func (m *mockInsights) GetMany(ctx context.Context, ids []string) ([]*personalization.Insight, error) {
	args := m.Called(ctx, ids)
	in, _ := args.Get(0).([]*personalization.Insight)
	return in, args.Error(1)
}

type mockProfiles struct{ mock.Mock }

func (m *mockProfiles) Load(ctx context.Context, id string) (*personalization.ClientProfile, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*personalization.ClientProfile)
	return p, args.Error(1)
}

const inlineProfileJSON = `{
  "id": "org-9",
  "organization_name": "Sierra Foods",
  "segment": "hotel",
  "industry_multiplier": 99,
  "locations": [
    {"id": "l1", "name": "Lodge", "county": "Mariposa", "active_vulnerabilities": ["hood_cleaning_approaching"]},
    {"id": "l2", "name": "Annex", "county": "madera"}
  ]
}`

func TestResolver_InlineProfileRecomputesDerivedFields(t *testing.T) {
	r := NewResolver(nil, nil, nil)
	p, err := r.Profile(context.Background(), json.RawMessage(inlineProfileJSON), "", false)
	require.NoError(t, err)

	assert.Equal(t, personalization.SegmentHotel, p.Segment)
	assert.Equal(t, 1.6, p.IndustryMultiplier)
	assert.Equal(t, []string{"mariposa", "madera"}, p.PrimaryCounties)
	assert.Equal(t, []string{"hood_cleaning_approaching"}, p.ActiveVulnerabilities)
}

func TestResolver_InlineProfileSchemaFailure(t *testing.T) {
	r := NewResolver(nil, nil, nil)
	_, err := r.Profile(context.Background(), json.RawMessage(`{"organization_name":"X","segment":"food_truck","locations":[]}`), "", false)
	stdErr := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeProfileInvalid, stdErr.Code)
	assert.Contains(t, stdErr.Details, "segment")
}

func TestResolver_ProfileSources(t *testing.T) {
	ctx := context.Background()
	profiles := &mockProfiles{}
	demo := personalization.DemoClientProfile()
	profiles.On("Load", ctx, "org-1").Return(demo, nil)

	r := NewResolver(nil, profiles, nil)

	got, err := r.Profile(ctx, nil, "org-1", false)
	require.NoError(t, err)
	assert.Same(t, demo, got)

	got, err = r.Profile(ctx, json.RawMessage("null"), "", true)
	require.NoError(t, err)
	assert.Equal(t, personalization.DemoProfileID, got.ID)

	_, err = r.Profile(ctx, nil, "", false)
	assert.Equal(t, apperrors.ErrCodeProfileInvalid, apperrors.AsStandardError(err).Code)

	_, err = NewResolver(nil, nil, nil).Profile(ctx, nil, "org-2", false)
	assert.Equal(t, apperrors.ErrCodeProfileNotFound, apperrors.AsStandardError(err).Code)

	profiles.AssertExpectations(t)
}

func TestResolver_Insight(t *testing.T) {
	ctx := context.Background()
	insights := &mockInsights{}
	stored := &personalization.Insight{ID: "stored"}
	insights.On("Get", ctx, "stored").Return(stored, nil)

	r := NewResolver(insights, nil, nil)

	got, err := r.Insight(ctx, json.RawMessage(`{"id":"inline","impact_level":"high","affected_counties":["fresno"]}`), "ignored")
	require.NoError(t, err)
	assert.Equal(t, "inline", got.ID)

	got, err = r.Insight(ctx, nil, "stored")
	require.NoError(t, err)
	assert.Same(t, stored, got)

	_, err = r.Insight(ctx, json.RawMessage(`{"id":"bad","confidence_score":3}`), "")
	assert.Equal(t, apperrors.ErrCodeInsightParseFailed, apperrors.AsStandardError(err).Code)

	_, err = r.Insight(ctx, nil, "")
	assert.Equal(t, apperrors.ErrCodeInsightParseFailed, apperrors.AsStandardError(err).Code)

	insights.AssertExpectations(t)
}

func TestResolver_Insights(t *testing.T) {
	ctx := context.Background()
	insights := &mockInsights{}
	insights.On("GetMany", ctx, []string{"a", "b"}).
		Return([]*personalization.Insight{{ID: "a"}, {ID: "b"}}, nil)

	got, err := NewResolver(insights, nil, nil).Insights(ctx, []json.RawMessage{json.RawMessage(`{"id":"inline"}`)}, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "inline", got[0].ID)
	assert.Equal(t, "b", got[2].ID)
}
