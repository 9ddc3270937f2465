package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSON_Insight(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		valid   bool
		errorAt string
	}{
		{
			name:  "minimal insight",
			doc:   `{"id":"intel-1"}`,
			valid: true,
		},
		{
			name: "full insight",
			doc: `{"id":"intel-2","impact_level":"critical","urgency":"immediate","confidence_score":0.92,
				"affected_counties":["fresno"],"affected_pillars":["food_safety"],"tags":["poultry"],
				"estimated_cost_impact":{"low":1000,"high":5000,"currency":"USD"},"action_items":["a","b"]}`,
			valid: true,
		},
		{
			name:    "missing id",
			doc:     `{"impact_level":"high"}`,
			errorAt: "id",
		},
		{
			name:    "confidence above one",
			doc:     `{"id":"x","confidence_score":1.5}`,
			errorAt: "confidence_score",
		},
		{
			name:    "unknown impact level",
			doc:     `{"id":"x","impact_level":"severe"}`,
			errorAt: "impact_level",
		},
		{
			name:    "negative cost",
			doc:     `{"id":"x","estimated_cost_impact":{"low":-1,"high":10}}`,
			errorAt: "estimated_cost_impact.low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateJSON(SchemaInsight, []byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid, res.Error())
			if tt.errorAt != "" {
				assert.True(t, res.HasErrors(tt.errorAt), "errors: %v", res.GetErrorMessages())
			}
		})
	}
}

func TestValidateValue_Profile(t *testing.T) {
	valid := map[string]interface{}{
		"organization_name": "Demo Organization",
		"segment":           "casual_dining",
		"locations": []map[string]interface{}{
			{"id": "loc-1", "name": "Location 1", "county": "fresno"},
		},
	}
	res, err := ValidateValue(SchemaProfile, valid)
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Error())

	invalid := map[string]interface{}{
		"organization_name": "Demo Organization",
		"segment":           "food_truck",
		"locations": []map[string]interface{}{
			{"id": "loc-1", "county": "fresno"},
		},
	}
	res, err = ValidateValue(SchemaProfile, invalid)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("segment"))
	assert.NotEmpty(t, res.GetErrorsForField("locations"))
	assert.Contains(t, res.Error(), "segment")
}

func TestValidateJSON_UnknownSchema(t *testing.T) {
	_, err := ValidateJSON("nope", []byte(`{}`))
	assert.Error(t, err)
}

func TestValidateJSON_MalformedDocument(t *testing.T) {
	_, err := ValidateJSON(SchemaInsight, []byte(`{"id":`))
	assert.Error(t, err)
}
