// Package intelligence resolves the insights and client profiles that worker
// jobs refer to, either inline or by id.
package intelligence

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "intelligence-workers/internal/common/errors"
	"intelligence-workers/internal/common/validation"
	"intelligence-workers/internal/personalization"
)

// InsightSource is implemented by store.InsightStore.
type InsightSource interface {
	Get(ctx context.Context, id string) (*personalization.Insight, error)
	GetMany(ctx context.Context, ids []string) ([]*personalization.Insight, error)
}

// ProfileSource is implemented by store.ProfileStore.
type ProfileSource interface {
	Load(ctx context.Context, organizationID string) (*personalization.ClientProfile, error)
}

// Resolver turns job variables into engine inputs. Either source may be nil,
// in which case only inline payloads are accepted.
type Resolver struct {
	insights InsightSource
	profiles ProfileSource
	ref      *personalization.ReferenceData
}

func NewResolver(insights InsightSource, profiles ProfileSource, ref *personalization.ReferenceData) *Resolver {
	if ref == nil {
		ref = personalization.DefaultReferenceData()
	}
	return &Resolver{insights: insights, profiles: profiles, ref: ref}
}

// inlineProfile is the accepted shape of a profile passed in job variables.
// Derived fields are recomputed rather than trusted.
type inlineProfile struct {
	ID                string                     `json:"id"`
	OrganizationName  string                     `json:"organization_name"`
	Segment           string                     `json:"segment"`
	DualJurisdiction  bool                       `json:"dual_jurisdiction"`
	JurisdictionNotes string                     `json:"jurisdiction_notes"`
	Locations         []personalization.Location `json:"locations"`
}

// Insight decodes raw when present and otherwise looks id up.
func (r *Resolver) Insight(ctx context.Context, raw json.RawMessage, id string) (*personalization.Insight, error) {
	if len(raw) > 0 && string(raw) != "null" {
		return decodeInsight(raw)
	}
	if id == "" {
		return nil, apperrors.NewInsightParseError(fmt.Errorf("insight or insightId is required"))
	}
	if r.insights == nil {
		return nil, apperrors.NewInsightNotFoundError(id)
	}
	return r.insights.Get(ctx, id)
}

// Insights decodes every inline payload, then appends the ones fetched by id.
func (r *Resolver) Insights(ctx context.Context, raws []json.RawMessage, ids []string) ([]*personalization.Insight, error) {
	out := make([]*personalization.Insight, 0, len(raws)+len(ids))
	for _, raw := range raws {
		in, err := decodeInsight(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if len(ids) == 0 {
		return out, nil
	}
	if r.insights == nil {
		return nil, apperrors.NewInsightNotFoundError(fmt.Sprint(ids))
	}
	fetched, err := r.insights.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	return append(out, fetched...), nil
}

// Profile decodes raw when present, loads organizationID otherwise, and falls
// back to the demo profile in fixture mode.
func (r *Resolver) Profile(ctx context.Context, raw json.RawMessage, organizationID string, useFixture bool) (*personalization.ClientProfile, error) {
	if len(raw) > 0 && string(raw) != "null" {
		return r.decodeProfile(raw)
	}
	if organizationID != "" && r.profiles != nil {
		return r.profiles.Load(ctx, organizationID)
	}
	if useFixture {
		return personalization.DemoClientProfile(), nil
	}
	if organizationID != "" {
		return nil, apperrors.NewProfileNotFoundError(organizationID)
	}
	return nil, apperrors.NewProfileInvalidError("profile or organizationId is required")
}

func decodeInsight(raw json.RawMessage) (*personalization.Insight, error) {
	result, err := validation.ValidateJSON(validation.SchemaInsight, raw)
	if err != nil {
		return nil, apperrors.NewInsightParseError(err)
	}
	if !result.Valid {
		return nil, apperrors.NewInsightParseError(result)
	}

	var insight personalization.Insight
	if err := json.Unmarshal(raw, &insight); err != nil {
		return nil, apperrors.NewInsightParseError(err)
	}
	return &insight, nil
}

func (r *Resolver) decodeProfile(raw json.RawMessage) (*personalization.ClientProfile, error) {
	result, err := validation.ValidateJSON(validation.SchemaProfile, raw)
	if err != nil {
		return nil, apperrors.NewProfileInvalidError(err.Error())
	}
	if !result.Valid {
		return nil, apperrors.NewProfileInvalidError(result.Error())
	}

	var in inlineProfile
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, apperrors.NewProfileInvalidError(err.Error())
	}

	profile := personalization.NewClientProfile(in.ID, in.OrganizationName, personalization.Segment(in.Segment), in.Locations,
		personalization.ProfileOptions{
			DualJurisdiction:  in.DualJurisdiction,
			JurisdictionNotes: in.JurisdictionNotes,
			Reference:         r.ref,
		})
	if err := profile.Validate(r.ref); err != nil {
		return nil, apperrors.NewProfileInvalidError(err.Error())
	}
	return profile, nil
}
