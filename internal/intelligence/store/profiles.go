// Package store loads client profiles and intelligence insights from the
// backing databases.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "intelligence-workers/internal/common/errors"
	"intelligence-workers/internal/common/logger"
	"intelligence-workers/internal/personalization"

	"github.com/redis/go-redis/v9"
)

const profileCachePrefix = "intel:profile:"

const (
	queryOrganization = `SELECT name, metadata FROM organizations WHERE id = $1`
	queryLocations    = `SELECT id, name, county, state, metadata FROM locations WHERE organization_id = $1 ORDER BY created_at, id`
)

type organizationMetadata struct {
	Segment           string `json:"segment"`
	DualJurisdiction  bool   `json:"dual_jurisdiction"`
	JurisdictionNotes string `json:"jurisdiction_notes"`
}

type locationMetadata struct {
	LocationType          string   `json:"location_type"`
	ActiveVulnerabilities []string `json:"active_vulnerabilities"`
}

// ProfileStore builds ClientProfiles from the organizations and locations
// tables, with an optional Redis cache in front.
type ProfileStore struct {
	db     *sql.DB
	redis  redis.Cmdable
	ttl    time.Duration
	ref    *personalization.ReferenceData
	logger logger.Logger
}

// NewProfileStore creates a store. rdb may be nil to disable profile caching.
func NewProfileStore(db *sql.DB, rdb redis.Cmdable, ttl time.Duration, ref *personalization.ReferenceData, log logger.Logger) *ProfileStore {
	if ref == nil {
		ref = personalization.DefaultReferenceData()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &ProfileStore{db: db, redis: rdb, ttl: ttl, ref: ref, logger: log}
}

// Load returns the profile for an organization. Failures are StandardErrors:
// PROFILE_NOT_FOUND, PROFILE_INVALID or the retryable PROFILE_LOAD_FAILED.
func (s *ProfileStore) Load(ctx context.Context, organizationID string) (*personalization.ClientProfile, error) {
	cacheKey := profileCachePrefix + organizationID
	if s.redis != nil {
		if val, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var profile personalization.ClientProfile
			if err := json.Unmarshal(val, &profile); err == nil {
				return &profile, nil
			}
		}
	}

	var (
		name    string
		rawMeta []byte
	)
	err := s.db.QueryRowContext(ctx, queryOrganization, organizationID).Scan(&name, &rawMeta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewProfileNotFoundError(organizationID)
		}
		return nil, apperrors.NewProfileLoadFailedError(organizationID, err)
	}

	var meta organizationMetadata
	if len(rawMeta) > 0 {
		if err := json.Unmarshal(rawMeta, &meta); err != nil {
			return nil, apperrors.NewProfileInvalidError(fmt.Sprintf("organization %s metadata: %v", organizationID, err))
		}
	}

	locations, err := s.loadLocations(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	profile := personalization.NewClientProfile(organizationID, name, personalization.ParseSegment(meta.Segment), locations,
		personalization.ProfileOptions{
			DualJurisdiction:  meta.DualJurisdiction,
			JurisdictionNotes: meta.JurisdictionNotes,
			Reference:         s.ref,
		})
	if err := profile.Validate(s.ref); err != nil {
		return nil, apperrors.NewProfileInvalidError(err.Error())
	}

	if s.redis != nil {
		if data, err := json.Marshal(profile); err == nil {
			if err := s.redis.Set(ctx, cacheKey, data, s.ttl).Err(); err != nil {
				s.logger.Warn("profile cache write failed", map[string]interface{}{
					"organizationId": organizationID,
					"error":          err.Error(),
				})
			}
		}
	}

	return profile, nil
}

func (s *ProfileStore) loadLocations(ctx context.Context, organizationID string) ([]personalization.Location, error) {
	rows, err := s.db.QueryContext(ctx, queryLocations, organizationID)
	if err != nil {
		return nil, apperrors.NewProfileLoadFailedError(organizationID, err)
	}
	defer rows.Close()

	var locations []personalization.Location
	for rows.Next() {
		var (
			loc     personalization.Location
			state   sql.NullString
			rawMeta []byte
		)
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.County, &state, &rawMeta); err != nil {
			return nil, apperrors.NewProfileLoadFailedError(organizationID, err)
		}
		loc.State = state.String

		if len(rawMeta) > 0 {
			var meta locationMetadata
			if err := json.Unmarshal(rawMeta, &meta); err != nil {
				s.logger.Warn("ignoring unreadable location metadata", map[string]interface{}{
					"locationId": loc.ID,
					"error":      err.Error(),
				})
			} else {
				loc.Type = meta.LocationType
				loc.ActiveVulnerabilities = meta.ActiveVulnerabilities
			}
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewProfileLoadFailedError(organizationID, err)
	}

	return locations, nil
}

// Invalidate drops the cached profile, e.g. after a location changes.
func (s *ProfileStore) Invalidate(ctx context.Context, organizationID string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Del(ctx, profileCachePrefix+organizationID).Err()
}
