package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"intelligence-workers/internal/common/logger"
	"intelligence-workers/internal/personalization"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleImpact() *personalization.PersonalizedImpact {
	return &personalization.PersonalizedImpact{
		RelevanceScore:  0.7685,
		BusinessContext: "This critical-impact event affects Demo Organization's operations at Location 1.",
		AffectedLocations: []personalization.AffectedLocation{
			{Name: "Location 1", Impact: "Located in affected county (fresno)", RiskLevel: personalization.RiskMedium},
		},
		FinancialImpactAdjusted: personalization.AdjustedCost{Low: 600, High: 6000, Methodology: "m"},
		PersonalizedActions:     []string{"a"},
		IndustrySpecificNote:    "n",
	}
}

func TestRedisCache_RoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCache(client, 4*time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	_, ok := c.Get(ctx, "intel:impact:i:p")
	assert.False(t, ok)

	c.Put(ctx, "intel:impact:i:p", sampleImpact())
	assert.Equal(t, 4*time.Hour, mr.TTL("intel:impact:i:p"))

	got, ok := c.Get(ctx, "intel:impact:i:p")
	require.True(t, ok)
	assert.Equal(t, sampleImpact(), got)

	mr.FastForward(4 * time.Hour)
	_, ok = c.Get(ctx, "intel:impact:i:p")
	assert.False(t, ok)
}

func TestRedisCache_StaleEntryIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCache(client, time.Hour, nil)
	ctx := context.Background()
	c.Put(ctx, "k", sampleImpact())

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set("k", "{not json"))
	require.NoError(t, mr.Set("empty", `{"key":"empty"}`))

	c := NewRedisCache(client, time.Hour, logger.NewTestLogger(t))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	_, ok = c.Get(context.Background(), "empty")
	assert.False(t, ok)
}

func TestRedisCache_UnavailableIsMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, time.Hour, logger.NewTestLogger(t))

	mock.ExpectGet("k").SetErr(errors.New("connection refused"))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_PutWritesEntryWithTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, 4*time.Hour, logger.NewTestLogger(t))
	fixed := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	data, err := json.Marshal(personalization.CacheEntry{Key: "k", Result: sampleImpact(), CachedAt: fixed})
	require.NoError(t, err)

	mock.ExpectSet("k", data, 4*time.Hour).SetErr(errors.New("READONLY"))
	c.Put(context.Background(), "k", sampleImpact())

	assert.NoError(t, mock.ExpectationsWereMet())
}
