package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: intelligence
  elasticsearch:
    url: http://localhost:9200
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "intelligence-workers", cfg.App.Name)
	assert.Equal(t, 10, cfg.Camunda.MaxJobsActive)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Database.Elasticsearch.Addresses)

	p := cfg.Personalization
	assert.Equal(t, CacheBackendMemory, p.CacheBackend)
	assert.Equal(t, 4*time.Hour, p.CacheTTL)
	assert.Equal(t, CacheKeyScopeInsightProfile, p.CacheKeyScope)
	assert.Equal(t, "intel:impact:", p.CachePrefix)
	assert.Equal(t, "max", p.PillarPolicy)
	assert.Equal(t, 8, p.BatchConcurrency)
	assert.Equal(t, 10*time.Minute, p.ProfileCacheTTL)
	assert.Equal(t, "intelligence_insights", p.InsightIndex)

	assert.Equal(t, 0.7, cfg.Notifications.RelevanceThreshold)
	assert.Equal(t, ":8080", cfg.Observability.MetricsAddress)
	assert.Equal(t, "intelligence-workers", cfg.Observability.ServiceName)
}

func TestLoadFromFile_ParsesDurationsAndWorkers(t *testing.T) {
	body := minimalConfig + `
personalization:
  cache_ttl: 90m
  cache_key_scope: insight
workers:
  personalize-insight:
    enabled: false
    max_jobs_active: 2
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, 90*time.Minute, cfg.Personalization.CacheTTL)
	assert.Equal(t, CacheKeyScopeInsight, cfg.Personalization.CacheKeyScope)

	wc := GetWorkerConfig(cfg, "personalize-insight")
	assert.False(t, wc.Enabled)
	assert.Equal(t, 2, wc.MaxJobsActive)
	assert.Equal(t, 30000, wc.Timeout)
	assert.Equal(t, 3, wc.MaxRetries)

	assert.False(t, IsWorkerEnabled(cfg, "personalize-insight"))
	assert.True(t, IsWorkerEnabled(cfg, "dispatch-impact-alert"))
	assert.Equal(t, 5, GetWorkerConfig(cfg, "unknown").MaxJobsActive)
}

func TestLoadFromFile_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_ZEEBE_ADDRESS", "zeebe:26500")
	body := `
camunda:
  broker_address: ${TEST_ZEEBE_ADDRESS}
database:
  postgres:
    host: localhost
    database: intelligence
  elasticsearch:
    url: http://localhost:9200
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "zeebe:26500", cfg.Camunda.BrokerAddress)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Camunda.BrokerAddress = "localhost:26500"
		cfg.Database.Postgres.Host = "localhost"
		cfg.Database.Postgres.Database = "intelligence"
		cfg.Database.Elasticsearch.URL = "http://localhost:9200"
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing broker", func(c *Config) { c.Camunda.BrokerAddress = "" }, "camunda.broker_address"},
		{"missing postgres host", func(c *Config) { c.Database.Postgres.Host = "" }, "database.postgres.host"},
		{"missing elasticsearch", func(c *Config) { c.Database.Elasticsearch.Addresses = nil }, "database.elasticsearch"},
		{"redis backend without address", func(c *Config) {
			c.Personalization.CacheBackend = CacheBackendRedis
		}, "database.redis.address"},
		{"redis backend with address", func(c *Config) {
			c.Personalization.CacheBackend = CacheBackendRedis
			c.Database.Redis.Address = "localhost:6379"
		}, ""},
		{"unknown backend", func(c *Config) { c.Personalization.CacheBackend = "memcached" }, "cache_backend"},
		{"unknown key scope", func(c *Config) { c.Personalization.CacheKeyScope = "profile" }, "cache_key_scope"},
		{"unknown pillar policy", func(c *Config) { c.Personalization.PillarPolicy = "first_wins" }, "pillar_policy"},
		{"last_wins policy", func(c *Config) { c.Personalization.PillarPolicy = "last_wins" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "intel", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=intel sslmode=disable", p.GetDSN())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
