// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App             AppConfig               `mapstructure:"app"`
	Camunda         CamundaConfig           `mapstructure:"camunda"`
	Database        DatabaseConfig          `mapstructure:"database"`
	Workers         map[string]WorkerConfig `mapstructure:"workers"`
	Logging         LoggingConfig           `mapstructure:"logging"`
	Personalization PersonalizationConfig   `mapstructure:"personalization"`
	Notifications   NotificationConfig      `mapstructure:"notifications"`
	Observability   ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // single address shorthand
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Cache backends and key scopes accepted by PersonalizationConfig.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	CacheKeyScopeInsight        = "insight"
	CacheKeyScopeInsightProfile = "insight_profile"
)

// PersonalizationConfig tunes the business-impact engine and its result cache.
type PersonalizationConfig struct {
	CacheBackend      string        `mapstructure:"cache_backend"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	CacheKeyScope     string        `mapstructure:"cache_key_scope"`
	CachePrefix       string        `mapstructure:"cache_prefix"`
	FixtureMode       bool          `mapstructure:"fixture_mode"`
	PillarPolicy      string        `mapstructure:"pillar_policy"`
	ReferenceDataPath string        `mapstructure:"reference_data_path"`
	BatchConcurrency  int           `mapstructure:"batch_concurrency"`
	ProfileCacheTTL   time.Duration `mapstructure:"profile_cache_ttl"`
	InsightIndex      string        `mapstructure:"insight_index"`
}

// NotificationConfig holds settings for the dispatch-impact-alert worker.
type NotificationConfig struct {
	AWSRegion          string  `mapstructure:"aws_region"`
	EmailEnabled       bool    `mapstructure:"email_enabled"`
	FromEmail          string  `mapstructure:"from_email"`
	SMSEnabled         bool    `mapstructure:"sms_enabled"`
	WebhookURL         string  `mapstructure:"webhook_url"`
	WebhookSecret      string  `mapstructure:"webhook_secret"`
	RelevanceThreshold float64 `mapstructure:"relevance_threshold"`
}

// ObservabilityConfig controls metrics and tracing exporters.
type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	MetricsAddress string `mapstructure:"metrics_address"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
